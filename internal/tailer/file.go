package tailer

import (
	"errors"
	"io"
	"os"
	"strings"

	"golang.org/x/sys/unix"
	"golang.org/x/text/encoding/unicode"

	"bobbin/internal/reassembly"
)

// fileIdentity distinguishes a path's current file from a rotated-away
// predecessor with the same name.
type fileIdentity struct {
	dev uint64
	ino uint64
}

// fileState is the tracked position within one watched file. name keeps the
// on-disk spelling for display; map keys are lower-cased elsewhere.
type fileState struct {
	path   string
	name   string
	offset int64
	id     fileIdentity
	rs     *reassembly.Reassembler
}

var errNotRegular = errors.New("not a regular file")

// statIdentity returns the current size and identity of a regular file.
func statIdentity(path string) (int64, fileIdentity, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, fileIdentity{}, err
	}
	if st.Mode&unix.S_IFMT != unix.S_IFREG {
		return 0, fileIdentity{}, errNotRegular
	}
	return st.Size, fileIdentity{dev: uint64(st.Dev), ino: st.Ino}, nil
}

// readRange reads the byte range [from, to) and splits it into non-empty
// lines. Reads that begin at the start of the file tolerate a UTF-8 byte
// order mark.
func readRange(path string, from, to int64) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := f.Seek(from, io.SeekStart); err != nil {
		return nil, err
	}
	var r io.Reader = io.LimitReader(f, to-from)
	if from == 0 {
		r = unicode.UTF8BOM.NewDecoder().Reader(r)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return splitLines(data), nil
}

// splitLines breaks raw bytes on LF, trims an optional preceding CR, and
// drops empty lines.
func splitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	parts := strings.Split(string(data), "\n")
	lines := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSuffix(part, "\r")
		if part == "" {
			continue
		}
		lines = append(lines, part)
	}
	return lines
}
