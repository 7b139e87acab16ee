package testsupport

import (
	"fmt"
	"os"
	"testing"
)

// MainLine renders a primary-log main line with the given manager
// identifier, severity, and message.
func MainLine(identifier, severity, message string) string {
	return fmt.Sprintf("%s (0), 2024.03.15 09:30:00.125, SYS, %s, 1, %s", identifier, severity, message)
}

// AppendLines appends each line to path with a trailing newline, creating
// the file when needed.
func AppendLines(t testing.TB, path string, lines ...string) {
	t.Helper()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	for _, line := range lines {
		if _, err := f.WriteString(line + "\n"); err != nil {
			t.Fatalf("append to %s: %v", path, err)
		}
	}
}
