package archive

import (
	"context"
	"log/slog"
	"time"

	"bobbin/internal/hub"
	"bobbin/internal/logging"
)

// Sink adapts the store to the hub's sink interface. Insert failures are
// logged and swallowed so a broken archive never stalls ingestion.
type Sink struct {
	store   *Store
	session string
	logger  *slog.Logger
}

// NewSink returns a sink archiving every entry under the given session.
func NewSink(store *Store, session string, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Sink{store: store, session: session, logger: logger}
}

// Consume archives one published entry.
func (s *Sink) Consume(entry hub.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.store.InsertEvent(ctx, s.session, entry.Event); err != nil {
		logging.WarnWithContext(s.logger, "failed to archive event", "archive_insert_failed",
			logging.String(logging.FieldErrorHint, "check archive file permissions and disk space"),
			logging.String(logging.FieldImpact, "event is still streamed but missing from the archive"),
			logging.Uint64("seq", entry.Seq),
			logging.Error(err))
	}
}
