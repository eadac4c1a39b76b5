// Package streams owns the live Hrana streams and the batons that identify
// them. A baton is consumed when presented; the registry hands the stream to
// exactly one pipeline at a time and mints a fresh baton when the stream is
// checked back in.
package streams

import (
	"time"

	"github.com/google/uuid"
)

// Stream is one client session. It carries the per-stream SQL cache and the
// idle bookkeeping; it holds no database state of its own since the backend
// is always in autocommit.
type Stream struct {
	ID        string
	storedSQL map[int32]string
	lastUsed  time.Time
}

func newStream(now time.Time) *Stream {
	return &Stream{
		ID:        uuid.NewString(),
		storedSQL: make(map[int32]string),
		lastUsed:  now,
	}
}

// StoreSQL caches a SQL fragment under the given id. Last write wins on a
// duplicate id.
func (s *Stream) StoreSQL(id int32, sql string) {
	s.storedSQL[id] = sql
}

// SQL looks up a cached fragment.
func (s *Stream) SQL(id int32) (string, bool) {
	sql, ok := s.storedSQL[id]
	return sql, ok
}

// CloseSQL removes a cached fragment. Removing an unknown id is a no-op.
func (s *Stream) CloseSQL(id int32) {
	delete(s.storedSQL, id)
}
