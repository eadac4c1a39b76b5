package streams

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultIdleTimeout is how long a checked-in stream survives without being
// presented again.
const DefaultIdleTimeout = 5 * time.Minute

var ErrInvalidBaton = errors.New("Invalid or expired baton")

// Registry maps live batons to streams. Presenting a baton removes the
// mapping, so two pipelines racing with the same baton serialize naturally:
// the second finds nothing and fails. Expired streams are dropped lazily on
// checkout and by Sweep.
type Registry struct {
	mu          sync.Mutex
	streams     map[string]*Stream
	idleTimeout time.Duration
	now         func() time.Time
}

func NewRegistry(idleTimeout time.Duration) *Registry {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Registry{
		streams:     make(map[string]*Stream),
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// Checkout hands a stream to the caller. An empty baton mints a fresh
// stream; otherwise the baton is consumed and its stream returned. Unknown
// and expired batons both fail with ErrInvalidBaton, creating nothing.
func (r *Registry) Checkout(baton string) (*Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if baton == "" {
		return newStream(now), nil
	}

	stream, ok := r.streams[baton]
	if !ok {
		return nil, ErrInvalidBaton
	}
	delete(r.streams, baton)
	if now.Sub(stream.lastUsed) > r.idleTimeout {
		return nil, ErrInvalidBaton
	}
	return stream, nil
}

// Checkin returns a stream to the registry under a freshly minted baton and
// resets its idle clock.
func (r *Registry) Checkin(stream *Stream) (string, error) {
	baton, err := mintBaton()
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	stream.lastUsed = r.now()
	r.streams[baton] = stream
	return baton, nil
}

// Sweep drops every stream that has sat idle past the timeout. Intended to
// be called periodically; lazy eviction in Checkout keeps correctness even
// if it never runs.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	dropped := 0
	for baton, stream := range r.streams {
		if now.Sub(stream.lastUsed) > r.idleTimeout {
			delete(r.streams, baton)
			dropped++
		}
	}
	return dropped
}

// Len reports the number of checked-in streams.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.streams)
}

// mintBaton returns 32 bytes of cryptographically strong randomness,
// hex-encoded. Collisions are vanishingly unlikely and need no dedup check.
func mintBaton() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate baton: %w", err)
	}
	return hex.EncodeToString(b), nil
}
