// Package store is the reference in-memory implementation of the
// submit/list/get/subscribe capability the SMTP session engine depends on.
// It owns the only shared mutable state in the system: everything else
// (connections, parser buffers) is owned exclusively by its goroutine.
package store

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mailit-dev/smtpsink/internal/message"
	"github.com/mailit-dev/smtpsink/internal/multipart"
	"github.com/mailit-dev/smtpsink/internal/rfcmime"
)

// SubmitError distinguishes why Submit rejected a message, so callers can
// map it to the appropriate SMTP response code for each kind.
type SubmitError int

const (
	// ErrSyntax covers a fatal grammar violation: a missing required
	// header or an otherwise unparsable message.
	ErrSyntax SubmitError = iota
	// ErrDuplicateMailID is returned when the message's own Message-ID
	// collides with one already stored.
	ErrDuplicateMailID
	// ErrEncoding covers a fatal transfer-decode failure.
	ErrEncoding
	// ErrMime covers a fatal multipart structure failure (missing
	// boundary, no parts, unterminated).
	ErrMime
)

func (e SubmitError) Error() string {
	switch e {
	case ErrSyntax:
		return "syntax error"
	case ErrDuplicateMailID:
		return "duplicate mail id"
	case ErrEncoding:
		return "encoding error"
	case ErrMime:
		return "mime error"
	default:
		return "submit error"
	}
}

// subscriberBuffer is the bounded per-subscriber channel capacity; a
// slow subscriber starts dropping its oldest unread value past this.
const subscriberBuffer = 16

// Store holds every accepted message in memory and fans out new
// insertions to subscribers. The zero value is not usable; construct
// with New.
type Store struct {
	mu   sync.RWMutex
	byID map[string]message.StoredMessage
	// order preserves insertion order for List, since byID does not.
	order []string

	subMu sync.Mutex
	subs  map[chan message.StoredMessage]struct{}

	onLag func()
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		byID: make(map[string]message.StoredMessage),
		subs: make(map[chan message.StoredMessage]struct{}),
	}
}

// OnLag installs a callback invoked every time a slow subscriber's buffer
// is drained to make room for a new value, for observability.Metrics to
// count. Not safe to call concurrently with Submit.
func (s *Store) OnLag(f func()) {
	s.onLag = f
}

// Submit parses raw as a complete message and, on success, stores it
// under a fresh or message-supplied id. errors.Is can test the returned
// error against the SubmitError constants.
func (s *Store) Submit(raw []byte) (string, error) {
	pm, err := message.Parse(raw)
	if err != nil {
		return "", classifyParseError(err)
	}

	id, explicit := candidateID(pm)

	s.mu.Lock()
	if explicit {
		if _, exists := s.byID[id]; exists {
			s.mu.Unlock()
			return "", ErrDuplicateMailID
		}
	}
	stored := pm.ToStored(id)
	s.byID[id] = stored
	s.order = append(s.order, id)
	s.mu.Unlock()

	s.broadcast(stored)
	return id, nil
}

// candidateID returns the message's own Message-ID (rendered in full
// "left@right" form, so it cannot collide with a generated uuid) when
// present, else a freshly generated uuid.
func candidateID(pm message.ParsedMessage) (id string, explicit bool) {
	if pm.ID != nil && pm.ID.Left != "" {
		return pm.ID.Left + "@" + pm.ID.Right, true
	}
	return uuid.NewString(), false
}

// classifyParseError maps a message.Parse failure to the SubmitError kind
// the SMTP layer reports on the wire: a missing-header failure
// is a syntax error, a transfer/charset decode failure is an encoding
// error, and a multipart structure failure is a MIME error.
func classifyParseError(err error) error {
	var fe *message.FatalError
	if !errors.As(err, &fe) || fe.Err == nil {
		return ErrSyntax
	}
	var decodeErr *rfcmime.DecodeError
	if errors.As(fe.Err, &decodeErr) {
		return ErrEncoding
	}
	if errors.Is(fe.Err, multipart.ErrNoParts) || errors.Is(fe.Err, multipart.ErrUnterminated) || errors.Is(fe.Err, multipart.ErrNoTerminator) {
		return ErrMime
	}
	if strings.Contains(fe.Err.Error(), "boundary") {
		return ErrMime
	}
	return ErrSyntax
}

// List returns every stored message, oldest first. The returned slice is
// a snapshot; mutating it does not affect the store.
func (s *Store) List() []message.StoredMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]message.StoredMessage, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Get returns the stored message with the given id, if any.
func (s *Store) Get(id string) (message.StoredMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sm, ok := s.byID[id]
	return sm, ok
}

// Subscribe registers a new subscriber and returns a channel of future
// insertions (not the backlog already in the store: call List first for
// that). The channel is closed, and the subscription removed, when ctx is
// done.
func (s *Store) Subscribe(ctx context.Context) <-chan message.StoredMessage {
	ch := make(chan message.StoredMessage, subscriberBuffer)

	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()

	go func() {
		<-ctx.Done()
		s.subMu.Lock()
		delete(s.subs, ch)
		s.subMu.Unlock()
		close(ch)
	}()

	return ch
}

// broadcast fans sm out to every live subscriber. A subscriber whose
// buffer is full has its oldest unread value dropped to make room,
// matching a broadcast channel's drop-oldest lag semantics instead of
// blocking the submitting connection on a slow reader.
func (s *Store) broadcast(sm message.StoredMessage) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- sm:
		default:
			select {
			case <-ch:
				if s.onLag != nil {
					s.onLag()
				}
			default:
			}
			select {
			case ch <- sm:
			default:
				// Buffer refilled by another goroutine between the drain
				// and the retry; give up silently rather than block.
			}
		}
	}
}
