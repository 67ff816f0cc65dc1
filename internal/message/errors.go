// Package message orchestrates RFC 5322 header parsing, trace-block and
// resent-block collection, required-header enforcement, and MIME body
// hand-off into a single ParsedMessage, accumulating non-fatal errors
// along the way instead of aborting at the first malformed field.
package message

import "github.com/mailit-dev/smtpsink/internal/cursor"

// Errors accumulates Located diagnostics across a message parse,
// including parses of nested buffers (multipart parts) whose own cursors
// start at offset zero. Nested calls report coordinates biased back into
// the outer message via nested(at).
type Errors struct {
	items *[]cursor.Located[string]
	bias  cursor.Location
}

// NewErrors returns a fresh, empty accumulator rooted at offset zero.
func NewErrors() *Errors {
	items := make([]cursor.Located[string], 0)
	return &Errors{items: &items}
}

// Add records a diagnostic at the given location, translated through this
// accumulator's bias.
func (e *Errors) Add(at cursor.Location, msg string) {
	*e.items = append(*e.items, cursor.Located[string]{At: e.translate(at), Item: msg})
}

// Items returns every recorded diagnostic so far, in the order recorded.
func (e *Errors) Items() []cursor.Located[string] {
	return *e.items
}

// Nested returns a scope that shares this accumulator's underlying list
// but biases every location reported through it by at, which is at's
// position in the (already-biased) outer coordinate space. This is how a
// multipart part's header/body errors end up reporting offsets into the
// original message buffer rather than into the part's own raw slice.
func (e *Errors) Nested(at cursor.Location) *Errors {
	return &Errors{items: e.items, bias: e.translate(at)}
}

// translate composes a location reported against this accumulator's own
// (already offset-zero) coordinate space with its bias, which is itself
// already expressed in the root coordinate space.
func (e *Errors) translate(at cursor.Location) cursor.Location {
	return cursor.Compose(e.bias, at)
}
