package rfc5322

import "github.com/mailit-dev/smtpsink/internal/cursor"

// This file re-exports grammar primitives that the rfcmime package needs
// to reuse (CFWS and quoted-string are identical between RFC 5322 and the
// MIME header grammar of RFC 2045) without duplicating their definitions.

// CFWS parses RFC 5322 "comment or folding whitespace".
func CFWS(c *cursor.Cursor) ([]byte, error) { return cfws(c) }

// QuotedString parses an RFC 5322 quoted-string and returns its interior,
// located at its first byte, not yet unescaped.
func QuotedString(c *cursor.Cursor) (cursor.Located[[]byte], error) { return quoted(c) }

// Unquote unescapes a quoted-string interior span, as returned by
// QuotedString.
func Unquote(raw []byte) []byte { return unquote(raw) }

// ParseMsgID parses a single "<id-left@id-right>" message identifier, the
// same grammar RFC 2045 reuses verbatim for Content-ID.
func ParseMsgID(c *cursor.Cursor) (MsgID, error) { return msgID(c) }

// ParseUnstructured parses RFC 5322 "unstructured" text and returns it
// unfolded, for fields such as Content-Description that RFC 2045 defines
// as free text.
func ParseUnstructured(c *cursor.Cursor) (string, error) {
	span, err := unstructured(c)
	if err != nil {
		return "", err
	}
	return string(unfold(span)), nil
}
