package rfc5322

import (
	"bytes"

	"github.com/mailit-dev/smtpsink/internal/cursor"
)

// atom parses [CFWS] 1*atext [CFWS] and returns the atext span.
func atom(c *cursor.Cursor) ([]byte, error) {
	cursor.Maybe(c, cfws)
	text := c.TakeWhile(isAtext)
	if len(text) == 0 {
		return nil, cursor.Custom(c.At(), "expected atom")
	}
	cursor.Maybe(c, cfws)
	return text, nil
}

// dotAtom parses [CFWS] dot-atom-text [CFWS] and returns the dot-atom-text
// span (the run of atext/"." bytes, with no surrounding CFWS).
func dotAtom(c *cursor.Cursor) ([]byte, error) {
	cursor.Maybe(c, cfws)
	span, err := c.TakeMatching(func(c *cursor.Cursor) error {
		if first := c.TakeWhile(isAtext); len(first) == 0 {
			return cursor.Custom(c.At(), "expected dot-atom-text")
		}
		for {
			saved, ok := cursor.Maybe(c, func(c *cursor.Cursor) (bool, error) {
				if _, err := c.Expect([]byte(".")); err != nil {
					return false, err
				}
				if more := c.TakeWhile(isAtext); len(more) == 0 {
					return false, cursor.Custom(c.At(), "expected atext after '.'")
				}
				return true, nil
			})
			if !ok || !saved {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	cursor.Maybe(c, cfws)
	return span, nil
}

// quoted parses [CFWS] DQUOTE *([FWS] qcontent) [FWS] DQUOTE [CFWS] and
// returns the interior span (between the quotes, not yet unescaped),
// located at its first byte.
func quoted(c *cursor.Cursor) (cursor.Located[[]byte], error) {
	cursor.Maybe(c, cfws)
	var result cursor.Located[[]byte]
	_, err := c.TakeMatching(func(c *cursor.Cursor) error {
		if _, err := c.Expect([]byte("\"")); err != nil {
			return err
		}
		start := c.At()
		for {
			cursor.Maybe(c, fws)
			if _, ok := cursor.Maybe(c, quotedPair); ok {
				continue
			}
			if text := c.TakeWhile(isQtext); len(text) > 0 {
				continue
			}
			break
		}
		end := c.At().Offset
		result = cursor.Located[[]byte]{At: start, Item: c.Data()[start.Offset:end]}
		cursor.Maybe(c, fws)
		_, err := c.Expect([]byte("\""))
		return err
	})
	if err != nil {
		return cursor.Located[[]byte]{}, err
	}
	cursor.Maybe(c, cfws)
	return result, nil
}

// unquote collapses CRLF folds (each "CRLF 1*WSP" becomes the whitespace
// that followed it) and strips backslash escape prefixes from a
// quoted-string's interior span.
func unquote(raw []byte) []byte {
	if !bytes.ContainsAny(raw, "\\\r") {
		return raw
	}
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		switch {
		case raw[i] == '\\' && i+1 < len(raw):
			out = append(out, raw[i+1])
			i++
		case raw[i] == '\r' && i+1 < len(raw) && raw[i+1] == '\n':
			i++ // drop the CRLF; following WSP (if any) is preserved verbatim
		default:
			out = append(out, raw[i])
		}
	}
	return out
}

// word parses atom / quoted-string, returning the unquoted text either way.
func word(c *cursor.Cursor) ([]byte, error) {
	if span, err := cursor.Atomic(c, atom); err == nil {
		return span, nil
	}
	q, err := quoted(c)
	if err != nil {
		return nil, cursor.Custom(c.At(), "expected word")
	}
	return unquote(q.Item), nil
}

// phrase parses 1*word, joining words with a single space.
func phrase(c *cursor.Cursor) ([]byte, error) {
	first, err := word(c)
	if err != nil {
		return nil, err
	}
	words := [][]byte{first}
	for {
		w, ok := cursor.Maybe(c, word)
		if !ok {
			break
		}
		words = append(words, w)
	}
	return bytes.Join(words, []byte(" ")), nil
}

// unstructured parses "unstructured" text (any mix of FWS and VCHAR) and
// returns the raw foldable span, unfolded by the caller via unfold.
func unstructured(c *cursor.Cursor) ([]byte, error) {
	return c.TakeMatching(func(c *cursor.Cursor) error {
		for {
			if _, ok := cursor.Maybe(c, crlfWSP); ok {
				continue
			}
			span := c.TakeWhile(func(b byte) bool { return isVCHAR(b) || isWSP(b) })
			if len(span) == 0 {
				break
			}
		}
		return nil
	})
}

// unfold removes CRLF pairs from a span captured by unstructured (or any
// other folded production), leaving the surrounding whitespace intact.
func unfold(span []byte) []byte {
	if !bytes.Contains(span, []byte("\r\n")) {
		return span
	}
	return bytes.ReplaceAll(span, []byte("\r\n"), nil)
}
