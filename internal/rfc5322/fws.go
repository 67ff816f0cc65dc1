package rfc5322

import "github.com/mailit-dev/smtpsink/internal/cursor"

// crlfWSP atomically consumes one "CRLF 1*WSP" fold; it fails (without
// advancing) if the CRLF is not followed by at least one WSP, which is how
// fws tells a genuine fold apart from CRLF CRLF (the header/body separator)
// or a CRLF that starts the next header field.
func crlfWSP(c *cursor.Cursor) (struct{}, error) {
	return cursor.Atomic(c, func(c *cursor.Cursor) (struct{}, error) {
		if _, err := c.Expect([]byte("\r\n")); err != nil {
			return struct{}{}, err
		}
		if tail := c.TakeWhile(isWSP); len(tail) == 0 {
			return struct{}{}, cursor.Custom(c.At(), "fold with no trailing whitespace")
		}
		return struct{}{}, nil
	})
}

// fws parses RFC 5322 folding whitespace, including the obsolete form:
// optional leading WSP, then zero or more "CRLF 1*WSP" folds. It fails if
// no whitespace at all was consumed.
func fws(c *cursor.Cursor) ([]byte, error) {
	return c.TakeMatching(func(c *cursor.Cursor) error {
		consumed := len(c.TakeWhile(isWSP)) > 0
		for {
			if _, ok := cursor.Maybe(c, crlfWSP); !ok {
				break
			}
			consumed = true
		}
		if !consumed {
			return cursor.Custom(c.At(), "expected folding whitespace")
		}
		return nil
	})
}

// comment parses a parenthesised RFC 5322 comment, including nested
// comments and quoted-pairs, without retaining the content.
func comment(c *cursor.Cursor) ([]byte, error) {
	return c.TakeMatching(func(c *cursor.Cursor) error {
		if _, err := c.Expect([]byte("(")); err != nil {
			return err
		}
		for {
			cursor.Maybe(c, fws)
			if _, ok := cursor.Maybe(c, quotedPair); ok {
				continue
			}
			if _, ok := cursor.Maybe(c, comment); ok {
				continue
			}
			if text := c.TakeWhile(isCtext); len(text) > 0 {
				continue
			}
			break
		}
		cursor.Maybe(c, fws)
		_, err := c.Expect([]byte(")"))
		return err
	})
}

// quotedPair parses "\" (VCHAR / WSP).
func quotedPair(c *cursor.Cursor) ([]byte, error) {
	return c.TakeMatching(func(c *cursor.Cursor) error {
		if _, err := c.Expect([]byte("\\")); err != nil {
			return err
		}
		rest := c.Remaining()
		if len(rest) == 0 || !(isVCHAR(rest[0]) || isWSP(rest[0])) {
			return cursor.Custom(c.At(), "expected quoted-pair")
		}
		c.Advance(1)
		return nil
	})
}

// cfws parses "comment or folding whitespace": one or more
// ([fws] comment), optionally followed by fws, or bare fws.
func cfws(c *cursor.Cursor) ([]byte, error) {
	return c.TakeMatching(func(c *cursor.Cursor) error {
		sawFWS := false
		comments := 0
		for {
			if _, ok := cursor.Maybe(c, fws); ok {
				sawFWS = true
			}
			if _, ok := cursor.Maybe(c, comment); !ok {
				break
			}
			comments++
			sawFWS = false
		}
		if comments > 0 || sawFWS {
			return nil
		}
		return cursor.Custom(c.At(), "expected CFWS")
	})
}
