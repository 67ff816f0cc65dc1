package rfc5322

import "github.com/mailit-dev/smtpsink/internal/cursor"

// MsgID is a parsed "<id-left@id-right>" message identifier.
type MsgID struct {
	Left           string
	Right          string
	RightIsLiteral bool
}

func idLeft(c *cursor.Cursor) (string, error) {
	if span, err := cursor.Atomic(c, dotAtom); err == nil {
		return string(span), nil
	}
	q, err := quoted(c)
	if err != nil {
		return "", cursor.Custom(c.At(), "expected id-left")
	}
	return string(unquote(q.Item)), nil
}

// msgID parses "<id-left@id-right>", tolerating surrounding CFWS.
func msgID(c *cursor.Cursor) (MsgID, error) {
	cursor.Maybe(c, cfws)
	var id MsgID
	_, err := c.TakeMatching(func(c *cursor.Cursor) error {
		if _, err := c.Expect([]byte("<")); err != nil {
			return err
		}
		left, err := idLeft(c)
		if err != nil {
			return err
		}
		if _, err := c.Expect([]byte("@")); err != nil {
			return err
		}
		right, isLiteral, err := domain(c)
		if err != nil {
			return err
		}
		id = MsgID{Left: left, Right: right, RightIsLiteral: isLiteral}
		_, err = c.Expect([]byte(">"))
		return err
	})
	if err != nil {
		return MsgID{}, err
	}
	cursor.Maybe(c, cfws)
	return id, nil
}

func msgIDList(c *cursor.Cursor) ([]MsgID, error) {
	var out []MsgID
	for {
		id, ok := cursor.Maybe(c, msgID)
		if !ok {
			break
		}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, cursor.Custom(c.At(), "expected at least one msg-id")
	}
	return out, nil
}
