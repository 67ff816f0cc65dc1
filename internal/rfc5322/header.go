package rfc5322

import (
	"strings"

	"github.com/mailit-dev/smtpsink/internal/cursor"
)

// Header is the tagged-union of every RFC 5322 header this grammar
// recognises by name. MIME headers (MIME-Version, Content-Type, ...) are
// intentionally absent: they fall through to Optional here and are
// reinterpreted by the rfcmime package, which keeps this package free of a
// dependency on MIME grammar.
type Header interface{ isHeader() }

type OriginationDate struct{ Value DateTime }
type From struct{ Mailboxes []Mailbox }
type Sender struct{ Mailbox Mailbox }
type ReplyTo struct{ Addresses []AddressOrGroup }
type To struct{ Addresses []AddressOrGroup }
type CarbonCopy struct{ Addresses []AddressOrGroup }
type BlindCarbonCopy struct{ Addresses []AddressOrGroup }
type MessageIDHeader struct{ ID MsgID }
type InReplyTo struct{ IDs []MsgID }
type References struct{ IDs []MsgID }
type Subject struct{ Text string }
type Comments struct{ Text string }
type Keywords struct{ Words []string }
type ResentDate struct{ Value DateTime }
type ResentFrom struct{ Mailboxes []Mailbox }
type ResentSender struct{ Mailbox Mailbox }
type ResentTo struct{ Addresses []AddressOrGroup }
type ResentCc struct{ Addresses []AddressOrGroup }
type ResentBcc struct{ Addresses []AddressOrGroup }
type ResentMessageID struct{ ID MsgID }
type Optional struct {
	Name string
	Body string
}

func (OriginationDate) isHeader()  {}
func (From) isHeader()             {}
func (Sender) isHeader()           {}
func (ReplyTo) isHeader()          {}
func (To) isHeader()               {}
func (CarbonCopy) isHeader()       {}
func (BlindCarbonCopy) isHeader()  {}
func (MessageIDHeader) isHeader()  {}
func (InReplyTo) isHeader()        {}
func (References) isHeader()       {}
func (Subject) isHeader()          {}
func (Comments) isHeader()         {}
func (Keywords) isHeader()         {}
func (ResentDate) isHeader()       {}
func (ResentFrom) isHeader()       {}
func (ResentSender) isHeader()     {}
func (ResentTo) isHeader()         {}
func (ResentCc) isHeader()         {}
func (ResentBcc) isHeader()        {}
func (ResentMessageID) isHeader()  {}
func (Optional) isHeader()         {}

// isFtext matches RFC 5322 ftext: printable ASCII except colon.
func isFtext(b byte) bool { return b >= 33 && b <= 126 && b != ':' }

func fieldName(c *cursor.Cursor) (string, error) {
	name := c.TakeWhile(isFtext)
	if len(name) == 0 {
		return "", cursor.Custom(c.At(), "expected field name")
	}
	c.TakeWhile(isWSP) // obsolete WSP before the colon
	if _, err := c.Expect([]byte(":")); err != nil {
		return "", err
	}
	return string(name), nil
}

func crlf(c *cursor.Cursor) ([]byte, error) { return c.Expect([]byte("\r\n")) }

func addressListHeader(c *cursor.Cursor) ([]AddressOrGroup, error) {
	if list, ok := cursor.Maybe(c, addressList); ok {
		return list, nil
	}
	// obsolete empty list: CFWS only.
	cursor.Maybe(c, cfws)
	return nil, nil
}

func mailboxListHeader(c *cursor.Cursor) ([]Mailbox, error) { return mailboxList(c) }

func phraseList(c *cursor.Cursor) ([]string, error) {
	first, err := phrase(c)
	if err != nil {
		return nil, err
	}
	out := []string{string(first)}
	for {
		p, ok := cursor.Maybe(c, func(c *cursor.Cursor) ([]byte, error) {
			if _, err := c.Expect([]byte(",")); err != nil {
				return nil, err
			}
			return phrase(c)
		})
		if !ok {
			break
		}
		out = append(out, string(p))
	}
	return out, nil
}

type fieldParser func(*cursor.Cursor) (Header, error)

var dispatch = map[string]fieldParser{
	"date": func(c *cursor.Cursor) (Header, error) {
		dt, err := dateTime(c)
		return OriginationDate{Value: dt}, err
	},
	"from": func(c *cursor.Cursor) (Header, error) {
		mbs, err := mailboxListHeader(c)
		return From{Mailboxes: mbs}, err
	},
	"sender": func(c *cursor.Cursor) (Header, error) {
		mb, err := mailbox(c)
		return Sender{Mailbox: mb}, err
	},
	"reply-to": func(c *cursor.Cursor) (Header, error) {
		a, err := addressListHeader(c)
		return ReplyTo{Addresses: a}, err
	},
	"to": func(c *cursor.Cursor) (Header, error) {
		a, err := addressListHeader(c)
		return To{Addresses: a}, err
	},
	"cc": func(c *cursor.Cursor) (Header, error) {
		a, err := addressListHeader(c)
		return CarbonCopy{Addresses: a}, err
	},
	"bcc": func(c *cursor.Cursor) (Header, error) {
		a, err := addressListHeader(c)
		return BlindCarbonCopy{Addresses: a}, err
	},
	"message-id": func(c *cursor.Cursor) (Header, error) {
		id, err := msgID(c)
		return MessageIDHeader{ID: id}, err
	},
	"in-reply-to": func(c *cursor.Cursor) (Header, error) {
		ids, err := msgIDList(c)
		return InReplyTo{IDs: ids}, err
	},
	"references": func(c *cursor.Cursor) (Header, error) {
		ids, err := msgIDList(c)
		return References{IDs: ids}, err
	},
	"subject": func(c *cursor.Cursor) (Header, error) {
		text, err := unstructured(c)
		return Subject{Text: strings.TrimLeft(string(unfold(text)), " \t")}, err
	},
	"comments": func(c *cursor.Cursor) (Header, error) {
		text, err := unstructured(c)
		return Comments{Text: string(unfold(text))}, err
	},
	"keywords": func(c *cursor.Cursor) (Header, error) {
		words, err := phraseList(c)
		return Keywords{Words: words}, err
	},
	"resent-date": func(c *cursor.Cursor) (Header, error) {
		dt, err := dateTime(c)
		return ResentDate{Value: dt}, err
	},
	"resent-from": func(c *cursor.Cursor) (Header, error) {
		mbs, err := mailboxListHeader(c)
		return ResentFrom{Mailboxes: mbs}, err
	},
	"resent-sender": func(c *cursor.Cursor) (Header, error) {
		mb, err := mailbox(c)
		return ResentSender{Mailbox: mb}, err
	},
	"resent-to": func(c *cursor.Cursor) (Header, error) {
		a, err := addressListHeader(c)
		return ResentTo{Addresses: a}, err
	},
	"resent-cc": func(c *cursor.Cursor) (Header, error) {
		a, err := addressListHeader(c)
		return ResentCc{Addresses: a}, err
	},
	"resent-bcc": func(c *cursor.Cursor) (Header, error) {
		a, err := addressListHeader(c)
		return ResentBcc{Addresses: a}, err
	},
	"resent-message-id": func(c *cursor.Cursor) (Header, error) {
		id, err := msgID(c)
		return ResentMessageID{ID: id}, err
	},
}

// Field dispatches on the header's field name (case-insensitive) and
// parses its body, consuming the trailing CRLF. Unknown names, and MIME
// headers this package does not itself understand, are returned as
// Optional with their raw (unfolded) body.
func Field(c *cursor.Cursor) (cursor.Located[Header], error) {
	at := c.At()
	name, err := fieldName(c)
	if err != nil {
		return cursor.Located[Header]{}, err
	}
	parser, known := dispatch[strings.ToLower(name)]
	if !known {
		body, err := unstructured(c)
		if err != nil {
			return cursor.Located[Header]{}, err
		}
		if _, err := crlf(c); err != nil {
			return cursor.Located[Header]{}, err
		}
		return cursor.Located[Header]{At: at, Item: Optional{Name: name, Body: string(unfold(body))}}, nil
	}
	h, err := parser(c)
	if err != nil {
		return cursor.Located[Header]{}, err
	}
	if _, err := crlf(c); err != nil {
		return cursor.Located[Header]{}, err
	}
	return cursor.Located[Header]{At: at, Item: h}, nil
}

// OptionalField skips the current line as a raw "name: unstructured CRLF",
// regardless of whether the name is recognised. It is the recovery rule
// invoked after a Field parse failure: it lets the caller continue past a
// malformed field instead of aborting the whole message.
func OptionalField(c *cursor.Cursor) (cursor.Located[Header], error) {
	at := c.At()
	name, err := fieldName(c)
	if err != nil {
		return cursor.Located[Header]{}, err
	}
	body, err := unstructured(c)
	if err != nil {
		return cursor.Located[Header]{}, err
	}
	if _, err := crlf(c); err != nil {
		return cursor.Located[Header]{}, err
	}
	return cursor.Located[Header]{At: at, Item: Optional{Name: name, Body: string(unfold(body))}}, nil
}
