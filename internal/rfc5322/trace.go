package rfc5322

import "github.com/mailit-dev/smtpsink/internal/cursor"

// ReturnPath is the "Return-Path" trace field. Addr is nil for the empty
// form ("<>"), which is how MAIL FROM:<> envelopes are recorded.
type ReturnPath struct{ Addr *Address }

func (ReturnPath) isHeader() {}

// Received is one parsed "Received" trace field. Tokens holds the
// whitespace-separated name-value tokens preceding the optional trailing
// date-time (the "FROM domain", "BY domain", "VIA ...", "WITH ...", "ID
// ...", "FOR ..." clauses), kept as opaque strings rather than a further
// sub-grammar: RFC 5322 itself defers their exact shape to RFC 5321.
type Received struct {
	Tokens []string
	Date   *DateTime
}

func (Received) isHeader() {}

func emptyAddrSpec(c *cursor.Cursor) (Address, error) {
	cursor.Maybe(c, cfws)
	_, err := c.TakeMatching(func(c *cursor.Cursor) error {
		if _, err := c.Expect([]byte("<")); err != nil {
			return err
		}
		_, err := c.Expect([]byte(">"))
		return err
	})
	if err != nil {
		return Address{}, err
	}
	cursor.Maybe(c, cfws)
	return Address{}, nil
}

// parseReturnPath parses the body of a Return-Path field: angle-addr / "<>".
func parseReturnPath(c *cursor.Cursor) (ReturnPath, error) {
	if _, err := cursor.Atomic(c, emptyAddrSpec); err == nil {
		return ReturnPath{}, nil
	}
	addr, err := angleAddr(c)
	if err != nil {
		return ReturnPath{}, cursor.Custom(c.At(), "expected return-path")
	}
	return ReturnPath{Addr: &addr}, nil
}

// ReturnPathField parses a full "Return-Path:" field including its
// trailing CRLF, for use by the trace-block collector.
func ReturnPathField(c *cursor.Cursor) (ReturnPath, error) {
	return fieldNamed(c, "return-path", parseReturnPath)
}

func isReceivedTokenChar(b byte) bool {
	return isVCHAR(b) && b != ';'
}

func receivedToken(c *cursor.Cursor) (string, error) {
	cursor.Maybe(c, cfws)
	text := c.TakeWhile(isReceivedTokenChar)
	if len(text) == 0 {
		return "", cursor.Custom(c.At(), "expected received-token")
	}
	cursor.Maybe(c, cfws)
	return string(text), nil
}

// parseReceived parses the body of a Received field: zero or more
// whitespace-separated tokens, then an optional ";" date-time.
func parseReceived(c *cursor.Cursor) (Received, error) {
	var rec Received
	for {
		tok, ok := cursor.Maybe(c, receivedToken)
		if !ok {
			break
		}
		rec.Tokens = append(rec.Tokens, tok)
	}
	if _, ok := cursor.Maybe(c, func(c *cursor.Cursor) (struct{}, error) {
		_, err := c.Expect([]byte(";"))
		return struct{}{}, err
	}); ok {
		dt, err := dateTime(c)
		if err != nil {
			return Received{}, err
		}
		rec.Date = &dt
	}
	return rec, nil
}

// ReceivedField parses a full "Received:" field including its trailing
// CRLF, for use by the trace-block collector.
func ReceivedField(c *cursor.Cursor) (Received, error) {
	return fieldNamed(c, "received", parseReceived)
}

// fieldNamed matches a specific case-insensitive field name, then runs
// body against what follows, then consumes the trailing CRLF. It fails
// (without advancing, via TakeMatching) if the name does not match.
func fieldNamed[T any](c *cursor.Cursor, want string, body func(*cursor.Cursor) (T, error)) (T, error) {
	var zero, result T
	_, err := c.TakeMatching(func(c *cursor.Cursor) error {
		name, err := fieldName(c)
		if err != nil {
			return err
		}
		if !equalFold(name, want) {
			return cursor.Custom(c.At(), "expected field %q, got %q", want, name)
		}
		v, err := body(c)
		if err != nil {
			return err
		}
		if _, err := crlf(c); err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		return zero, err
	}
	return result, nil
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// unrecognizedOptionalField consumes one field only if its name is not one
// of the structured headers this package dispatches on (and not
// return-path/received, which the trace-block loop already tried). This is
// how a TraceBlock's interstitial "arbitrary optional headers" avoid
// swallowing the message's real From/Subject/To/... fields, which belong
// to the ordinary per-field loop that runs after trace collection.
func unrecognizedOptionalField(c *cursor.Cursor) (cursor.Located[Header], error) {
	at := c.At()
	name, err := fieldName(c)
	if err != nil {
		return cursor.Located[Header]{}, err
	}
	lower := name
	if _, known := dispatch[lowerASCII(lower)]; known {
		return cursor.Located[Header]{}, cursor.Custom(at, "%q is a structured header, not optional", name)
	}
	if equalFold(name, "return-path") || equalFold(name, "received") {
		return cursor.Located[Header]{}, cursor.Custom(at, "%q belongs to trace collection", name)
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

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// ResentInfo is one "resent block": the group of Resent-* headers that
// describe a single act of resending a message. Per RFC 5322, a
// well-formed resent block carries at least Resent-Date and Resent-From;
// this grammar parses a block as soon as it sees any Resent-* field and
// leaves enforcing that requirement to the message orchestrator, which
// treats a missing one as an accumulated (non-fatal) error rather than
// rejecting trace collection outright.
type ResentInfo struct {
	Date      *DateTime
	From      []Mailbox
	Sender    *Mailbox
	To        []AddressOrGroup
	Cc        []AddressOrGroup
	Bcc       []AddressOrGroup
	MessageID *MsgID
}

var resentNames = map[string]bool{
	"resent-date": true, "resent-from": true, "resent-sender": true,
	"resent-to": true, "resent-cc": true, "resent-bcc": true, "resent-message-id": true,
}

// resentBlock greedily consumes consecutive Resent-* fields (in whatever
// order they appear; the first occurrence of each is kept, and a repeat
// within the same block is consumed and ignored without an error) until a
// non-resent field is reached. It fails, consuming nothing, if the next field is not a
// Resent-* header at all.
func resentBlock(c *cursor.Cursor) (ResentInfo, error) {
	var info ResentInfo
	seen := false
	for {
		isResent, err := resentFieldName(c)
		if err != nil || !isResent {
			break
		}
		loc, ok := cursor.Maybe(c, Field)
		if !ok {
			break
		}
		switch h := loc.Item.(type) {
		case ResentDate:
			if info.Date == nil {
				v := h.Value
				info.Date = &v
			}
		case ResentFrom:
			if info.From == nil {
				info.From = h.Mailboxes
			}
		case ResentSender:
			if info.Sender == nil {
				v := h.Mailbox
				info.Sender = &v
			}
		case ResentTo:
			if info.To == nil {
				info.To = h.Addresses
			}
		case ResentCc:
			if info.Cc == nil {
				info.Cc = h.Addresses
			}
		case ResentBcc:
			if info.Bcc == nil {
				info.Bcc = h.Addresses
			}
		case ResentMessageID:
			if info.MessageID == nil {
				v := h.ID
				info.MessageID = &v
			}
		default:
			// Not a resent-* header: this field belongs to whatever comes
			// after trace collection. There is no way to "unconsume" it
			// through Maybe(Field), so resentBlock only ever looks ahead
			// via resentFieldName before calling Field (see below); reaching
			// here would be a logic error in that lookahead.
			panic("resentBlock: Field returned a non-resent header after lookahead")
		}
		seen = true
	}
	if !seen {
		return ResentInfo{}, cursor.Custom(c.At(), "expected a resent-* field")
	}
	return info, nil
}

// resentFieldName peeks at the next field's name (without consuming it on
// failure) to decide whether resentBlock should attempt it at all.
func resentFieldName(c *cursor.Cursor) (bool, error) {
	peek := *c
	name, err := fieldName(&peek)
	if err != nil {
		return false, err
	}
	return resentNames[lowerASCII(name)], nil
}

// TraceBlock is one optional-Return-Path / one-or-more-Received group,
// plus any interstitial unrecognised headers and zero or more resent
// blocks found before the next trace field or the end of trace
// collection.
type TraceBlock struct {
	ReturnPath *ReturnPath
	Received   []Received
	Resent     []ResentInfo
	Fields     []cursor.Located[Header]
}

// TraceBlocks repeatedly collects trace blocks until one is found with no
// trace fields at all, per the grammar's "*(trace *optional-field
// *(resent-*))" shape: a block with zero Received records (and no
// Return-Path) signals that header collection should fall through to the
// ordinary per-field loop.
func TraceBlocks(c *cursor.Cursor) []TraceBlock {
	var blocks []TraceBlock
	for {
		var block TraceBlock
		if rp, err := cursor.Atomic(c, ReturnPathField); err == nil {
			block.ReturnPath = &rp
		}
		for {
			rec, err := cursor.Atomic(c, ReceivedField)
			if err != nil {
				break
			}
			block.Received = append(block.Received, rec)
		}
		if block.ReturnPath == nil && len(block.Received) == 0 {
			return blocks
		}
		for {
			if ri, err := resentBlock(c); err == nil {
				block.Resent = append(block.Resent, ri)
				continue
			}
			f, err := cursor.Atomic(c, unrecognizedOptionalField)
			if err != nil {
				break
			}
			block.Fields = append(block.Fields, f)
		}
		blocks = append(blocks, block)
	}
}
