package message

import (
	"bytes"
	"fmt"

	"github.com/mailit-dev/smtpsink/internal/cursor"
	"github.com/mailit-dev/smtpsink/internal/rfc5322"
)

// FatalError is returned by Parse when the message cannot be stored at
// all: a required header is missing, or the MIME body structure itself
// could not be decoded. Non-fatal problems (duplicate headers, malformed
// optional fields, charset degradation) are instead recorded in the
// returned ParsedMessage's Errors and do not prevent storage.
type FatalError struct {
	At      cursor.Location
	Message string
	// Err is the underlying error when the fatal condition originated in
	// a nested decoder (transfer/charset decode, multipart split) rather
	// than a missing-header check; nil otherwise. Callers that need to
	// distinguish the submission error kind use errors.As/Is against it.
	Err error
}

func (e *FatalError) Error() string { return fmt.Sprintf("%s: %s", e.At, e.Message) }

func (e *FatalError) Unwrap() error { return e.Err }

// separateHeaderBody splits data at its first CRLF CRLF:
// headerBytes is every field up to and including the last field's own
// trailing CRLF; bodyBytes starts immediately after the blank-line
// separator. If no separator is found, the whole buffer is treated as
// headers with an empty body.
func separateHeaderBody(data []byte) (headerBytes, bodyBytes []byte, bodyOffset int, hasBody bool) {
	idx := bytes.Index(data, []byte("\r\n\r\n"))
	if idx < 0 {
		return data, nil, len(data), false
	}
	return data[:idx+2], data[idx+4:], idx + 4, true
}

// Parse parses a complete message buffer into a ParsedMessage. It returns
// a FatalError only when a required header is missing or the
// declared MIME body could not be structurally decoded; every other
// problem is accumulated into the returned message's Errors field.
func Parse(data []byte) (ParsedMessage, error) {
	headerBytes, bodyBytes, bodyOffset, _ := separateHeaderBody(data)
	errs := NewErrors()

	c := cursor.New(headerBytes)

	var pm ParsedMessage
	for _, block := range rfc5322.TraceBlocks(c) {
		pm.Traces = append(pm.Traces, Trace{
			ReturnPath: block.ReturnPath,
			Received:   block.Received,
			Resent:     block.Resent,
		})
		for _, ri := range block.Resent {
			if ri.Date == nil || ri.From == nil {
				errs.Add(c.At(), "resent block missing Resent-Date or Resent-From")
			}
		}
		for _, f := range block.Fields {
			applyHeader(&pm, errs, f)
		}
	}

	var mh mimeHeaders
	fields := collectHeaders(c, errs, &mh)
	var haveDate, haveFrom bool
	for _, f := range fields {
		applyHeader(&pm, errs, f)
		switch f.Item.(type) {
		case rfc5322.OriginationDate:
			haveDate = true
		case rfc5322.From:
			haveFrom = true
		}
	}

	if !haveDate {
		return pm, &FatalError{At: cursor.Location{Line: 1, Column: 1}, Message: "missing required header Date"}
	}
	if !haveFrom || len(pm.From) == 0 {
		return pm, &FatalError{At: cursor.Location{Line: 1, Column: 1}, Message: "missing required header From"}
	}

	if mh.version != nil {
		ct := defaultContentType()
		if mh.contentType != nil {
			ct = *mh.contentType
		}
		bodyAt := cursor.LocationAt(data, bodyOffset)
		bodyErrs := errs.Nested(bodyAt)
		unparsed := Unparsed{
			Raw:              cursor.Located[[]byte]{At: bodyAt, Item: bodyBytes},
			Version:          mh.version,
			ContentType:      ct,
			TransferEncoding: mh.transferEncoding,
		}
		// buildEntity takes locations relative to bodyErrs' frame, which
		// starts at the body's first byte.
		local := unparsed
		local.Raw.At = cursor.Location{Line: 1, Column: 1}
		entity, err := buildEntity(bodyErrs, local, false)
		if err != nil {
			pm.Errors = errs.Items()
			return pm, &FatalError{At: bodyAt, Message: err.Error(), Err: err}
		}
		pm.Body = Body{Kind: BodyMime, Mime: unparsed, Entity: entity}
	} else {
		pm.Body = Body{Kind: BodyUnknown, Raw: bodyBytes}
	}

	pm.Errors = errs.Items()
	return pm, nil
}

// applyHeader installs a recognised header into pm, enforcing set_once
// (first value wins; a repeat is recorded as a non-fatal duplicate
// error) for every header the grammar allows only once.
func applyHeader(pm *ParsedMessage, errs *Errors, f cursor.Located[rfc5322.Header]) {
	dup := func(name string) { errs.Add(f.At, fmt.Sprintf("duplicate header %s", name)) }

	switch h := f.Item.(type) {
	case rfc5322.OriginationDate:
		if pm.OriginationDate != (rfc5322.DateTime{}) {
			dup("Date")
			return
		}
		pm.OriginationDate = h.Value
	case rfc5322.From:
		if pm.From != nil {
			dup("From")
			return
		}
		pm.From = h.Mailboxes
	case rfc5322.Sender:
		if pm.Sender != nil {
			dup("Sender")
			return
		}
		v := h.Mailbox
		pm.Sender = &v
	case rfc5322.ReplyTo:
		if pm.ReplyTo != nil {
			dup("Reply-To")
			return
		}
		pm.ReplyTo = h.Addresses
	case rfc5322.To:
		if pm.To != nil {
			dup("To")
			return
		}
		pm.To = h.Addresses
	case rfc5322.CarbonCopy:
		if pm.Cc != nil {
			dup("Cc")
			return
		}
		pm.Cc = h.Addresses
	case rfc5322.BlindCarbonCopy:
		if pm.Bcc != nil {
			dup("Bcc")
			return
		}
		pm.Bcc = h.Addresses
	case rfc5322.MessageIDHeader:
		if pm.ID != nil {
			dup("Message-ID")
			return
		}
		v := h.ID
		pm.ID = &v
	case rfc5322.InReplyTo:
		if pm.InReplyTo != nil {
			dup("In-Reply-To")
			return
		}
		pm.InReplyTo = h.IDs
	case rfc5322.References:
		if pm.References != nil {
			dup("References")
			return
		}
		pm.References = h.IDs
	case rfc5322.Subject:
		if pm.Subject != nil {
			dup("Subject")
			return
		}
		s := h.Text
		pm.Subject = &s
	case rfc5322.Comments:
		pm.Comments = append(pm.Comments, h.Text)
	case rfc5322.Keywords:
		pm.Keywords = append(pm.Keywords, h.Words...)
	case rfc5322.Optional:
		// Unrecognised headers (including MIME headers, folded into mh by
		// collectHeaders) carry no further meaning at this layer.
		_ = h
	}
}
