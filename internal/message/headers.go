package message

import (
	"fmt"
	"strings"

	"github.com/mailit-dev/smtpsink/internal/cursor"
	"github.com/mailit-dev/smtpsink/internal/rfc5322"
	"github.com/mailit-dev/smtpsink/internal/rfcmime"
)

// mimeHeaders accumulates the MIME-specific headers recognised inside an
// Optional field (rfc5322 never dispatches these by name; see
// rfc5322.Header's doc comment), applying set_once semantics identically
// to the top-level structured headers.
type mimeHeaders struct {
	version          *rfcmime.Version
	contentType      *rfcmime.ContentType
	transferEncoding *rfcmime.TransferEncoding
	contentID        *rfc5322.MsgID
	description      *string
}

// collectHeaders parses fields from c until the header span is exhausted,
// recovering from a malformed field via OptionalField and recording the
// original error. It returns every header encountered, in order, with
// set_once duplicate accounting folded into errs; MIME headers (which
// rfc5322.Field always returns as Optional) are additionally parsed into
// mh.
func collectHeaders(c *cursor.Cursor, errs *Errors, mh *mimeHeaders) []cursor.Located[rfc5322.Header] {
	var out []cursor.Located[rfc5322.Header]
	for !c.AtEnd() {
		before := c.At()
		loc, err := cursor.Atomic(c, rfc5322.Field)
		if err != nil {
			recLoc, rerr := cursor.Atomic(c, rfc5322.OptionalField)
			if rerr != nil {
				if cerr, ok := err.(*cursor.Error); ok {
					errs.Add(cerr.At, err.Error())
				} else {
					errs.Add(before, err.Error())
				}
				// Neither Field nor OptionalField made progress: stop to
				// avoid looping forever on unparsable trailing bytes.
				return out
			}
			if cerr, ok := err.(*cursor.Error); ok {
				errs.Add(cerr.At, err.Error())
			} else {
				errs.Add(before, err.Error())
			}
			loc = recLoc
		}
		out = append(out, loc)
		if opt, ok := loc.Item.(rfc5322.Optional); ok {
			applyMimeHeader(loc.At, opt, mh, errs)
		}
	}
	return out
}

func applyMimeHeader(at cursor.Location, opt rfc5322.Optional, mh *mimeHeaders, errs *Errors) {
	switch strings.ToLower(opt.Name) {
	case "mime-version":
		if mh.version != nil {
			errs.Add(at, "duplicate header MIME-Version")
			return
		}
		v, err := rfcmime.ParseVersion(cursor.New([]byte(opt.Body)))
		if err != nil {
			errs.Add(at, fmt.Sprintf("malformed MIME-Version: %s", err))
			return
		}
		mh.version = &v
	case "content-type":
		if mh.contentType != nil {
			errs.Add(at, "duplicate header Content-Type")
			return
		}
		ct, err := rfcmime.ParseContentType(cursor.New([]byte(opt.Body)))
		if err != nil {
			errs.Add(at, fmt.Sprintf("malformed Content-Type: %s", err))
			return
		}
		mh.contentType = &ct
	case "content-transfer-encoding":
		if mh.transferEncoding != nil {
			errs.Add(at, "duplicate header Content-Transfer-Encoding")
			return
		}
		enc, err := rfcmime.ParseTransferEncoding(cursor.New([]byte(opt.Body)))
		if err != nil {
			errs.Add(at, fmt.Sprintf("malformed Content-Transfer-Encoding: %s", err))
			return
		}
		mh.transferEncoding = &enc
	case "content-id":
		if mh.contentID != nil {
			errs.Add(at, "duplicate header Content-ID")
			return
		}
		id, err := rfcmime.ParseContentID(cursor.New([]byte(opt.Body)))
		if err != nil {
			errs.Add(at, fmt.Sprintf("malformed Content-ID: %s", err))
			return
		}
		mh.contentID = &id
	case "content-description":
		if mh.description != nil {
			errs.Add(at, "duplicate header Content-Description")
			return
		}
		d := opt.Body
		mh.description = &d
	}
}

// defaultContentType is the RFC 2045 default used when no Content-Type
// header is present: "text/plain; charset=us-ascii".
func defaultContentType() rfcmime.ContentType {
	return rfcmime.ContentType{Type: "text", Subtype: "plain", Params: map[string]string{"charset": "us-ascii"}}
}
