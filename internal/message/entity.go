package message

import (
	"fmt"
	"strings"

	"github.com/mailit-dev/smtpsink/internal/cursor"
	"github.com/mailit-dev/smtpsink/internal/multipart"
	"github.com/mailit-dev/smtpsink/internal/rfcmime"
)

// buildEntity recursively decodes an Unparsed MIME entity into a fully
// transfer- and charset-decoded Entity tree. errs is scoped so that
// u.Raw.At is relative to errs' own frame: Add and Nested calls made here
// report coordinates correctly translated all the way back to the root
// message, however deeply nested the entity is.
//
// A transfer-decode or multipart-structure failure is fatal for the
// entity and propagates to the caller, which for a part failure means
// the whole message body fails to parse. A charset failure degrades the
// entity to application/octet-stream binary instead of failing outright.
func buildEntity(errs *Errors, u Unparsed, enclosingHadTransferEncoding bool) (Entity, error) {
	if u.TransferEncoding != nil && enclosingHadTransferEncoding {
		errs.Add(u.Raw.At, "NestedTransferEncoding: transfer-encoding on a part whose enclosing entity already declared one; ignored")
		u.TransferEncoding = nil
	}

	enc := rfcmime.SevenBit
	if u.TransferEncoding != nil {
		enc = *u.TransferEncoding
	}
	decoded, err := rfcmime.DecodeTransfer(enc, u.Raw.Item)
	if err != nil {
		errs.Add(u.Raw.At, err.Error())
		return Entity{}, err
	}

	full := u.ContentType.Full()
	switch {
	case strings.HasPrefix(full, "multipart/"):
		return buildMultipart(errs, u, decoded)
	case strings.HasPrefix(full, "text/"):
		return buildText(errs, u, decoded), nil
	default:
		return Entity{ContentType: u.ContentType, Kind: EntityBinary, Binary: decoded}, nil
	}
}

func buildMultipart(errs *Errors, u Unparsed, decoded []byte) (Entity, error) {
	boundary, ok := u.ContentType.Params["boundary"]
	if !ok || boundary == "" {
		err := fmt.Errorf("multipart: missing required boundary parameter")
		errs.Add(u.Raw.At, err.Error())
		return Entity{}, err
	}

	parts, err := multipart.Split(decoded, boundary)
	if err != nil {
		errs.Add(u.Raw.At, err.Error())
		return Entity{}, err
	}

	kind := Mixed
	if strings.EqualFold(u.ContentType.Subtype, "alternative") {
		kind = Alternative
	}

	entities := make([]Entity, 0, len(parts))
	hadCTE := u.TransferEncoding != nil
	bodyErrs := errs.Nested(u.Raw.At)
	for _, p := range parts {
		partErrs := bodyErrs.Nested(p.Raw.At)
		partUnparsed := parsePartHeaders(partErrs, p.Raw.Item)
		ent, err := buildEntity(partErrs, partUnparsed, hadCTE)
		if err != nil {
			return Entity{}, err
		}
		entities = append(entities, ent)
	}

	return Entity{ContentType: u.ContentType, Kind: EntityMultipart, MultipartOf: kind, Parts: entities}, nil
}

func buildText(errs *Errors, u Unparsed, decoded []byte) Entity {
	charset := u.ContentType.Params["charset"]
	if charset == "" {
		charset = "us-ascii"
	}
	text, err := rfcmime.DecodeCharset(charset, decoded)
	if err != nil {
		errs.Add(u.Raw.At, err.Error())
		return Entity{
			ContentType: rfcmime.ContentType{Type: "application", Subtype: "octet-stream", Params: map[string]string{}},
			Kind:        EntityBinary,
			Binary:      decoded,
		}
	}
	return Entity{ContentType: u.ContentType, Kind: EntityText, Text: text}
}

// parsePartHeaders parses a multipart part's own headers (only the MIME
// subset is meaningful; anything else is parsed and discarded) and
// returns the Unparsed entity describing its body.
func parsePartHeaders(errs *Errors, raw []byte) Unparsed {
	headerBytes, bodyBytes, bodyOffset, _ := separateHeaderBody(raw)
	c := cursor.New(headerBytes)
	var mh mimeHeaders
	collectHeaders(c, errs, &mh)

	ct := defaultContentType()
	if mh.contentType != nil {
		ct = *mh.contentType
	}
	bodyAt := cursor.LocationAt(raw, bodyOffset)
	return Unparsed{
		Raw:              cursor.Located[[]byte]{At: bodyAt, Item: bodyBytes},
		Version:          mh.version,
		ContentType:      ct,
		TransferEncoding: mh.transferEncoding,
	}
}
