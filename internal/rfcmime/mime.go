// Package rfcmime implements the RFC 2045/2046/2047 grammar layered on top
// of an already-parsed RFC 5322 message: MIME header values (Content-Type,
// Content-Transfer-Encoding, MIME-Version, Content-ID, Content-Description),
// their body decoders, and RFC 2047 encoded-word decoding for header text.
package rfcmime

import (
	"strings"

	"github.com/mailit-dev/smtpsink/internal/cursor"
	"github.com/mailit-dev/smtpsink/internal/rfc5322"
)

// Version is a parsed MIME-Version field. Only "1.0" is accepted; anything
// else is a malformed field rather than a hypothetical future MIME version.
type Version struct {
	Major, Minor int
}

// ParseVersion parses a MIME-Version field body ("1.0" with optional CFWS
// and comments around the digits and the dot).
func ParseVersion(c *cursor.Cursor) (Version, error) {
	cursor.Maybe(c, rfc5322.CFWS)
	major, err := c.ReadNumber(10, 1, 9)
	if err != nil {
		return Version{}, err
	}
	cursor.Maybe(c, rfc5322.CFWS)
	if _, err := c.Expect([]byte(".")); err != nil {
		return Version{}, err
	}
	cursor.Maybe(c, rfc5322.CFWS)
	minor, err := c.ReadNumber(10, 1, 9)
	if err != nil {
		return Version{}, err
	}
	cursor.Maybe(c, rfc5322.CFWS)
	if major != 1 || minor != 0 {
		return Version{}, cursor.Custom(c.At(), "unsupported MIME-Version %d.%d", major, minor)
	}
	return Version{Major: int(major), Minor: int(minor)}, nil
}

func isTspecial(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '@', ',', ';', ':', '\\', '"', '/', '[', ']', '?', '=':
		return true
	}
	return false
}

func isTokenChar(b byte) bool {
	return b > 32 && b < 127 && !isTspecial(b)
}

// token parses an RFC 2045 "token": 1*<any CHAR except SPACE, CTLs, or
// tspecials>.
func token(c *cursor.Cursor) (string, error) {
	span := c.TakeWhile(isTokenChar)
	if len(span) == 0 {
		return "", cursor.Custom(c.At(), "expected token")
	}
	return string(span), nil
}

// value parses an RFC 2045 "value": token / quoted-string.
func value(c *cursor.Cursor) (string, error) {
	if v, err := cursor.Atomic(c, token); err == nil {
		return v, nil
	}
	q, err := rfc5322.QuotedString(c)
	if err != nil {
		return "", cursor.Custom(c.At(), "expected value")
	}
	return string(rfc5322.Unquote(q.Item)), nil
}

// ContentType is a parsed Content-Type field. Params is case-insensitively
// keyed by lowercased attribute name.
type ContentType struct {
	Type    string
	Subtype string
	Params  map[string]string
}

// Full returns "type/subtype" in lowercase, the canonical media type key
// used to pick apart the body (multipart/*, message/*, text/*, ...).
func (ct ContentType) Full() string {
	return strings.ToLower(ct.Type) + "/" + strings.ToLower(ct.Subtype)
}

func parameter(c *cursor.Cursor) (string, string, error) {
	cursor.Maybe(c, rfc5322.CFWS)
	attr, err := token(c)
	if err != nil {
		return "", "", err
	}
	cursor.Maybe(c, rfc5322.CFWS)
	if _, err := c.Expect([]byte("=")); err != nil {
		return "", "", err
	}
	val, err := value(c)
	if err != nil {
		return "", "", err
	}
	cursor.Maybe(c, rfc5322.CFWS)
	return strings.ToLower(attr), val, nil
}

// ParseContentType parses a Content-Type field body: type "/" subtype
// *(";" parameter).
func ParseContentType(c *cursor.Cursor) (ContentType, error) {
	cursor.Maybe(c, rfc5322.CFWS)
	typ, err := token(c)
	if err != nil {
		return ContentType{}, err
	}
	if _, err := c.Expect([]byte("/")); err != nil {
		return ContentType{}, err
	}
	sub, err := token(c)
	if err != nil {
		return ContentType{}, err
	}
	cursor.Maybe(c, rfc5322.CFWS)
	params := map[string]string{}
	for {
		_, ok := cursor.Maybe(c, func(c *cursor.Cursor) (struct{}, error) {
			if _, err := c.Expect([]byte(";")); err != nil {
				return struct{}{}, err
			}
			attr, val, err := parameter(c)
			if err != nil {
				return struct{}{}, err
			}
			params[attr] = val
			return struct{}{}, nil
		})
		if !ok {
			break
		}
	}
	return ContentType{Type: typ, Subtype: sub, Params: params}, nil
}

// TransferEncoding names a Content-Transfer-Encoding mechanism.
type TransferEncoding int

const (
	SevenBit TransferEncoding = iota
	EightBit
	Binary
	QuotedPrintable
	Base64
)

var transferEncodingNames = map[string]TransferEncoding{
	"7bit":             SevenBit,
	"8bit":             EightBit,
	"binary":           Binary,
	"quoted-printable": QuotedPrintable,
	"base64":           Base64,
}

// ParseTransferEncoding parses a Content-Transfer-Encoding field body: a
// single mechanism token, matched case-insensitively against the five
// mechanisms RFC 2045 defines. Any other token, including an "X-"
// extension mechanism, is rejected rather than passed through as opaque
// data.
func ParseTransferEncoding(c *cursor.Cursor) (TransferEncoding, error) {
	cursor.Maybe(c, rfc5322.CFWS)
	tok, err := token(c)
	if err != nil {
		return 0, err
	}
	cursor.Maybe(c, rfc5322.CFWS)
	if enc, ok := transferEncodingNames[strings.ToLower(tok)]; ok {
		return enc, nil
	}
	return 0, cursor.Custom(c.At(), "unsupported transfer encoding %s", tok)
}

// ParseContentID parses a Content-ID field body: a msg-id, reusing the
// RFC 5322 grammar (RFC 2045 defines content-id identically to msg-id).
func ParseContentID(c *cursor.Cursor) (rfc5322.MsgID, error) {
	return rfc5322.ParseMsgID(c)
}

// ParseContentDescription parses a Content-Description field body, which
// RFC 2045 defines as free text ("*text"), i.e. RFC 5322 unstructured.
func ParseContentDescription(c *cursor.Cursor) (string, error) {
	return rfc5322.ParseUnstructured(c)
}
