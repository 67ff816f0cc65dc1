package rfcmime

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// DecodeError describes a transfer- or charset-decoding failure. A
// transfer-decoding failure is fatal for the entity being decoded; a
// charset failure is not: the caller degrades a text entity to binary
// content and records the error rather than aborting.
type DecodeError struct {
	Encoding string
	Message  string
}

func (e *DecodeError) Error() string { return fmt.Sprintf("%s: %s", e.Encoding, e.Message) }

// DecodeTransfer reverses Content-Transfer-Encoding, returning the decoded
// octet stream.
func DecodeTransfer(enc TransferEncoding, body []byte) ([]byte, error) {
	switch enc {
	case SevenBit:
		return decodeNBit(body, true)
	case EightBit:
		return decodeNBit(body, false)
	case Binary:
		return body, nil
	case QuotedPrintable:
		return decodeQuotedPrintable(body)
	case Base64:
		return decodeBase64(body)
	default:
		return body, nil
	}
}

// decodeNBit validates line length, the absence of bare CR/LF octets
// outside a CRLF line ending, and, for 7bit, the absence of octets with
// the high bit set; the transfer encoding is otherwise the identity
// transform; there is nothing to decode.
func decodeNBit(body []byte, sevenBit bool) ([]byte, error) {
	for i, b := range body {
		switch b {
		case '\r':
			if i+1 >= len(body) || body[i+1] != '\n' {
				return body, &DecodeError{Encoding: "7bit/8bit", Message: "bare CR outside CRLF line ending"}
			}
		case '\n':
			if i == 0 || body[i-1] != '\r' {
				return body, &DecodeError{Encoding: "7bit/8bit", Message: "bare LF outside CRLF line ending"}
			}
		}
	}
	for _, line := range bytes.Split(body, []byte("\r\n")) {
		if len(line) > 998 {
			return body, &DecodeError{Encoding: "7bit/8bit", Message: "line exceeds 998 octets"}
		}
		for _, b := range line {
			if b == 0 {
				return body, &DecodeError{Encoding: "7bit/8bit", Message: "NUL octet in body"}
			}
			if sevenBit && b >= 128 {
				return body, &DecodeError{Encoding: "7bit", Message: "octet with high bit set"}
			}
		}
	}
	return body, nil
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'A' && b <= 'F')
}

func hexVal(b byte) byte {
	if b >= '0' && b <= '9' {
		return b - '0'
	}
	return b - 'A' + 10
}

// decodeQuotedPrintable decodes RFC 2045 quoted-printable: "=HH" escapes
// (uppercase hex only), "=\r\n" soft line breaks elided, and bare text
// passed through unchanged.
func decodeQuotedPrintable(body []byte) ([]byte, error) {
	var out bytes.Buffer
	for i := 0; i < len(body); i++ {
		b := body[i]
		if b != '=' {
			out.WriteByte(b)
			continue
		}
		switch {
		case i+2 < len(body) && body[i+1] == '\r' && body[i+2] == '\n':
			i += 2 // soft line break: elided entirely
		case i+2 < len(body) && isHexDigit(body[i+1]) && isHexDigit(body[i+2]):
			out.WriteByte(hexVal(body[i+1])<<4 | hexVal(body[i+2]))
			i += 2
		default:
			return out.Bytes(), &DecodeError{Encoding: "quoted-printable", Message: "malformed '=' escape"}
		}
	}
	return out.Bytes(), nil
}

func decodeBase64(body []byte) ([]byte, error) {
	stripped := make([]byte, 0, len(body))
	for _, b := range body {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		stripped = append(stripped, b)
	}
	out, err := base64.StdEncoding.DecodeString(string(stripped))
	if err != nil {
		return nil, &DecodeError{Encoding: "base64", Message: err.Error()}
	}
	return out, nil
}

var charsetDecoders = map[string]*charmap.Charmap{
	"iso-8859-1":  charmap.ISO8859_1,
	"iso-8859-2":  charmap.ISO8859_2,
	"iso-8859-3":  charmap.ISO8859_3,
	"iso-8859-4":  charmap.ISO8859_4,
	"iso-8859-5":  charmap.ISO8859_5,
	"iso-8859-6":  charmap.ISO8859_6,
	"iso-8859-7":  charmap.ISO8859_7,
	"iso-8859-8":  charmap.ISO8859_8,
	"iso-8859-9":  charmap.ISO8859_9,
	"iso-8859-10": charmap.ISO8859_10,
	"iso-8859-13": charmap.ISO8859_13,
	"iso-8859-14": charmap.ISO8859_14,
	"iso-8859-15": charmap.ISO8859_15,
	"iso-8859-16": charmap.ISO8859_16,
	"windows-1252": charmap.Windows1252,
}

// DecodeCharset transcodes body from the named charset to UTF-8. US-ASCII
// and UTF-8 are validated directly; ISO-8859-2..16 and windows-1252 go
// through golang.org/x/text/encoding/charmap. An unrecognised charset name
// returns a DecodeError; callers fall back to treating the entity as
// application/octet-stream rather than text.
func DecodeCharset(charset string, body []byte) (string, error) {
	name := strings.ToLower(strings.TrimSpace(charset))
	switch name {
	case "", "us-ascii", "ascii":
		for _, b := range body {
			if b >= 128 {
				return "", &DecodeError{Encoding: "us-ascii", Message: "octet with high bit set"}
			}
		}
		return string(body), nil
	case "utf-8", "utf8":
		if !utf8.Valid(body) {
			return "", &DecodeError{Encoding: "utf-8", Message: "invalid UTF-8 sequence"}
		}
		return string(body), nil
	}
	cm, ok := charsetDecoders[name]
	if !ok {
		return "", &DecodeError{Encoding: charset, Message: "unrecognised charset"}
	}
	return decodeWith(cm.NewDecoder(), body)
}

func decodeWith(dec *encoding.Decoder, body []byte) (string, error) {
	out, err := dec.Bytes(body)
	if err != nil {
		return "", &DecodeError{Encoding: "charset", Message: err.Error()}
	}
	return string(out), nil
}

