package rfcmime

import (
	"strings"
)

// DecodeEncodedWords scans free-form header text (e.g. an unfolded Subject
// body) for RFC 2047 encoded-words ("=?charset?B|Q?text?=") and replaces
// each with its decoded text, joining adjacent encoded-words that are
// separated by nothing but folding whitespace (per RFC 2047 section 6.2).
// A word that fails to decode (bad charset, malformed payload) is left
// verbatim rather than aborting the whole header.
func DecodeEncodedWords(s string) string {
	var out strings.Builder
	i := 0
	prevWasEncoded := false
	wordEnd := 0 // length of out just after the last encoded-word
	for i < len(s) {
		if s[i] != '=' {
			if b := s[i]; b != ' ' && b != '\t' && b != '\r' && b != '\n' {
				prevWasEncoded = false
			}
			out.WriteByte(s[i])
			i++
			continue
		}
		word, consumed := decodeOneWord(s[i:])
		if consumed == 0 {
			out.WriteByte(s[i])
			i++
			prevWasEncoded = false
			continue
		}
		if prevWasEncoded {
			// Drop the whitespace written since the previous encoded-word.
			kept := out.String()[:wordEnd]
			out.Reset()
			out.WriteString(kept)
		}
		out.WriteString(word)
		i += consumed
		wordEnd = out.Len()
		prevWasEncoded = true
	}
	return out.String()
}

// decodeOneWord attempts to decode a single encoded-word at the start of s,
// returning the decoded text and the number of input bytes it consumed (0
// if s does not start with a well-formed encoded-word, not counting its
// total length against the 76-character limit RFC 2047 recommends for
// generation: this is a decoder, so the limit is not enforced on input).
func decodeOneWord(s string) (string, int) {
	if !strings.HasPrefix(s, "=?") {
		return "", 0
	}
	end := strings.Index(s, "?=")
	if end < 0 {
		return "", 0
	}
	full := s[:end+2]
	body := full[2 : len(full)-2]

	parts := strings.SplitN(body, "?", 3)
	if len(parts) != 3 {
		return "", 0
	}
	charset, enc, text := parts[0], parts[1], parts[2]

	var raw []byte
	var err error
	switch strings.ToUpper(enc) {
	case "B":
		raw, err = decodeBase64([]byte(text))
	case "Q":
		raw, err = decodeQEncoding(text)
	default:
		return "", 0
	}
	if err != nil {
		return full, len(full)
	}

	decoded, err := DecodeCharset(charset, raw)
	if err != nil {
		return full, len(full)
	}
	return decoded, len(full)
}

// decodeQEncoding decodes RFC 2047's "Q" encoding, a quoted-printable
// variant where "_" stands for a literal space.
func decodeQEncoding(s string) ([]byte, error) {
	replaced := strings.ReplaceAll(s, "_", " ")
	return decodeQuotedPrintable([]byte(replaced))
}
