package rfcmime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeNBitAcceptsCleanBody(t *testing.T) {
	out, err := decodeNBit([]byte("hello\r\nworld\r\n"), true)
	require.NoError(t, err)
	assert.Equal(t, "hello\r\nworld\r\n", string(out))
}

func TestDecodeNBitRejectsBareCR(t *testing.T) {
	_, err := decodeNBit([]byte("abc\rdef\r\n"), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bare CR")
}

func TestDecodeNBitRejectsBareLF(t *testing.T) {
	_, err := decodeNBit([]byte("abc\ndef\r\n"), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bare LF")
}

func TestDecodeNBitRejectsNUL(t *testing.T) {
	_, err := decodeNBit([]byte("abc\x00def\r\n"), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NUL")
}

func TestDecodeNBitSevenBitRejectsHighBit(t *testing.T) {
	_, err := decodeNBit([]byte("abc\xc3\xa9\r\n"), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "high bit")
}

func TestDecodeNBitEightBitAllowsHighBit(t *testing.T) {
	out, err := decodeNBit([]byte("abc\xc3\xa9\r\n"), false)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc\xc3\xa9\r\n"), out)
}

func TestDecodeNBitRejectsOverlongLine(t *testing.T) {
	line := make([]byte, 999)
	for i := range line {
		line[i] = 'a'
	}
	_, err := decodeNBit(append(line, '\r', '\n'), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "998")
}

func TestDecodeTransferBinaryPassesThroughUnchanged(t *testing.T) {
	out, err := DecodeTransfer(Binary, []byte("\x00\x01anything"))
	require.NoError(t, err)
	assert.Equal(t, []byte("\x00\x01anything"), out)
}

func TestDecodeQuotedPrintableSoftBreakAndEscape(t *testing.T) {
	out, err := decodeQuotedPrintable([]byte("abc=\r\ndef=3D"))
	require.NoError(t, err)
	assert.Equal(t, "abcdef=", string(out))
}

func TestDecodeQuotedPrintableMalformedEscape(t *testing.T) {
	_, err := decodeQuotedPrintable([]byte("abc=ZZ"))
	assert.Error(t, err)
}

func TestDecodeBase64StripsWhitespace(t *testing.T) {
	out, err := decodeBase64([]byte("aGVs\r\nbG8="))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))
}

func TestDecodeCharsetUSASCIIRejectsHighBit(t *testing.T) {
	_, err := DecodeCharset("us-ascii", []byte("\xc3\xa9"))
	assert.Error(t, err)
}

func TestDecodeCharsetUTF8ValidatesSequences(t *testing.T) {
	out, err := DecodeCharset("utf-8", []byte("caf\xc3\xa9"))
	require.NoError(t, err)
	assert.Equal(t, "café", out)
}

func TestDecodeCharsetISO88591Transcodes(t *testing.T) {
	out, err := DecodeCharset("iso-8859-1", []byte{'c', 'a', 'f', 0xe9})
	require.NoError(t, err)
	assert.Equal(t, "café", out)
}

func TestDecodeCharsetUnrecognisedNameFails(t *testing.T) {
	_, err := DecodeCharset("x-made-up", []byte("abc"))
	assert.Error(t, err)
}
