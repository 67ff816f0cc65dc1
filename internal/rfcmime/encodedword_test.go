package rfcmime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeEncodedWordsBase64(t *testing.T) {
	// "Hello" base64-encoded, iso-8859-1 charset.
	got := DecodeEncodedWords("=?iso-8859-1?B?SGVsbG8=?=")
	assert.Equal(t, "Hello", got)
}

func TestDecodeEncodedWordsQEncodingUnderscoreIsSpace(t *testing.T) {
	got := DecodeEncodedWords("=?utf-8?Q?Hello_World?=")
	assert.Equal(t, "Hello World", got)
}

func TestDecodeEncodedWordsBackToBackWordsJoinWithoutSeparator(t *testing.T) {
	got := DecodeEncodedWords("=?utf-8?Q?Hello?==?utf-8?Q?World?=")
	assert.Equal(t, "HelloWorld", got)
}

func TestDecodeEncodedWordsSpaceBetweenWordsIsDropped(t *testing.T) {
	got := DecodeEncodedWords("=?utf-8?Q?Hello?= =?utf-8?Q?World?=")
	assert.Equal(t, "HelloWorld", got)
}

func TestDecodeEncodedWordsPlainTextIsUntouched(t *testing.T) {
	got := DecodeEncodedWords("just plain text")
	assert.Equal(t, "just plain text", got)
}

func TestDecodeEncodedWordsMalformedPayloadLeftVerbatim(t *testing.T) {
	got := DecodeEncodedWords("=?utf-8?B?not-valid-base64!!?=")
	assert.Equal(t, "=?utf-8?B?not-valid-base64!!?=", got)
}

func TestDecodeEncodedWordsUnknownEncodingLetterIsNotConsumed(t *testing.T) {
	got := DecodeEncodedWords("=?utf-8?X?abc?=")
	assert.Equal(t, "=?utf-8?X?abc?=", got)
}
