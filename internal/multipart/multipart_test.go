package multipart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitAlternative(t *testing.T) {
	body := "preamble\r\n" +
		"--b\r\n" +
		"Content-Type: text/plain\r\n\r\n" +
		"hi\r\n" +
		"--b\r\n" +
		"Content-Type: text/html\r\n\r\n" +
		"<p>hi</p>\r\n" +
		"--b--\r\n" +
		"epilogue\r\n"

	parts, err := Split([]byte(body), "b")
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Contains(t, string(parts[0].Raw.Item), "hi")
	assert.Contains(t, string(parts[1].Raw.Item), "<p>hi</p>")
}

func TestSplitUnterminatedFails(t *testing.T) {
	body := "--b\r\nContent-Type: text/plain\r\n\r\nhi\r\n"
	_, err := Split([]byte(body), "b")
	assert.ErrorIs(t, err, ErrUnterminated)
}

func TestSplitNoPartsFails(t *testing.T) {
	body := "just a preamble, no delimiters\r\n"
	_, err := Split([]byte(body), "b")
	assert.ErrorIs(t, err, ErrNoParts)
}

func TestSplitRequiresTrailingCRLF(t *testing.T) {
	body := "--b\r\n\r\nhi\r\n--b--"
	_, err := Split([]byte(body), "b")
	assert.ErrorIs(t, err, ErrNoTerminator)
}

func TestSplitLocationsAreOrderedAndInBounds(t *testing.T) {
	body := "--b\r\nA: 1\r\n\r\nfirst\r\n--b\r\nA: 2\r\n\r\nsecond\r\n--b--\r\n"
	parts, err := Split([]byte(body), "b")
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Less(t, parts[0].Raw.At.Offset, parts[1].Raw.At.Offset)
}
