package message

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// crlf rewrites bare LFs in s to CRLF, so tests can write fixtures with
// ordinary Go string literals instead of spelling out "\r\n" everywhere.
func crlf(s string) string {
	return strings.ReplaceAll(s, "\n", "\r\n")
}

func TestParseHappyPath(t *testing.T) {
	raw := crlf("Date: Mon, 1 Jan 2024 10:00:00 +0000\n" +
		"From: alice@example.com\n" +
		"To: bob@example.com\n" +
		"Subject: hello\n" +
		"\n" +
		"body text\n")

	pm, err := Parse([]byte(raw))
	require.NoError(t, err)
	require.Len(t, pm.From, 1)
	assert.Equal(t, "alice@example.com", pm.From[0].Address.Local+"@"+pm.From[0].Address.Domain)
	require.NotNil(t, pm.Subject)
	assert.Equal(t, "hello", *pm.Subject)
	assert.Equal(t, BodyUnknown, pm.Body.Kind)
	assert.Equal(t, "body text\r\n", string(pm.Body.Raw))
	assert.Empty(t, pm.Errors)
}

func TestParseMissingDateIsFatal(t *testing.T) {
	raw := crlf("From: alice@example.com\n\nbody\n")
	_, err := Parse([]byte(raw))
	require.Error(t, err)
	fe, ok := err.(*FatalError)
	require.True(t, ok)
	assert.Contains(t, fe.Message, "Date")
}

func TestParseMissingFromIsFatal(t *testing.T) {
	raw := crlf("Date: Mon, 1 Jan 2024 10:00:00 +0000\n\nbody\n")
	_, err := Parse([]byte(raw))
	require.Error(t, err)
	fe, ok := err.(*FatalError)
	require.True(t, ok)
	assert.Contains(t, fe.Message, "From")
}

func TestParseDuplicateSubjectIsNonFatal(t *testing.T) {
	raw := crlf("Date: Mon, 1 Jan 2024 10:00:00 +0000\n" +
		"From: alice@example.com\n" +
		"Subject: first\n" +
		"Subject: second\n" +
		"\n" +
		"body\n")

	pm, err := Parse([]byte(raw))
	require.NoError(t, err)
	require.NotNil(t, pm.Subject)
	assert.Equal(t, "first", *pm.Subject, "first value wins under set_once")
	require.Len(t, pm.Errors, 1)
	assert.Contains(t, pm.Errors[0].Item, "duplicate header Subject")
}

func TestParseMultipartAlternative(t *testing.T) {
	body := "--b\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"plain part\r\n" +
		"--b\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<p>html part</p>\r\n" +
		"--b--\r\n"

	raw := crlf("Date: Mon, 1 Jan 2024 10:00:00 +0000\n"+
		"From: alice@example.com\n"+
		"MIME-Version: 1.0\n"+
		"Content-Type: multipart/alternative; boundary=b\n"+
		"\n") + body

	pm, err := Parse([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, BodyMime, pm.Body.Kind)
	ent := pm.Body.Entity
	require.Equal(t, EntityMultipart, ent.Kind)
	assert.Equal(t, Alternative, ent.MultipartOf)
	require.Len(t, ent.Parts, 2)
	assert.Equal(t, EntityText, ent.Parts[0].Kind)
	assert.Equal(t, "plain part", ent.Parts[0].Text)
	assert.Equal(t, EntityText, ent.Parts[1].Kind)
	assert.Equal(t, "<p>html part</p>", ent.Parts[1].Text)
}

func TestParseMultipartUnterminatedIsFatal(t *testing.T) {
	body := "--b\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"plain part\r\n"
	// no closing --b-- boundary

	raw := crlf("Date: Mon, 1 Jan 2024 10:00:00 +0000\n"+
		"From: alice@example.com\n"+
		"MIME-Version: 1.0\n"+
		"Content-Type: multipart/mixed; boundary=b\n"+
		"\n") + body

	_, err := Parse([]byte(raw))
	require.Error(t, err)
	_, ok := err.(*FatalError)
	assert.True(t, ok)
}

func TestParseNestedTransferEncodingIsIgnoredNonFatally(t *testing.T) {
	body := "--b\r\n" +
		"Content-Type: text/plain\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n" +
		"part body\r\n" +
		"--b--\r\n"

	raw := crlf("Date: Mon, 1 Jan 2024 10:00:00 +0000\n"+
		"From: alice@example.com\n"+
		"MIME-Version: 1.0\n"+
		"Content-Transfer-Encoding: 7bit\n"+
		"Content-Type: multipart/mixed; boundary=b\n"+
		"\n") + body

	pm, err := Parse([]byte(raw))
	require.NoError(t, err)
	require.Len(t, pm.Body.Entity.Parts, 1)
	found := false
	for _, e := range pm.Errors {
		if strings.Contains(e.Item, "NestedTransferEncoding") {
			found = true
		}
	}
	assert.True(t, found, "expected a non-fatal NestedTransferEncoding diagnostic")
}

func TestToStoredOwnsUnknownBody(t *testing.T) {
	raw := crlf("Date: Mon, 1 Jan 2024 10:00:00 +0000\nFrom: alice@example.com\n\nhello\n")
	pm, err := Parse([]byte(raw))
	require.NoError(t, err)

	sm := pm.ToStored("msg-1")
	assert.Equal(t, "msg-1", sm.ID)
	assert.Equal(t, BodyUnknown, sm.Body.Kind)
	assert.Equal(t, "hello\r\n", sm.Body.Text)
	assert.Equal(t, 2024, sm.Date.Year())
}
