package smtp

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailit-dev/smtpsink/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func newTestSession(t *testing.T) (*Session, *store.Store) {
	t.Helper()
	st := store.New()
	cfg := Config{Hostname: "mail.test", MessageSize: 65536, MaxLineLength: 1000}
	return NewSession(cfg, st, testLogger()), st
}

// Happy-path SMTP submission: EHLO, MAIL, RCPT, DATA, body, dot, QUIT.
func TestSessionHappyPathSubmission(t *testing.T) {
	sess, st := newTestSession(t)
	ctx := context.Background()

	greet := sess.Greeting()
	assert.Equal(t, 220, greet.Code)

	r := sess.Feed(ctx, crlf("EHLO c.example\n"))
	assert.Equal(t, 250, r.Code)

	r = sess.Feed(ctx, crlf("MAIL FROM:<a@x>\n"))
	assert.Equal(t, 250, r.Code)

	r = sess.Feed(ctx, crlf("RCPT TO:<b@y>\n"))
	assert.Equal(t, 250, r.Code)

	r = sess.Feed(ctx, crlf("DATA\n"))
	assert.Equal(t, 354, r.Code)

	body := crlf("Date: Thu, 1 Jan 1970 00:00:00 +0000\nFrom: a@x\nSubject: hi\n\nHello.\n")
	for _, line := range splitLines(body) {
		r = sess.Feed(ctx, line)
	}
	r = sess.Feed(ctx, crlf(".\n"))
	assert.Equal(t, 250, r.Code)

	r = sess.Feed(ctx, crlf("QUIT\n"))
	assert.Equal(t, 221, r.Code)
	assert.True(t, r.CloseConnection)

	list := st.List()
	require.Len(t, list, 1)
	require.NotEmpty(t, list[0].ID)
	require.NotNil(t, list[0].Subject)
	assert.Equal(t, "hi", *list[0].Subject)
}

// Dot-stuffing: a body line beginning with ".." has only the first dot
// stripped.
func TestSessionDotStuffing(t *testing.T) {
	sess, st := newTestSession(t)
	ctx := context.Background()

	drive(ctx, sess, "EHLO c.example\n", "MAIL FROM:<a@x>\n", "RCPT TO:<b@y>\n", "DATA\n")

	body := crlf("Date: Thu, 1 Jan 1970 00:00:00 +0000\nFrom: a@x\n\n..leading dot\n")
	for _, line := range splitLines(body) {
		sess.Feed(ctx, line)
	}
	var last Response
	for _, line := range splitLines(crlf(".\n")) {
		last = sess.Feed(ctx, line)
	}
	assert.Equal(t, 250, last.Code)

	list := st.List()
	require.Len(t, list, 1)
	assert.Contains(t, list[0].Body.Text, ".leading dot")
}

// A line with no CRLF within the configured ceiling gets 500 and the
// session stays open.
func TestSessionLineTooLong(t *testing.T) {
	sess, _ := newTestSession(t)
	resp := sess.Overflow()
	assert.Equal(t, 500, resp.Code)
	assert.Equal(t, "Line too long", resp.Lines[0])
	assert.False(t, resp.CloseConnection)
}

// DATA immediately after EHLO, with no MAIL/RCPT, is a bad sequence.
func TestSessionBadSequenceDataAfterEhlo(t *testing.T) {
	sess, _ := newTestSession(t)
	ctx := context.Background()

	sess.Feed(ctx, crlf("EHLO c.example\n"))
	r := sess.Feed(ctx, crlf("DATA\n"))
	assert.Equal(t, 503, r.Code)
}

func TestSessionRcptBeforeMailIsBadSequence(t *testing.T) {
	sess, _ := newTestSession(t)
	ctx := context.Background()

	sess.Feed(ctx, crlf("EHLO c.example\n"))
	r := sess.Feed(ctx, crlf("RCPT TO:<b@y>\n"))
	assert.Equal(t, 503, r.Code)
}

func TestSessionMailBeforeHandshakeIsBadSequence(t *testing.T) {
	sess, _ := newTestSession(t)
	ctx := context.Background()

	r := sess.Feed(ctx, crlf("MAIL FROM:<a@x>\n"))
	assert.Equal(t, 503, r.Code)
}

func TestSessionOversizeMailFromSizeIsRejected(t *testing.T) {
	sess, _ := newTestSession(t)
	ctx := context.Background()

	sess.Feed(ctx, crlf("EHLO c.example\n"))
	r := sess.Feed(ctx, crlf("MAIL FROM:<a@x> SIZE=999999999\n"))
	assert.Equal(t, 552, r.Code)
}

func TestSessionRsetReturnsToRelaxed(t *testing.T) {
	sess, _ := newTestSession(t)
	ctx := context.Background()

	drive(ctx, sess, "EHLO c.example\n", "MAIL FROM:<a@x>\n", "RCPT TO:<b@y>\n")
	r := sess.Feed(ctx, crlf("RSET\n"))
	assert.Equal(t, 250, r.Code)
	assert.Equal(t, StateRelaxed, sess.state)

	// RCPT should once again be out of sequence since the transaction reset.
	r = sess.Feed(ctx, crlf("RCPT TO:<b@y>\n"))
	assert.Equal(t, 503, r.Code)
}

func TestSessionDuplicateMessageIDIsRejectedWith550(t *testing.T) {
	sess, st := newTestSession(t)
	ctx := context.Background()

	submit := func() Response {
		drive(ctx, sess, "EHLO c.example\n", "MAIL FROM:<a@x>\n", "RCPT TO:<b@y>\n", "DATA\n")
		body := crlf("Date: Thu, 1 Jan 1970 00:00:00 +0000\nFrom: a@x\nMessage-ID: <dup@x>\n\nbody\n")
		for _, line := range splitLines(body) {
			sess.Feed(ctx, line)
		}
		var last Response
		for _, line := range splitLines(crlf(".\n")) {
			last = sess.Feed(ctx, line)
		}
		return last
	}

	first := submit()
	assert.Equal(t, 250, first.Code)

	second := submit()
	assert.Equal(t, 550, second.Code)

	assert.Len(t, st.List(), 1)
}

func TestSessionInvalidCharacterInCommandIsRejected(t *testing.T) {
	sess, _ := newTestSession(t)
	ctx := context.Background()

	r := sess.Feed(ctx, append([]byte("HELO \xffbad"), '\r', '\n'))
	assert.Equal(t, 500, r.Code)
}

// drive feeds a sequence of command lines through sess, discarding the
// intermediate responses; callers assert on the response that matters.
func drive(ctx context.Context, sess *Session, lines ...string) {
	for _, l := range lines {
		sess.Feed(ctx, crlf(l))
	}
}

// splitLines breaks a CRLF-joined blob into lines that each retain their
// own trailing CRLF, the unit Session.Feed expects in DATA mode.
func splitLines(b []byte) [][]byte {
	var out [][]byte
	for len(b) > 0 {
		i := 0
		for i < len(b)-1 && !(b[i] == '\r' && b[i+1] == '\n') {
			i++
		}
		out = append(out, b[:i+2])
		b = b[i+2:]
	}
	return out
}
