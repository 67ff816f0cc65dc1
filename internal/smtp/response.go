package smtp

import (
	"fmt"
	"strconv"
	"strings"
)

// Response is a formatted SMTP reply, possibly spanning multiple lines.
// CloseConnection signals that the session should write this response and
// then terminate the connection.
type Response struct {
	Code            int
	Lines           []string
	CloseConnection bool
}

// reply builds a single-line response.
func reply(code int, text string) Response {
	return Response{Code: code, Lines: []string{text}}
}

// replyf is reply with fmt.Sprintf formatting.
func replyf(code int, format string, args ...any) Response {
	return reply(code, fmt.Sprintf(format, args...))
}

// closing marks r to close the connection after being written.
func closing(r Response) Response {
	r.CloseConnection = true
	return r
}

// Bytes renders r in wire format: "NNN-text\r\n" for every line but the
// last, "NNN text\r\n" (space) for the last, per RFC 5321 §4.2.1.
func (r Response) Bytes() []byte {
	var b strings.Builder
	code := strconv.Itoa(r.Code)
	for i, line := range r.Lines {
		b.WriteString(code)
		if i < len(r.Lines)-1 {
			b.WriteByte('-')
		} else {
			b.WriteByte(' ')
		}
		b.WriteString(line)
		b.WriteString("\r\n")
	}
	return []byte(b.String())
}

// ehloResponse builds the multi-line EHLO reply: a greeting line followed
// by capability lines, the last of which is always "SIZE <limit>".
func ehloResponse(hostname, clientDomain string, messageSize int) Response {
	return Response{
		Code: 250,
		Lines: []string{
			fmt.Sprintf("%s greets %s", hostname, clientDomain),
			fmt.Sprintf("SIZE %d", messageSize),
		},
	}
}
