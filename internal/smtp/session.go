package smtp

import (
	"bytes"
	"context"
	"errors"
	"log/slog"

	"github.com/mailit-dev/smtpsink/internal/store"
)

// State is one of the four session states the engine moves between.
type State int

const (
	StateHandshake State = iota
	StateRelaxed
	StateRecipients
	StateData
)

func (s State) String() string {
	switch s {
	case StateHandshake:
		return "handshake"
	case StateRelaxed:
		return "relaxed"
	case StateRecipients:
		return "recipients"
	case StateData:
		return "data"
	default:
		return "unknown"
	}
}

// Submitter is the subset of store.Store the session needs, so tests can
// substitute a fake.
type Submitter interface {
	Submit(raw []byte) (string, error)
}

// Config carries the per-listener settings the session needs: greeting
// name and the command/message size limits.
type Config struct {
	Hostname      string
	MessageSize   int
	MaxLineLength int
}

// Session is one connection's state machine. It owns its buffers
// exclusively; nothing about it is shared across goroutines.
type Session struct {
	cfg   Config
	store Submitter
	log   *slog.Logger

	state        State
	clientDomain string
	haveRcpt     bool
	sizeParam    int64

	dataBuf []byte

	onCommand func(verb string)
	onError   func(kind string)
}

// NewSession constructs a fresh session in StateHandshake.
func NewSession(cfg Config, st Submitter, log *slog.Logger) *Session {
	if cfg.MaxLineLength < 1000 {
		cfg.MaxLineLength = 1000
	}
	return &Session{cfg: cfg, store: st, log: log, state: StateHandshake}
}

// OnCommand installs a callback invoked once per successfully parsed
// command line, for observability.Metrics to count by verb.
func (s *Session) OnCommand(f func(verb string)) { s.onCommand = f }

// OnError installs a callback invoked once per protocol-level error (line
// overflow, oversized message, invalid character, command parse failure,
// rejected submission), for observability.Metrics. A 503 reply for a bad
// command sequence is not reported through it.
func (s *Session) OnError(f func(kind string)) { s.onError = f }

// Greeting returns the response pushed immediately on connect.
func (s *Session) Greeting() Response {
	return replyf(220, "%s Service ready", s.cfg.Hostname)
}

// Feed processes one CRLF-terminated chunk read from the connection. In
// every state but StateData, chunk is a single command line including its
// CRLF, which Feed strips before parsing. In StateData, chunk is a raw
// line including its CRLF, appended to the in-progress message buffer.
//
// Feed never blocks; all I/O is the caller's responsibility. It returns
// the Response to write, if any.
func (s *Session) Feed(ctx context.Context, line []byte) Response {
	if s.state == StateData {
		return s.feedData(ctx, line)
	}
	return s.feedCommand(ctx, line)
}

// Overflow is called by the caller's line framer when a line would exceed
// cfg.MaxLineLength before a CRLF is seen. The framer's buffer has already
// been dropped; Overflow decides the response and next state.
func (s *Session) Overflow() Response {
	if s.onError != nil {
		s.onError("line_overflow")
	}
	if s.state == StateData {
		s.dataBuf = nil
		s.state = StateRelaxed
		return reply(552, "Too much mail data")
	}
	return reply(500, "Line too long")
}

func (s *Session) feedCommand(ctx context.Context, line []byte) Response {
	for _, b := range line {
		if b >= 128 {
			if s.onError != nil {
				s.onError("invalid_character")
			}
			return reply(500, "invalid character")
		}
	}

	cmd, err := ParseCommand(bytes.TrimSuffix(line, []byte("\r\n")))
	if err != nil {
		if s.onError != nil {
			s.onError("command_parse")
		}
		var pe *ParseError
		if errors.As(err, &pe) {
			return reply(500, pe.Message[len("500 "):])
		}
		return reply(500, "Command not recognized")
	}
	if s.onCommand != nil {
		s.onCommand(cmd.Raw)
	}
	return s.dispatch(ctx, cmd)
}

func (s *Session) dispatch(ctx context.Context, cmd Command) Response {
	switch cmd.Kind {
	case CmdHelo:
		s.clientDomain = cmd.Domain
		s.state = StateRelaxed
		return replyf(250, "%s Hello %s", s.cfg.Hostname, cmd.Domain)
	case CmdEhlo:
		s.clientDomain = cmd.Domain
		s.state = StateRelaxed
		return ehloResponse(s.cfg.Hostname, cmd.Domain, s.cfg.MessageSize)
	case CmdMail:
		return s.dispatchMail(cmd)
	case CmdRcpt:
		return s.dispatchRcpt(cmd)
	case CmdData:
		return s.dispatchData()
	case CmdRset:
		s.resetTransaction()
		if s.state != StateHandshake {
			s.state = StateRelaxed
		}
		return reply(250, "OK")
	case CmdNoop:
		return reply(250, "OK")
	case CmdVrfy, CmdExpn:
		return reply(502, "Not implemented")
	case CmdHelp:
		if cmd.Argument == "" {
			return Response{Code: 214, Lines: []string{"Commands: HELO EHLO MAIL RCPT DATA RSET NOOP QUIT VRFY EXPN HELP"}}
		}
		return replyf(504, "No help for %s", cmd.Argument)
	case CmdQuit:
		return closing(replyf(221, "%s closing connection", s.cfg.Hostname))
	default:
		if s.state == StateHandshake {
			return reply(503, "Bad sequence of commands")
		}
		return reply(500, "Command not recognized")
	}
}

func (s *Session) dispatchMail(cmd Command) Response {
	if s.state == StateHandshake {
		return reply(503, "Bad sequence of commands")
	}
	if cmd.HasSize && cmd.Size >= int64(s.cfg.MessageSize) {
		return reply(552, "Message size exceeds fixed maximum message size")
	}
	s.resetTransaction()
	s.sizeParam = cmd.Size
	s.state = StateRecipients
	return reply(250, "OK")
}

func (s *Session) dispatchRcpt(cmd Command) Response {
	if s.state != StateRecipients {
		return reply(503, "Bad sequence of commands")
	}
	s.haveRcpt = true
	return reply(250, "OK")
}

func (s *Session) dispatchData() Response {
	if s.state != StateRecipients {
		return reply(503, "Bad sequence of commands")
	}
	if !s.haveRcpt {
		return reply(503, "Bad sequence of commands")
	}
	s.state = StateData
	s.dataBuf = s.dataBuf[:0]
	return reply(354, "Start mail input; end with <CRLF>.<CRLF>")
}

// resetTransaction clears MAIL/RCPT state, per RSET and the implicit
// reset a fresh MAIL FROM performs.
func (s *Session) resetTransaction() {
	s.haveRcpt = false
	s.sizeParam = -1
}

var dataTerminator = []byte("\r\n.\r\n")

func (s *Session) feedData(ctx context.Context, line []byte) Response {
	// Dot-stuffing: a line beginning with "." has the leading dot removed
	// before it is appended, except when the line IS the lone terminator
	// "." CRLF, handled below via the full-buffer suffix check.
	if bytes.HasPrefix(line, []byte(".")) && !bytes.Equal(line, []byte(".\r\n")) {
		line = line[1:]
	}
	s.dataBuf = append(s.dataBuf, line...)

	if len(s.dataBuf) > s.cfg.MessageSize {
		s.dataBuf = nil
		s.state = StateRelaxed
		if s.onError != nil {
			s.onError("message_too_large")
		}
		return reply(552, "Too much mail data")
	}

	if !bytes.HasSuffix(s.dataBuf, dataTerminator) {
		if bytes.Equal(s.dataBuf, []byte(".\r\n")) {
			// lone terminator with nothing preceding it: empty message
			return s.finishData(ctx, nil)
		}
		return Response{}
	}

	message := s.dataBuf[:len(s.dataBuf)-len(dataTerminator)+2]
	return s.finishData(ctx, message)
}

func (s *Session) finishData(ctx context.Context, message []byte) Response {
	s.state = StateRelaxed
	s.dataBuf = nil

	for _, b := range message {
		if b >= 128 {
			if s.onError != nil {
				s.onError("invalid_character")
			}
			return reply(500, "invalid character")
		}
	}

	id, err := s.store.Submit(message)
	if err != nil {
		if s.onError != nil {
			s.onError("submit")
		}
		s.log.DebugContext(ctx, "message rejected", "error", err)
		return submitErrorResponse(err)
	}
	s.log.DebugContext(ctx, "message stored", "id", id)
	return reply(250, "OK")
}

func submitErrorResponse(err error) Response {
	switch {
	case errors.Is(err, store.ErrDuplicateMailID):
		return reply(550, "Attempted to re-use existing mail ID")
	case errors.Is(err, store.ErrEncoding):
		return reply(500, "invalid character")
	case errors.Is(err, store.ErrMime):
		return reply(500, "malformed MIME body")
	default:
		return reply(500, "malformed message")
	}
}
