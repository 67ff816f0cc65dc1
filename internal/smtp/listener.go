package smtp

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("github.com/mailit-dev/smtpsink/internal/smtp")

// Listener binds the SMTP port on both the tcp4 and tcp6 loopback
// addresses and serves every accepted connection with its own Session.
type Listener struct {
	cfg   Config
	store Submitter
	log   *slog.Logger

	onSession func()
	onCommand func(verb string)
	onError   func(kind string)
}

// NewListener constructs a Listener. Call Serve to start accepting.
func NewListener(cfg Config, st Submitter, log *slog.Logger) *Listener {
	return &Listener{cfg: cfg, store: st, log: log}
}

// OnSession installs a callback invoked once per accepted connection.
func (l *Listener) OnSession(f func()) { l.onSession = f }

// OnCommand installs a callback forwarded to every Session's OnCommand.
func (l *Listener) OnCommand(f func(verb string)) { l.onCommand = f }

// OnError installs a callback forwarded to every Session's OnError.
func (l *Listener) OnError(f func(kind string)) { l.onError = f }

// Serve binds tcp4 and tcp6 loopback listeners on cfg.Port and accepts
// connections until ctx is cancelled, at which point both listeners are
// closed and Serve returns once both accept loops have exited. Connection
// goroutines already started are not waited for.
func (l *Listener) Serve(ctx context.Context) error {
	addr := net.JoinHostPort("", strconv.Itoa(l.cfg.Port))

	g, gctx := errgroup.WithContext(ctx)
	for _, network := range []string{"tcp4", "tcp6"} {
		network := network
		var host string
		switch network {
		case "tcp4":
			host = "127.0.0.1"
		case "tcp6":
			host = "::1"
		}
		laddr := net.JoinHostPort(host, strconv.Itoa(l.cfg.Port))

		ln, err := net.Listen(network, laddr)
		if err != nil {
			return fmt.Errorf("binding %s %s: %w", network, addr, err)
		}

		g.Go(func() error {
			return l.acceptLoop(gctx, network, ln)
		})
		g.Go(func() error {
			<-gctx.Done()
			return ln.Close()
		})
	}

	if err := g.Wait(); err != nil && gctx.Err() == nil {
		return err
	}
	return nil
}

func (l *Listener) acceptLoop(ctx context.Context, network string, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.log.Error("accept failed", "network", network, "error", err)
			return err
		}
		if l.onSession != nil {
			l.onSession()
		}
		go l.serveConn(ctx, conn)
	}
}

func (l *Listener) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	ctx, span := tracer.Start(ctx, "smtp.session",
		trace.WithAttributes(attribute.String("net.peer.addr", conn.RemoteAddr().String())))
	defer span.End()

	sess := NewSession(l.cfg, l.store, l.log)
	sess.OnCommand(l.onCommand)
	sess.OnError(l.onError)

	if err := sess.serve(ctx, conn); err != nil {
		span.RecordError(err)
		l.log.DebugContext(ctx, "session ended", "remote", conn.RemoteAddr(), "error", err)
	}
}

// serve frames CRLF-terminated lines from conn and feeds them to the session,
// writing every non-empty response back to conn, until the session closes the
// connection or the line framer hits an I/O error.
func (s *Session) serve(ctx context.Context, conn net.Conn) error {
	r := bufio.NewReaderSize(conn, s.cfg.MaxLineLength*2)

	greet := s.Greeting()
	if _, err := conn.Write(greet.Bytes()); err != nil {
		return err
	}

	for {
		line, overflowed, err := readLine(r, s.cfg.MaxLineLength)
		if overflowed {
			resp := s.Overflow()
			if _, err := conn.Write(resp.Bytes()); err != nil {
				return err
			}
			if resp.CloseConnection {
				return nil
			}
			if err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}

		resp := s.Feed(ctx, line)
		if len(resp.Lines) == 0 {
			continue
		}
		if _, err := conn.Write(resp.Bytes()); err != nil {
			return err
		}
		if resp.CloseConnection {
			return nil
		}
	}
}

// readLine reads one line up to and including its terminating CRLF. If no
// CRLF is found within max bytes, it discards input up to the next CRLF
// (so the connection can resynchronise) and reports overflow.
func readLine(r *bufio.Reader, max int) (line []byte, overflowed bool, err error) {
	line, err = r.ReadSlice('\n')
	if err == bufio.ErrBufferFull || len(line) > max {
		// Drain until we find a real line ending, then report overflow.
		for err == bufio.ErrBufferFull {
			_, err = r.ReadSlice('\n')
		}
		return nil, true, err
	}
	if err != nil {
		return nil, false, err
	}
	if len(line) < 2 || line[len(line)-2] != '\r' {
		return nil, true, nil
	}
	out := make([]byte, len(line))
	copy(out, line)
	return out, false, nil
}
