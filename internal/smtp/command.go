package smtp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mailit-dev/smtpsink/internal/cursor"
)

// CommandKind discriminates the parsed Command.
type CommandKind int

const (
	CmdHelo CommandKind = iota
	CmdEhlo
	CmdMail
	CmdRcpt
	CmdData
	CmdRset
	CmdVrfy
	CmdExpn
	CmdHelp
	CmdNoop
	CmdQuit
	CmdUnknown
)

// Path is an SMTP reverse-path or forward-path: a mailbox, optionally with
// source-route information that is parsed and discarded, or the bare
// "postmaster" token (no domain).
type Path struct {
	Null       bool // reverse-path "<>"
	Postmaster bool // forward-path "<postmaster>" with no domain
	Local      string
	Domain     string
}

// Command is a parsed SMTP command line, stripped of its trailing CRLF.
type Command struct {
	Kind CommandKind
	// Raw is the verb as it appeared on the wire, for error messages and
	// the command-count metric.
	Raw string

	Domain   string // HELO/EHLO argument
	Path     Path   // MAIL/RCPT argument
	Size     int64  // MAIL FROM's SIZE= parameter, -1 if absent
	HasSize  bool
	Argument string // VRFY/EXPN/HELP/NOOP's trailing string, if any
}

// ParseError is returned for a malformed command line; Message is suitable
// for echoing back to the client alongside a 500 response.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string { return e.Message }

func parseErr(format string, args ...any) error {
	return &ParseError{Message: fmt.Sprintf(format, args...)}
}

// isAtext matches RFC 5321 atom characters used in SMTP keywords/domains;
// kept minimal since the command grammar only needs enough to split tokens.
func isAtext(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		return true
	case b == '-' || b == '.' || b == '_':
		return true
	}
	return false
}

func isSP(b byte) bool { return b == ' ' }

// ParseCommand parses one command line (trailing CRLF already stripped).
func ParseCommand(line []byte) (Command, error) {
	c := cursor.New(line)
	verb := c.TakeWhile(func(b byte) bool { return b != ' ' && b != '\t' })
	if len(verb) == 0 {
		return Command{}, parseErr("500 Command not recognized")
	}
	raw := string(verb)
	upper := strings.ToUpper(raw)

	switch upper {
	case "HELO":
		dom, err := parseDomainArg(c)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: CmdHelo, Raw: raw, Domain: dom}, nil
	case "EHLO":
		dom, err := parseDomainArg(c)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: CmdEhlo, Raw: raw, Domain: dom}, nil
	case "MAIL":
		return parseMail(c, raw)
	case "RCPT":
		return parseRcpt(c, raw)
	case "DATA":
		if err := expectEmpty(c); err != nil {
			return Command{}, err
		}
		return Command{Kind: CmdData, Raw: raw}, nil
	case "RSET":
		if err := expectEmpty(c); err != nil {
			return Command{}, err
		}
		return Command{Kind: CmdRset, Raw: raw}, nil
	case "VRFY":
		arg, err := parseRequiredString(c)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: CmdVrfy, Raw: raw, Argument: arg}, nil
	case "EXPN":
		arg, err := parseRequiredString(c)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: CmdExpn, Raw: raw, Argument: arg}, nil
	case "HELP":
		arg, _ := parseOptionalString(c)
		return Command{Kind: CmdHelp, Raw: raw, Argument: arg}, nil
	case "NOOP":
		arg, _ := parseOptionalString(c)
		return Command{Kind: CmdNoop, Raw: raw, Argument: arg}, nil
	case "QUIT":
		if err := expectEmpty(c); err != nil {
			return Command{}, err
		}
		return Command{Kind: CmdQuit, Raw: raw}, nil
	default:
		return Command{Kind: CmdUnknown, Raw: raw}, parseErr("500 Command not recognized")
	}
}

func expectEmpty(c *cursor.Cursor) error {
	c.TakeWhile(isSP)
	if !c.AtEnd() {
		return parseErr("500 Syntax error, no parameters allowed")
	}
	return nil
}

func parseDomainArg(c *cursor.Cursor) (string, error) {
	if _, err := c.Expect([]byte(" ")); err != nil {
		return "", parseErr("500 Syntax error in parameters")
	}
	dom := c.TakeWhile(func(b byte) bool { return b != ' ' && b != '\t' })
	if len(dom) == 0 {
		return "", parseErr("500 Syntax error in parameters")
	}
	if err := expectEmpty(c); err != nil {
		return "", err
	}
	return string(dom), nil
}

func parseRequiredString(c *cursor.Cursor) (string, error) {
	if _, err := c.Expect([]byte(" ")); err != nil {
		return "", parseErr("500 Syntax error in parameters")
	}
	rest := c.Remaining()
	c.Advance(len(rest))
	s := strings.TrimSpace(string(rest))
	if s == "" {
		return "", parseErr("500 Syntax error in parameters")
	}
	return s, nil
}

func parseOptionalString(c *cursor.Cursor) (string, bool) {
	if _, err := c.Expect([]byte(" ")); err != nil {
		return "", false
	}
	rest := c.Remaining()
	c.Advance(len(rest))
	return strings.TrimSpace(string(rest)), true
}

// parsePath parses a reverse-path or forward-path body (the contents of
// "<...>", or the bare "<>"/"<postmaster>" special cases). Source routes
// ("@relay,@relay2:mailbox@domain") are recognised and discarded.
func parsePath(c *cursor.Cursor) (Path, error) {
	if _, err := c.Expect([]byte("<")); err != nil {
		return Path{}, parseErr("500 Syntax error in mailbox address")
	}
	if _, err := c.Expect([]byte(">")); err == nil {
		return Path{Null: true}, nil
	}
	// discard an optional source-route "@domain,@domain:"
	cursor.Maybe(c, parseSourceRoute)
	local, err := c.TakeMatching(func(c *cursor.Cursor) error {
		if n := c.TakeWhile(func(b byte) bool { return isAtext(b) || b == '+' || b == '\'' }); len(n) == 0 {
			return parseErr("500 Syntax error in mailbox address")
		}
		return nil
	})
	if err != nil {
		return Path{}, err
	}
	if _, err := c.Expect([]byte(">")); err == nil {
		if strings.EqualFold(string(local), "postmaster") {
			return Path{Postmaster: true, Local: string(local)}, nil
		}
		return Path{Local: string(local)}, nil
	}
	if _, err := c.Expect([]byte("@")); err != nil {
		return Path{}, parseErr("500 Syntax error in mailbox address")
	}
	domain := c.TakeWhile(func(b byte) bool { return isAtext(b) })
	if len(domain) == 0 {
		return Path{}, parseErr("500 Syntax error in mailbox address")
	}
	if _, err := c.Expect([]byte(">")); err != nil {
		return Path{}, parseErr("500 Syntax error in mailbox address")
	}
	return Path{Local: string(local), Domain: string(domain)}, nil
}

func parseSourceRoute(c *cursor.Cursor) (struct{}, error) {
	if _, err := c.Expect([]byte("@")); err != nil {
		return struct{}{}, err
	}
	c.TakeWhile(func(b byte) bool { return isAtext(b) || b == ',' || b == '@' })
	if _, err := c.Expect([]byte(":")); err != nil {
		return struct{}{}, err
	}
	return struct{}{}, nil
}

func parseMail(c *cursor.Cursor, raw string) (Command, error) {
	if _, err := c.ExpectCaseless([]byte(" FROM:")); err != nil {
		return Command{}, parseErr("500 Syntax error in parameters")
	}
	path, err := parsePath(c)
	if err != nil {
		return Command{}, err
	}
	cmd := Command{Kind: CmdMail, Raw: raw, Path: path, Size: -1}
	for {
		c.TakeWhile(isSP)
		if c.AtEnd() {
			break
		}
		name, value, err := parseEsmtpParam(c)
		if err != nil {
			return Command{}, err
		}
		if strings.EqualFold(name, "SIZE") {
			if cmd.HasSize {
				return Command{}, parseErr("500 Duplicate SIZE parameter")
			}
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return Command{}, parseErr("500 Syntax error in SIZE parameter")
			}
			cmd.Size = n
			cmd.HasSize = true
			continue
		}
		return Command{}, parseErr("500 Unknown MAIL parameter %s", name)
	}
	return cmd, nil
}

func parseRcpt(c *cursor.Cursor, raw string) (Command, error) {
	if _, err := c.ExpectCaseless([]byte(" TO:")); err != nil {
		return Command{}, parseErr("500 Syntax error in parameters")
	}
	path, err := parsePath(c)
	if err != nil {
		return Command{}, err
	}
	if err := expectEmpty(c); err != nil {
		return Command{}, err
	}
	return Command{Kind: CmdRcpt, Raw: raw, Path: path}, nil
}

func parseEsmtpParam(c *cursor.Cursor) (name, value string, err error) {
	n := c.TakeWhile(func(b byte) bool { return isAtext(b) && b != '=' })
	if len(n) == 0 {
		return "", "", parseErr("500 Syntax error in parameters")
	}
	if _, err := c.Expect([]byte("=")); err != nil {
		return "", "", parseErr("500 Syntax error in parameters")
	}
	v := c.TakeWhile(func(b byte) bool { return b > 32 && b != '=' })
	if len(v) == 0 {
		return "", "", parseErr("500 Syntax error in parameters")
	}
	return string(n), string(v), nil
}
