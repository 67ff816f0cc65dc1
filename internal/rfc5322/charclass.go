package rfc5322

// Byte-level predicates for the RFC 5322 §3.2.1 core character classes.

func isWSP(b byte) bool { return b == ' ' || b == '\t' }

func isVCHAR(b byte) bool { return b >= 0x21 && b <= 0x7e }

func isCTL(b byte) bool { return b <= 0x1f || b == 0x7f }

// isAtext matches RFC 5322 atext: alphanumeric plus the specials listed in
// §3.2.3.
func isAtext(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	}
	switch b {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '/', '=', '?', '^', '_', '`', '{', '|', '}', '~':
		return true
	}
	return false
}

// isQtext matches RFC 5322 qtext: printable ASCII except backslash and
// double-quote.
func isQtext(b byte) bool {
	return b == 0x21 || (b >= 0x23 && b <= 0x5b) || (b >= 0x5d && b <= 0x7e)
}

// isDtext matches RFC 5322 dtext: printable ASCII except '[', ']', '\'.
func isDtext(b byte) bool {
	return (b >= 0x21 && b <= 0x5a) || (b >= 0x5e && b <= 0x7e)
}

// isCtext matches RFC 5322 ctext: printable ASCII except '(', ')', '\'.
func isCtext(b byte) bool {
	return (b >= 0x21 && b <= 0x27) || (b >= 0x2a && b <= 0x5b) || (b >= 0x5d && b <= 0x7e)
}
