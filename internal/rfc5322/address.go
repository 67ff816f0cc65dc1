package rfc5322

import "github.com/mailit-dev/smtpsink/internal/cursor"

// Address is a local-part/domain pair. DomainIsLiteral distinguishes a
// dot-atom domain from a bracketed domain-literal (whose Domain retains the
// raw dtext, unescaped).
type Address struct {
	Local           string
	Domain          string
	DomainIsLiteral bool
}

// Mailbox is an address with an optional display name.
type Mailbox struct {
	DisplayName *string
	Address     Address
}

// Group is a named collection of mailboxes (RFC 5322 "group" production).
type Group struct {
	Name    string
	Members []Mailbox
}

// AddressOrGroup is the sum type yielded by the "address" production.
type AddressOrGroup interface{ isAddressOrGroup() }

func (Mailbox) isAddressOrGroup() {}
func (Group) isAddressOrGroup()   {}

func localPart(c *cursor.Cursor) (string, error) {
	if span, err := cursor.Atomic(c, dotAtom); err == nil {
		return string(span), nil
	}
	q, err := quoted(c)
	if err != nil {
		return "", cursor.Custom(c.At(), "expected local-part")
	}
	return string(unquote(q.Item)), nil
}

func domainLiteral(c *cursor.Cursor) (string, error) {
	cursor.Maybe(c, cfws)
	span, err := c.TakeMatching(func(c *cursor.Cursor) error {
		if _, err := c.Expect([]byte("[")); err != nil {
			return err
		}
		for {
			cursor.Maybe(c, fws)
			if text := c.TakeWhile(isDtext); len(text) > 0 {
				continue
			}
			break
		}
		cursor.Maybe(c, fws)
		_, err := c.Expect([]byte("]"))
		return err
	})
	if err != nil {
		return "", err
	}
	cursor.Maybe(c, cfws)
	// Strip the surrounding brackets; the interior is the raw dtext span.
	return string(span[1 : len(span)-1]), nil
}

func domain(c *cursor.Cursor) (string, bool, error) {
	if span, err := cursor.Atomic(c, dotAtom); err == nil {
		return string(span), false, nil
	}
	lit, err := domainLiteral(c)
	if err != nil {
		return "", false, cursor.Custom(c.At(), "expected domain")
	}
	return lit, true, nil
}

func addrSpec(c *cursor.Cursor) (Address, error) {
	local, err := localPart(c)
	if err != nil {
		return Address{}, err
	}
	if _, err := c.Expect([]byte("@")); err != nil {
		return Address{}, err
	}
	dom, isLiteral, err := domain(c)
	if err != nil {
		return Address{}, err
	}
	return Address{Local: local, Domain: dom, DomainIsLiteral: isLiteral}, nil
}

func angleAddr(c *cursor.Cursor) (Address, error) {
	cursor.Maybe(c, cfws)
	var addr Address
	_, err := c.TakeMatching(func(c *cursor.Cursor) error {
		if _, err := c.Expect([]byte("<")); err != nil {
			return err
		}
		// obsolete source routes ("@a,@b:") are accepted and discarded.
		cursor.Maybe(c, func(c *cursor.Cursor) (struct{}, error) {
			return cursor.Atomic(c, func(c *cursor.Cursor) (struct{}, error) {
				for {
					if _, err := c.Expect([]byte("@")); err != nil {
						return struct{}{}, err
					}
					if _, _, err := domain(c); err != nil {
						return struct{}{}, err
					}
					if _, ok := cursor.Maybe(c, func(c *cursor.Cursor) (struct{}, error) {
						_, err := c.Expect([]byte(","))
						return struct{}{}, err
					}); !ok {
						break
					}
				}
				_, err := c.Expect([]byte(":"))
				return struct{}{}, err
			})
		})
		a, err := addrSpec(c)
		if err != nil {
			return err
		}
		addr = a
		_, err = c.Expect([]byte(">"))
		return err
	})
	if err != nil {
		return Address{}, err
	}
	cursor.Maybe(c, cfws)
	return addr, nil
}

func displayName(c *cursor.Cursor) (string, error) {
	span, err := phrase(c)
	if err != nil {
		return "", err
	}
	return string(span), nil
}

func nameAddr(c *cursor.Cursor) (Mailbox, error) {
	name, hasName := cursor.Maybe(c, displayName)
	addr, err := angleAddr(c)
	if err != nil {
		return Mailbox{}, err
	}
	mb := Mailbox{Address: addr}
	if hasName {
		mb.DisplayName = &name
	}
	return mb, nil
}

// mailbox parses name-addr / addr-spec.
func mailbox(c *cursor.Cursor) (Mailbox, error) {
	if mb, err := cursor.Atomic(c, nameAddr); err == nil {
		return mb, nil
	}
	addr, err := addrSpec(c)
	if err != nil {
		return Mailbox{}, cursor.Custom(c.At(), "expected mailbox")
	}
	return Mailbox{Address: addr}, nil
}

func mailboxList(c *cursor.Cursor) ([]Mailbox, error) {
	first, err := mailbox(c)
	if err != nil {
		return nil, err
	}
	out := []Mailbox{first}
	for {
		mb, ok := cursor.Maybe(c, func(c *cursor.Cursor) (Mailbox, error) {
			if _, err := c.Expect([]byte(",")); err != nil {
				return Mailbox{}, err
			}
			return mailbox(c)
		})
		if !ok {
			return out, nil
		}
		out = append(out, mb)
	}
}

func group(c *cursor.Cursor) (Group, error) {
	name, err := displayName(c)
	if err != nil {
		return Group{}, err
	}
	if _, err := c.Expect([]byte(":")); err != nil {
		return Group{}, err
	}
	members, _ := cursor.Maybe(c, mailboxList)
	if members == nil {
		cursor.Maybe(c, cfws)
	}
	if _, err := c.Expect([]byte(";")); err != nil {
		return Group{}, err
	}
	cursor.Maybe(c, cfws)
	return Group{Name: name, Members: members}, nil
}

// address parses mailbox / group.
func address(c *cursor.Cursor) (AddressOrGroup, error) {
	if g, err := cursor.Atomic(c, group); err == nil {
		return g, nil
	}
	mb, err := mailbox(c)
	if err != nil {
		return nil, cursor.Custom(c.At(), "expected address")
	}
	return mb, nil
}

func addressList(c *cursor.Cursor) ([]AddressOrGroup, error) {
	first, err := address(c)
	if err != nil {
		return nil, err
	}
	out := []AddressOrGroup{first}
	for {
		a, ok := cursor.Maybe(c, func(c *cursor.Cursor) (AddressOrGroup, error) {
			if _, err := c.Expect([]byte(",")); err != nil {
				return nil, err
			}
			return address(c)
		})
		if !ok {
			return out, nil
		}
		out = append(out, a)
	}
}
