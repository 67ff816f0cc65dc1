package rfc5322

import (
	"testing"

	"github.com/mailit-dev/smtpsink/internal/cursor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailboxAddrSpecOnly(t *testing.T) {
	c := cursor.New([]byte("alice@example.com"))
	mb, err := mailbox(c)
	require.NoError(t, err)
	assert.Nil(t, mb.DisplayName)
	assert.Equal(t, "alice", mb.Address.Local)
	assert.Equal(t, "example.com", mb.Address.Domain)
}

func TestMailboxNameAddrWithQuotedDisplayName(t *testing.T) {
	c := cursor.New([]byte(`"Alice Example" <alice@example.com>`))
	mb, err := mailbox(c)
	require.NoError(t, err)
	require.NotNil(t, mb.DisplayName)
	assert.Equal(t, "Alice Example", *mb.DisplayName)
	assert.Equal(t, "alice", mb.Address.Local)
}

func TestMailboxObsoleteSourceRouteIsDiscarded(t *testing.T) {
	c := cursor.New([]byte("Alice <@relay1.example,@relay2.example:alice@example.com>"))
	mb, err := mailbox(c)
	require.NoError(t, err)
	assert.Equal(t, "alice", mb.Address.Local)
	assert.Equal(t, "example.com", mb.Address.Domain)
}

func TestAddrSpecQuotedLocalPart(t *testing.T) {
	c := cursor.New([]byte(`"a b"@example.com`))
	addr, err := addrSpec(c)
	require.NoError(t, err)
	assert.Equal(t, "a b", addr.Local)
}

func TestAddrSpecDomainLiteral(t *testing.T) {
	c := cursor.New([]byte("alice@[192.168.0.1]"))
	addr, err := addrSpec(c)
	require.NoError(t, err)
	assert.True(t, addr.DomainIsLiteral)
	assert.Equal(t, "192.168.0.1", addr.Domain)
}

func TestGroupWithMembers(t *testing.T) {
	c := cursor.New([]byte("Friends: alice@example.com, bob@example.com;"))
	g, err := group(c)
	require.NoError(t, err)
	assert.Equal(t, "Friends", g.Name)
	require.Len(t, g.Members, 2)
	assert.Equal(t, "alice", g.Members[0].Address.Local)
	assert.Equal(t, "bob", g.Members[1].Address.Local)
}

func TestEmptyGroupHasNoMembers(t *testing.T) {
	c := cursor.New([]byte("Undisclosed-recipients:;"))
	g, err := group(c)
	require.NoError(t, err)
	assert.Equal(t, "Undisclosed-recipients", g.Name)
	assert.Nil(t, g.Members)
}

func TestAddressListMixesMailboxesAndGroups(t *testing.T) {
	c := cursor.New([]byte("alice@example.com, Friends: bob@example.com, carol@example.com;, dave@example.com"))
	list, err := addressList(c)
	require.NoError(t, err)
	require.Len(t, list, 3)

	mb0, ok := list[0].(Mailbox)
	require.True(t, ok)
	assert.Equal(t, "alice", mb0.Address.Local)

	g, ok := list[1].(Group)
	require.True(t, ok)
	assert.Equal(t, "Friends", g.Name)
	require.Len(t, g.Members, 2)

	mb2, ok := list[2].(Mailbox)
	require.True(t, ok)
	assert.Equal(t, "dave", mb2.Address.Local)
}

func TestMailboxListRequiresAtLeastOneMailbox(t *testing.T) {
	c := cursor.New([]byte(""))
	_, err := mailboxList(c)
	assert.Error(t, err)
}
