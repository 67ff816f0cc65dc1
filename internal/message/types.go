package message

import (
	"time"

	"github.com/mailit-dev/smtpsink/internal/cursor"
	"github.com/mailit-dev/smtpsink/internal/rfc5322"
	"github.com/mailit-dev/smtpsink/internal/rfcmime"
)

// Trace is one "Return-Path / one-or-more Received / resent blocks" group,
// in the order it was encountered at the top of the message.
type Trace struct {
	ReturnPath *rfc5322.ReturnPath
	Received   []rfc5322.Received
	Resent     []rfc5322.ResentInfo
}

// Unparsed is a MIME entity whose body has not yet been decoded: the raw
// bytes as they appeared in the source, located at their first byte, plus
// the headers governing how to interpret them.
type Unparsed struct {
	Raw        cursor.Located[[]byte]
	Version    *rfcmime.Version
	ContentType rfcmime.ContentType
	TransferEncoding *rfcmime.TransferEncoding
}

// BodyKind discriminates ParsedMessage.Body.
type BodyKind int

const (
	BodyUnknown BodyKind = iota
	BodyMime
)

// Body is the message body, either raw bytes (no MIME-Version seen) or an
// Unparsed MIME entity awaiting recursive decode. Entity holds the fully
// decoded form once Parse has run (valid only when Kind == BodyMime).
type Body struct {
	Kind   BodyKind
	Raw    []byte
	Mime   Unparsed
	Entity Entity
}

// ParsedMessage is the borrowed (zero-copy) parse result: every slice
// inside it aliases the original message buffer. It is converted to an
// owned StoredMessage before being handed to a Store.
type ParsedMessage struct {
	ID               *rfc5322.MsgID
	OriginationDate  rfc5322.DateTime
	From             []rfc5322.Mailbox
	Sender           *rfc5322.Mailbox
	ReplyTo          []rfc5322.AddressOrGroup
	To               []rfc5322.AddressOrGroup
	Cc               []rfc5322.AddressOrGroup
	Bcc              []rfc5322.AddressOrGroup
	Subject          *string
	Comments         []string
	Keywords         []string
	InReplyTo        []rfc5322.MsgID
	References       []rfc5322.MsgID
	Traces           []Trace
	Body             Body
	Errors           []cursor.Located[string]
}

// EntityKind discriminates Entity.
type EntityKind int

const (
	EntityText EntityKind = iota
	EntityBinary
	EntityMultipart
)

// MultipartKind distinguishes how a multipart entity's parts relate.
type MultipartKind int

const (
	Mixed MultipartKind = iota
	Alternative
)

// Entity is a fully decoded MIME entity: transfer-decoded, and for text
// entities, charset-decoded to UTF-8.
type Entity struct {
	ContentType rfcmime.ContentType
	Kind        EntityKind
	Text        string
	Binary      []byte
	MultipartOf MultipartKind
	Parts       []Entity
}

// StoredBody is the owned counterpart of Body: either plain decoded text
// (no MIME-Version was seen) or a fully parsed Entity tree.
type StoredBody struct {
	Kind   BodyKind
	Text   string
	Entity Entity
}

// StoredMessage is the owned form of a parsed message, retained by a
// Store. It owns all of its data; none of it aliases the submitted byte
// slice.
type StoredMessage struct {
	ID      string
	Date    time.Time
	From    []rfc5322.Mailbox
	Subject *string
	To      []rfc5322.AddressOrGroup
	Body    StoredBody
	Errors  []cursor.Located[string]
}
