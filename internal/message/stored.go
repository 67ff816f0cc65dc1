package message

// ToStored converts a borrowed ParsedMessage into an owned StoredMessage
// under the given id. Conversion happens once, before the message is
// handed to a Store.
func (pm ParsedMessage) ToStored(id string) StoredMessage {
	sm := StoredMessage{
		ID:      id,
		Date:    pm.OriginationDate.ToTime(),
		From:    pm.From,
		Subject: pm.Subject,
		To:      pm.To,
		Errors:  pm.Errors,
	}
	// own copies the byte slices of an entity tree, which may still share
	// memory with the submitted buffer when no decoding changed them.
	var own func(e Entity) Entity
	own = func(e Entity) Entity {
		if e.Binary != nil {
			e.Binary = append([]byte(nil), e.Binary...)
		}
		if e.Parts != nil {
			parts := make([]Entity, len(e.Parts))
			for i, p := range e.Parts {
				parts[i] = own(p)
			}
			e.Parts = parts
		}
		return e
	}
	switch pm.Body.Kind {
	case BodyMime:
		sm.Body = StoredBody{Kind: BodyMime, Entity: own(pm.Body.Entity)}
	default:
		sm.Body = StoredBody{Kind: BodyUnknown, Text: string(pm.Body.Raw)}
	}
	return sm
}
