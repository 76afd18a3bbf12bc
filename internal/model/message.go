package model

import (
	"time"

	"github.com/ysy950803/tgflow/internal/wire"
)

// Message is a normalized snapshot of one message at the moment it was
// observed. The three wire shapes are merged into a single superset record;
// service messages keep their action in a separate field so downstream code
// can stay shape-agnostic and still detect them.
//
// A snapshot never mutates. If the message is edited later, a new snapshot
// arrives through the update stream; refreshing means fetching a new one.
type Message struct {
	raw    wire.Message
	action *wire.MessageAction
	chats  *ChatMap
}

// FromWire normalizes one decoded message record. Empty placeholders are not
// surfaced and yield nil; every other shape yields exactly one snapshot.
func FromWire(msg wire.MessageClass, chats *ChatMap) *Message {
	switch m := msg.(type) {
	case *wire.MessageEmpty:
		return nil
	case *wire.Message:
		return &Message{raw: *m, chats: chats}
	case *wire.MessageService:
		action := m.Action
		return &Message{
			// Fields the service shape does not carry default to
			// false/empty, never carried over from elsewhere.
			raw: wire.Message{
				Out:         m.Out,
				Mentioned:   m.Mentioned,
				MediaUnread: m.MediaUnread,
				Silent:      m.Silent,
				Post:        m.Post,
				Legacy:      m.Legacy,
				ID:          m.ID,
				FromID:      m.FromID,
				PeerID:      m.PeerID,
				ReplyTo:     m.ReplyTo,
				Date:        m.Date,
				TTLPeriod:   m.TTLPeriod,
			},
			action: &action,
			chats:  chats,
		}
	default:
		return nil
	}
}

// FromShortSent synthesizes a snapshot for a locally issued send from the
// outbound input plus the server's minimal acknowledgment. The reply
// descriptor comes from the local reply target only and is never
// topic-flagged: the ack does not echo that bit, so messages you send are
// not tagged as forum-topic replies even when they are one.
func FromShortSent(ack *wire.UpdateShortSentMessage, input InputMessage, chat Chat) *Message {
	var replyTo wire.ReplyHeader
	if input.ReplyToMsgID != nil {
		id := *input.ReplyToMsgID
		replyTo = &wire.MessageReplyHeader{MsgID: &id}
	}
	return &Message{
		raw: wire.Message{
			Out:         ack.Out,
			Silent:      input.Silent,
			ID:          ack.ID,
			PeerID:      chat.Peer,
			ReplyTo:     replyTo,
			Date:        ack.Date,
			Message:     input.Text,
			Media:       ack.Media,
			ReplyMarkup: input.ReplyMarkup,
			Entities:    ack.Entities,
			TTLPeriod:   ack.TTLPeriod,
		},
		chats: SingleChatMap(chat),
	}
}

// Outgoing reports whether you sent this message.
func (m *Message) Outgoing() bool { return m.raw.Out }

// Mentioned reports whether you were mentioned, including replies to your
// own messages.
func (m *Message) Mentioned() bool { return m.raw.Mentioned }

// MediaUnread reports whether the media is still unplayed/unread.
func (m *Message) MediaUnread() bool { return m.raw.MediaUnread }

// Silent reports whether delivery should skip the notification sound.
func (m *Message) Silent() bool { return m.raw.Silent }

// Post reports whether this is a broadcast-channel post.
func (m *Message) Post() bool { return m.raw.Post }

// FromScheduled reports whether this originated from a scheduled send.
func (m *Message) FromScheduled() bool { return m.raw.FromScheduled }

// EditHide reports whether the edited mark should be hidden.
func (m *Message) EditHide() bool { return m.raw.EditHide }

// Pinned reports whether the message is currently pinned.
func (m *Message) Pinned() bool { return m.raw.Pinned }

// ID is the message identifier. Identifiers are per-chat counters, not
// globally unique.
func (m *Message) ID() int { return m.raw.ID }

// Date is when the message was produced.
func (m *Message) Date() time.Time { return time.Unix(m.raw.Date, 0).UTC() }

// Text is the message body; empty for pure service messages. With media
// attached it is the caption.
func (m *Message) Text() string { return m.raw.Message }

// Chat resolves the chat this message was sent to.
func (m *Message) Chat() Chat { return m.chats.Get(m.raw.PeerID) }

// ChatPeer is the raw peer reference of the owning chat.
func (m *Message) ChatPeer() wire.Peer { return m.raw.PeerID }

// Registry exposes the shared entity registry attached to this snapshot.
func (m *Message) Registry() *ChatMap { return m.chats }

// Sender resolves who sent the message, when known. Incoming private
// messages omit the explicit sender reference, in which case the sender can
// only be the peer we are talking to.
func (m *Message) Sender() (Chat, bool) {
	from := m.raw.FromID
	if from == nil {
		if !m.raw.Out && m.raw.PeerID.Kind == wire.PeerUser {
			p := m.raw.PeerID
			from = &p
		} else {
			return Chat{}, false
		}
	}
	return m.chats.Get(*from), true
}

// Action returns the service action for service messages, nil otherwise.
func (m *Message) Action() *wire.MessageAction { return m.action }

// ForwardHeader returns forward-origin information, if any.
func (m *Message) ForwardHeader() *wire.FwdHeader { return m.raw.FwdFrom }

// ViaBotID returns the inline bot's user id when sent via one.
func (m *Message) ViaBotID() (int64, bool) {
	if m.raw.ViaBot == nil {
		return 0, false
	}
	return *m.raw.ViaBot, true
}

// ReplyHeader exposes the raw reply header as decoded, if present.
func (m *Message) ReplyHeader() wire.ReplyHeader { return m.raw.ReplyTo }

// ReplyToMessageID returns the replied-to message id, if any.
func (m *Message) ReplyToMessageID() (int, bool) {
	if m.raw.ReplyTo == nil {
		return 0, false
	}
	return m.raw.ReplyTo.ReplyToMsgID()
}

// Media returns the attached media, if any.
func (m *Message) Media() *wire.Media { return m.raw.Media }

// Photo returns the attached media when it is a photo.
func (m *Message) Photo() *wire.Media {
	if m.raw.Media != nil && m.raw.Media.Type == wire.MediaPhoto {
		return m.raw.Media
	}
	return nil
}

// ReplyMarkup returns the inline keyboard, if any.
func (m *Message) ReplyMarkup() *wire.ReplyMarkup { return m.raw.ReplyMarkup }

// Entities returns the formatting entities over the text.
func (m *Message) Entities() []wire.Entity { return m.raw.Entities }

// ViewCount returns the view counter, when applicable.
func (m *Message) ViewCount() (int, bool) {
	if m.raw.Views == nil {
		return 0, false
	}
	return *m.raw.Views, true
}

// ForwardCount returns the forward counter, when applicable.
func (m *Message) ForwardCount() (int, bool) {
	if m.raw.Forwards == nil {
		return 0, false
	}
	return *m.raw.Forwards, true
}

// ReplyCount returns the reply counter, when applicable.
func (m *Message) ReplyCount() (int, bool) {
	if m.raw.Replies == nil {
		return 0, false
	}
	return m.raw.Replies.Replies, true
}

// ReactionCount sums all reaction counters, when applicable.
func (m *Message) ReactionCount() (int, bool) {
	if m.raw.Reactions == nil {
		return 0, false
	}
	total := 0
	for _, r := range m.raw.Reactions.Results {
		total += r.Count
	}
	return total, true
}

// EditDate returns when the message was last edited.
func (m *Message) EditDate() (time.Time, bool) {
	if m.raw.EditDate == nil {
		return time.Time{}, false
	}
	return time.Unix(*m.raw.EditDate, 0).UTC(), true
}

// PostAuthor returns the author signature of a channel post.
func (m *Message) PostAuthor() (string, bool) {
	if m.raw.PostAuthor == nil {
		return "", false
	}
	return *m.raw.PostAuthor, true
}

// GroupedID returns the album group identifier, if the message is part of
// one. Messages of other chatters may be interleaved within a group.
func (m *Message) GroupedID() (int64, bool) {
	if m.raw.GroupedID == nil {
		return 0, false
	}
	return *m.raw.GroupedID, true
}

// RestrictionReason lists platform restrictions on the message, if any.
func (m *Message) RestrictionReason() []wire.RestrictionReason {
	return m.raw.Restriction
}
