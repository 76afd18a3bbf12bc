package wire

import (
	"encoding/json"
	"fmt"
)

// ReplyHeader is the common view over the two reply-header generations.
// Absence of a header on a message means "no descriptor", which is distinct
// from a header whose optional fields are all unset.
type ReplyHeader interface {
	ForumTopic() bool
	ReplyToTopID() (int, bool)
	ReplyToMsgID() (int, bool)

	replyHeader()
}

// MessageReplyHeader is the current-generation header. Every identifier is
// optional and quote metadata may be attached.
type MessageReplyHeader struct {
	ForumTopicFlag bool    `json:"forum_topic,omitempty"`
	MsgID          *int    `json:"reply_to_msg_id,omitempty"`
	TopID          *int    `json:"reply_to_top_id,omitempty"`
	PeerID         *Peer   `json:"reply_to_peer_id,omitempty"`
	Quote          bool    `json:"quote,omitempty"`
	QuoteText      *string `json:"quote_text,omitempty"`
}

func (h *MessageReplyHeader) ForumTopic() bool { return h.ForumTopicFlag }

func (h *MessageReplyHeader) ReplyToTopID() (int, bool) {
	if h.TopID == nil {
		return 0, false
	}
	return *h.TopID, true
}

func (h *MessageReplyHeader) ReplyToMsgID() (int, bool) {
	if h.MsgID == nil {
		return 0, false
	}
	return *h.MsgID, true
}

func (h *MessageReplyHeader) replyHeader() {}

// LegacyReplyHeader is the older generation: the replied-to message id is
// mandatory and there is no quote metadata. The forum flag was retrofitted
// onto it, so old records can still be topic-flagged.
type LegacyReplyHeader struct {
	MsgID          int  `json:"reply_to_msg_id"`
	TopID          *int `json:"reply_to_top_id,omitempty"`
	ForumTopicFlag bool `json:"forum_topic,omitempty"`
}

func (h *LegacyReplyHeader) ForumTopic() bool { return h.ForumTopicFlag }

func (h *LegacyReplyHeader) ReplyToTopID() (int, bool) {
	if h.TopID == nil {
		return 0, false
	}
	return *h.TopID, true
}

func (h *LegacyReplyHeader) ReplyToMsgID() (int, bool) {
	return h.MsgID, true
}

func (h *LegacyReplyHeader) replyHeader() {}

const (
	TypeReplyHeader       = "messageReplyHeader"
	TypeLegacyReplyHeader = "messageReplyHeaderLegacy"
)

// DecodeReplyHeader picks the concrete header generation from the "_" tag.
func DecodeReplyHeader(data []byte) (ReplyHeader, error) {
	tag, err := peekTag(data)
	if err != nil {
		return nil, err
	}
	switch tag {
	case TypeReplyHeader:
		var h MessageReplyHeader
		if err := json.Unmarshal(data, &h); err != nil {
			return nil, err
		}
		return &h, nil
	case TypeLegacyReplyHeader:
		var h LegacyReplyHeader
		if err := json.Unmarshal(data, &h); err != nil {
			return nil, err
		}
		return &h, nil
	default:
		return nil, fmt.Errorf("unknown reply header constructor %q", tag)
	}
}

func peekTag(data []byte) (string, error) {
	var probe struct {
		Tag string `json:"_"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return "", err
	}
	return probe.Tag, nil
}
