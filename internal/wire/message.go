package wire

import (
	"encoding/json"
	"fmt"
)

// MessageClass covers the three message record shapes a response can carry:
// a full message, a trimmed service message, or an empty placeholder.
type MessageClass interface {
	MessageID() int

	message()
}

// MessageEmpty is the deleted/unavailable placeholder. It carries an id and
// nothing else and must never surface as a snapshot.
type MessageEmpty struct {
	ID     int   `json:"id"`
	PeerID *Peer `json:"peer_id,omitempty"`
}

func (m *MessageEmpty) MessageID() int { return m.ID }
func (m *MessageEmpty) message()       {}

// Message is the full message record.
type Message struct {
	Out           bool `json:"out,omitempty"`
	Mentioned     bool `json:"mentioned,omitempty"`
	MediaUnread   bool `json:"media_unread,omitempty"`
	Silent        bool `json:"silent,omitempty"`
	Post          bool `json:"post,omitempty"`
	FromScheduled bool `json:"from_scheduled,omitempty"`
	Legacy        bool `json:"legacy,omitempty"`
	EditHide      bool `json:"edit_hide,omitempty"`
	Pinned        bool `json:"pinned,omitempty"`
	NoForwards    bool `json:"noforwards,omitempty"`

	ID      int         `json:"id"`
	FromID  *Peer       `json:"from_id,omitempty"`
	PeerID  Peer        `json:"peer_id"`
	FwdFrom *FwdHeader  `json:"fwd_from,omitempty"`
	ViaBot  *int64      `json:"via_bot_id,omitempty"`
	ReplyTo ReplyHeader `json:"-"`
	Date    int64       `json:"date"`
	Message string      `json:"message"`

	Media       *Media              `json:"media,omitempty"`
	ReplyMarkup *ReplyMarkup        `json:"reply_markup,omitempty"`
	Entities    []Entity            `json:"entities,omitempty"`
	Views       *int                `json:"views,omitempty"`
	Forwards    *int                `json:"forwards,omitempty"`
	Replies     *MessageReplies     `json:"replies,omitempty"`
	EditDate    *int64              `json:"edit_date,omitempty"`
	PostAuthor  *string             `json:"post_author,omitempty"`
	GroupedID   *int64              `json:"grouped_id,omitempty"`
	Reactions   *MessageReactions   `json:"reactions,omitempty"`
	Restriction []RestrictionReason `json:"restriction_reason,omitempty"`
	TTLPeriod   *int                `json:"ttl_period,omitempty"`
}

func (m *Message) MessageID() int { return m.ID }
func (m *Message) message()       {}

func (m *Message) UnmarshalJSON(data []byte) error {
	type alias Message
	aux := struct {
		*alias
		ReplyTo json.RawMessage `json:"reply_to,omitempty"`
	}{alias: (*alias)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	return decodeOptionalReply(aux.ReplyTo, &m.ReplyTo)
}

// MessageService is the trimmed record carrying an action instead of text.
// Fields the shape does not carry default to false/empty at normalization.
type MessageService struct {
	Out         bool `json:"out,omitempty"`
	Mentioned   bool `json:"mentioned,omitempty"`
	MediaUnread bool `json:"media_unread,omitempty"`
	Silent      bool `json:"silent,omitempty"`
	Post        bool `json:"post,omitempty"`
	Legacy      bool `json:"legacy,omitempty"`

	ID        int           `json:"id"`
	FromID    *Peer         `json:"from_id,omitempty"`
	PeerID    Peer          `json:"peer_id"`
	ReplyTo   ReplyHeader   `json:"-"`
	Date      int64         `json:"date"`
	Action    MessageAction `json:"action"`
	TTLPeriod *int          `json:"ttl_period,omitempty"`
}

func (m *MessageService) MessageID() int { return m.ID }
func (m *MessageService) message()       {}

func (m *MessageService) UnmarshalJSON(data []byte) error {
	type alias MessageService
	aux := struct {
		*alias
		ReplyTo json.RawMessage `json:"reply_to,omitempty"`
	}{alias: (*alias)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	return decodeOptionalReply(aux.ReplyTo, &m.ReplyTo)
}

func decodeOptionalReply(raw json.RawMessage, dst *ReplyHeader) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	h, err := DecodeReplyHeader(raw)
	if err != nil {
		return err
	}
	*dst = h
	return nil
}

// MessageAction is the decoded service action. Type identifies the action
// constructor; Data keeps the constructor-specific payload as decoded.
type MessageAction struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// FwdHeader describes the origin of a forwarded message.
type FwdHeader struct {
	FromID      *Peer  `json:"from_id,omitempty"`
	FromName    string `json:"from_name,omitempty"`
	Date        int64  `json:"date"`
	ChannelPost *int   `json:"channel_post,omitempty"`
	PostAuthor  string `json:"post_author,omitempty"`
}

// Media is the decoded media attachment. Type distinguishes photos,
// documents, polls and the rest; Ref is the opaque download reference.
type Media struct {
	Type       string `json:"type"`
	Ref        string `json:"ref,omitempty"`
	Size       int64  `json:"size,omitempty"`
	MimeType   string `json:"mime_type,omitempty"`
	TTLSeconds *int   `json:"ttl_seconds,omitempty"`
	Spoiler    bool   `json:"spoiler,omitempty"`
}

const (
	MediaPhoto    = "photo"
	MediaDocument = "document"
	MediaContact  = "contact"
	MediaGeo      = "geo"
	MediaPoll     = "poll"
)

// Entity is one formatting entity over the message text.
type Entity struct {
	Type   string `json:"type"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
	URL    string `json:"url,omitempty"`
	UserID int64  `json:"user_id,omitempty"`
}

// ReplyMarkup is the inline keyboard attached by bots.
type ReplyMarkup struct {
	Rows [][]Button `json:"rows"`
}

type Button struct {
	Text string `json:"text"`
	Data string `json:"data,omitempty"`
	URL  string `json:"url,omitempty"`
}

// MessageReplies is the reply/comment counter block.
type MessageReplies struct {
	Replies  int  `json:"replies"`
	Comments bool `json:"comments,omitempty"`
	MaxID    *int `json:"max_id,omitempty"`
}

// MessageReactions aggregates per-emoticon reaction counts.
type MessageReactions struct {
	Results []ReactionCount `json:"results"`
}

type ReactionCount struct {
	Emoticon string `json:"emoticon"`
	Count    int    `json:"count"`
}

type RestrictionReason struct {
	Platform string `json:"platform"`
	Reason   string `json:"reason"`
	Text     string `json:"text"`
}

const (
	TypeMessage        = "message"
	TypeMessageService = "messageService"
	TypeMessageEmpty   = "messageEmpty"
)

// DecodeMessage picks the concrete message shape from the "_" tag.
func DecodeMessage(data []byte) (MessageClass, error) {
	tag, err := peekTag(data)
	if err != nil {
		return nil, err
	}
	switch tag {
	case TypeMessage:
		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return &m, nil
	case TypeMessageService:
		var m MessageService
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return &m, nil
	case TypeMessageEmpty:
		var m MessageEmpty
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return &m, nil
	default:
		return nil, fmt.Errorf("unknown message constructor %q", tag)
	}
}
