package wire

import (
	"encoding/json"
	"fmt"
)

// UpdateClass covers the decoded update records the gateway delivers.
type UpdateClass interface {
	update()
}

// UpdateNewMessage carries a freshly received message record.
type UpdateNewMessage struct {
	Message  MessageClass `json:"-"`
	Pts      int          `json:"pts"`
	PtsCount int          `json:"pts_count"`
}

func (u *UpdateNewMessage) update() {}

func (u *UpdateNewMessage) UnmarshalJSON(data []byte) error {
	type alias UpdateNewMessage
	aux := struct {
		*alias
		Message json.RawMessage `json:"message"`
	}{alias: (*alias)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	return decodeOptionalMessage(aux.Message, &u.Message)
}

// UpdateEditMessage carries the post-edit state of a message record.
type UpdateEditMessage struct {
	Message  MessageClass `json:"-"`
	Pts      int          `json:"pts"`
	PtsCount int          `json:"pts_count"`
}

func (u *UpdateEditMessage) update() {}

func (u *UpdateEditMessage) UnmarshalJSON(data []byte) error {
	type alias UpdateEditMessage
	aux := struct {
		*alias
		Message json.RawMessage `json:"message"`
	}{alias: (*alias)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	return decodeOptionalMessage(aux.Message, &u.Message)
}

// UpdateDeleteMessages lists ids removed from a chat's history.
type UpdateDeleteMessages struct {
	IDs      []int `json:"messages"`
	Pts      int   `json:"pts"`
	PtsCount int   `json:"pts_count"`
}

func (u *UpdateDeleteMessages) update() {}

// UpdateShortSentMessage is the minimal acknowledgment the server returns
// for a locally issued send. It echoes the assigned id and date, plus media
// and entities when the server rewrote them; everything else about the
// message is only known locally.
type UpdateShortSentMessage struct {
	Out       bool     `json:"out,omitempty"`
	ID        int      `json:"id"`
	Pts       int      `json:"pts"`
	PtsCount  int      `json:"pts_count"`
	Date      int64    `json:"date"`
	Media     *Media   `json:"media,omitempty"`
	Entities  []Entity `json:"entities,omitempty"`
	TTLPeriod *int     `json:"ttl_period,omitempty"`
}

func (u *UpdateShortSentMessage) update() {}

func decodeOptionalMessage(raw json.RawMessage, dst *MessageClass) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	m, err := DecodeMessage(raw)
	if err != nil {
		return err
	}
	*dst = m
	return nil
}

// State is the update-sequence bookkeeping echoed by the gateway.
type State struct {
	Pts  int   `json:"pts"`
	Qts  int   `json:"qts"`
	Seq  int   `json:"seq"`
	Date int64 `json:"date"`
}

// Updates is one decoded response batch: the updates themselves plus the
// entity sidecar the registry is built from.
type Updates struct {
	Updates []UpdateClass `json:"-"`
	Chats   []Chat        `json:"chats,omitempty"`
	Users   []User        `json:"users,omitempty"`
	State   *State        `json:"state,omitempty"`
}

func (b *Updates) UnmarshalJSON(data []byte) error {
	type alias Updates
	aux := struct {
		*alias
		Updates []json.RawMessage `json:"updates"`
	}{alias: (*alias)(b)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	b.Updates = make([]UpdateClass, 0, len(aux.Updates))
	for _, raw := range aux.Updates {
		u, err := DecodeUpdate(raw)
		if err != nil {
			return err
		}
		b.Updates = append(b.Updates, u)
	}
	return nil
}

const (
	TypeUpdateNewMessage     = "updateNewMessage"
	TypeUpdateEditMessage    = "updateEditMessage"
	TypeUpdateDeleteMessages = "updateDeleteMessages"
	TypeUpdateShortSent      = "updateShortSentMessage"
)

// DecodeUpdate picks the concrete update shape from the "_" tag.
func DecodeUpdate(data []byte) (UpdateClass, error) {
	tag, err := peekTag(data)
	if err != nil {
		return nil, err
	}
	switch tag {
	case TypeUpdateNewMessage:
		var u UpdateNewMessage
		if err := json.Unmarshal(data, &u); err != nil {
			return nil, err
		}
		return &u, nil
	case TypeUpdateEditMessage:
		var u UpdateEditMessage
		if err := json.Unmarshal(data, &u); err != nil {
			return nil, err
		}
		return &u, nil
	case TypeUpdateDeleteMessages:
		var u UpdateDeleteMessages
		if err := json.Unmarshal(data, &u); err != nil {
			return nil, err
		}
		return &u, nil
	case TypeUpdateShortSent:
		var u UpdateShortSentMessage
		if err := json.Unmarshal(data, &u); err != nil {
			return nil, err
		}
		return &u, nil
	default:
		return nil, fmt.Errorf("unknown update constructor %q", tag)
	}
}
