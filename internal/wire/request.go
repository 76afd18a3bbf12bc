package wire

import "encoding/json"

// Outbound request payloads. Construction of the full protocol call is the
// gateway's business; these carry only what this layer decides.

type SendMessageRequest struct {
	Peer         Peer         `json:"peer"`
	Message      string       `json:"message"`
	RandomID     string       `json:"random_id"`
	ReplyToMsgID *int         `json:"reply_to_msg_id,omitempty"`
	Silent       bool         `json:"silent,omitempty"`
	NoWebpage    bool         `json:"no_webpage,omitempty"`
	Entities     []Entity     `json:"entities,omitempty"`
	ReplyMarkup  *ReplyMarkup `json:"reply_markup,omitempty"`
	Media        *Media       `json:"media,omitempty"`
	ScheduleDate *int64       `json:"schedule_date,omitempty"`
}

type EditMessageRequest struct {
	Peer     Peer     `json:"peer"`
	ID       int      `json:"id"`
	Message  string   `json:"message"`
	Entities []Entity `json:"entities,omitempty"`
	Media    *Media   `json:"media,omitempty"`
}

type DeleteMessagesRequest struct {
	Peer   Peer  `json:"peer"`
	IDs    []int `json:"ids"`
	Revoke bool  `json:"revoke,omitempty"`
}

type ForwardMessagesRequest struct {
	FromPeer  Peer     `json:"from_peer"`
	ToPeer    Peer     `json:"to_peer"`
	IDs       []int    `json:"ids"`
	RandomIDs []string `json:"random_ids"`
}

type SendReactionRequest struct {
	Peer        Peer     `json:"peer"`
	MsgID       int      `json:"msg_id"`
	Emoticons   []string `json:"emoticons,omitempty"`
	Big         bool     `json:"big,omitempty"`
	AddToRecent bool     `json:"add_to_recent,omitempty"`
}

type PinMessageRequest struct {
	Peer   Peer `json:"peer"`
	ID     int  `json:"id"`
	Unpin  bool `json:"unpin,omitempty"`
	Silent bool `json:"silent,omitempty"`
}

type ReadHistoryRequest struct {
	Peer  Peer `json:"peer"`
	MaxID int  `json:"max_id"`
}

type GetMessagesRequest struct {
	Peer Peer  `json:"peer"`
	IDs  []int `json:"ids"`
}

// Messages is the history/by-id fetch response: message records plus the
// entity sidecar, same contract as an update batch.
type Messages struct {
	Messages []MessageClass `json:"-"`
	Chats    []Chat         `json:"chats,omitempty"`
	Users    []User         `json:"users,omitempty"`
}

func (m *Messages) UnmarshalJSON(data []byte) error {
	type alias Messages
	aux := struct {
		*alias
		Messages []json.RawMessage `json:"messages"`
	}{alias: (*alias)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	m.Messages = make([]MessageClass, 0, len(aux.Messages))
	for _, raw := range aux.Messages {
		msg, err := DecodeMessage(raw)
		if err != nil {
			return err
		}
		m.Messages = append(m.Messages, msg)
	}
	return nil
}
