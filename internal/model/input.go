package model

import "github.com/ysy950803/tgflow/internal/wire"

// InputMessage is the locally known side of an outbound send. It is what
// the short-sent acknowledgment gets merged with to synthesize a snapshot.
type InputMessage struct {
	Text         string
	ReplyToMsgID *int
	Silent       bool
	NoWebpage    bool
	Entities     []wire.Entity
	ReplyMarkup  *wire.ReplyMarkup
	Media        *wire.Media
}

// Text builds a plain text input.
func Text(s string) InputMessage {
	return InputMessage{Text: s}
}

// ReplyTo sets the reply target and returns the updated input.
func (im InputMessage) ReplyTo(msgID int) InputMessage {
	im.ReplyToMsgID = &msgID
	return im
}

// SilentDelivery marks the send as silent and returns the updated input.
func (im InputMessage) SilentDelivery() InputMessage {
	im.Silent = true
	return im
}
