package client

import (
	"context"

	"github.com/google/uuid"

	"github.com/ysy950803/tgflow/internal/errors"
	"github.com/ysy950803/tgflow/internal/model"
	"github.com/ysy950803/tgflow/internal/wire"
)

// Outbound operations. All of them delegate to the transport; the only work
// done here is request construction and snapshot synthesis for sends.

// SendMessage sends input to chat and returns the synthesized snapshot built
// from the short-sent acknowledgment.
func (c *Client) SendMessage(ctx context.Context, chat model.Chat, input model.InputMessage) (*model.Message, error) {
	if chat.Peer.IsZero() {
		return nil, errors.ErrPeerEmpty
	}
	req := &wire.SendMessageRequest{
		Peer:         chat.Peer,
		Message:      input.Text,
		RandomID:     uuid.NewString(),
		ReplyToMsgID: input.ReplyToMsgID,
		Silent:       input.Silent,
		NoWebpage:    input.NoWebpage,
		Entities:     input.Entities,
		ReplyMarkup:  input.ReplyMarkup,
		Media:        input.Media,
	}
	ack, err := c.transport.SendMessage(ctx, req)
	if err != nil {
		return nil, errors.InvokeFailed("sendMessage", err)
	}
	c.session.AdvanceState(wire.State{Pts: ack.Pts, Date: ack.Date})
	return model.FromShortSent(ack, input, chat), nil
}

// Respond sends a new message to the same chat without replying directly.
func (c *Client) Respond(ctx context.Context, msg *model.Message, input model.InputMessage) (*model.Message, error) {
	return c.SendMessage(ctx, msg.Chat(), input)
}

// Reply sends a message replying to msg, overriding any reply target set on
// the input.
func (c *Client) Reply(ctx context.Context, msg *model.Message, input model.InputMessage) (*model.Message, error) {
	return c.SendMessage(ctx, msg.Chat(), input.ReplyTo(msg.ID()))
}

// EditMessage changes a message's text or media.
func (c *Client) EditMessage(ctx context.Context, msg *model.Message, input model.InputMessage) error {
	req := &wire.EditMessageRequest{
		Peer:     msg.ChatPeer(),
		ID:       msg.ID(),
		Message:  input.Text,
		Entities: input.Entities,
		Media:    input.Media,
	}
	if err := c.transport.EditMessage(ctx, req); err != nil {
		return errors.InvokeFailed("editMessage", err)
	}
	return nil
}

// DeleteMessage deletes a message for everyone.
func (c *Client) DeleteMessage(ctx context.Context, msg *model.Message) error {
	req := &wire.DeleteMessagesRequest{
		Peer:   msg.ChatPeer(),
		IDs:    []int{msg.ID()},
		Revoke: true,
	}
	if err := c.transport.DeleteMessages(ctx, req); err != nil {
		return errors.InvokeFailed("deleteMessages", err)
	}
	return nil
}

// ForwardMessage forwards a message to another (or the same) chat.
func (c *Client) ForwardMessage(ctx context.Context, msg *model.Message, to model.Chat) error {
	if to.Peer.IsZero() {
		return errors.ErrPeerEmpty
	}
	req := &wire.ForwardMessagesRequest{
		FromPeer:  msg.ChatPeer(),
		ToPeer:    to.Peer,
		IDs:       []int{msg.ID()},
		RandomIDs: []string{uuid.NewString()},
	}
	if err := c.transport.ForwardMessages(ctx, req); err != nil {
		return errors.InvokeFailed("forwardMessages", err)
	}
	return nil
}

// React sets reactions on a message.
func (c *Client) React(ctx context.Context, msg *model.Message, emoticons ...string) error {
	req := &wire.SendReactionRequest{
		Peer:      msg.ChatPeer(),
		MsgID:     msg.ID(),
		Emoticons: emoticons,
	}
	if err := c.transport.SendReaction(ctx, req); err != nil {
		return errors.InvokeFailed("sendReaction", err)
	}
	return nil
}

// PinMessage pins a message in its chat.
func (c *Client) PinMessage(ctx context.Context, msg *model.Message) error {
	req := &wire.PinMessageRequest{Peer: msg.ChatPeer(), ID: msg.ID()}
	if err := c.transport.PinMessage(ctx, req); err != nil {
		return errors.InvokeFailed("pinMessage", err)
	}
	return nil
}

// UnpinMessage unpins a message from its chat.
func (c *Client) UnpinMessage(ctx context.Context, msg *model.Message) error {
	req := &wire.PinMessageRequest{Peer: msg.ChatPeer(), ID: msg.ID(), Unpin: true}
	if err := c.transport.PinMessage(ctx, req); err != nil {
		return errors.InvokeFailed("pinMessage", err)
	}
	return nil
}

// MarkAsRead marks the chat as read up to msg.
func (c *Client) MarkAsRead(ctx context.Context, msg *model.Message) error {
	req := &wire.ReadHistoryRequest{Peer: msg.ChatPeer(), MaxID: msg.ID()}
	if err := c.transport.ReadHistory(ctx, req); err != nil {
		return errors.InvokeFailed("readHistory", err)
	}
	return nil
}

// GetMessage refetches one message and returns a fresh snapshot. Snapshots
// are never mutated in place; refreshing means fetching a new one.
func (c *Client) GetMessage(ctx context.Context, chat model.Chat, id int) (*model.Message, error) {
	req := &wire.GetMessagesRequest{Peer: chat.Peer, IDs: []int{id}}
	resp, err := c.transport.GetMessages(ctx, req)
	if err != nil {
		return nil, errors.InvokeFailed("getMessages", err)
	}
	chats := model.NewChatMap(resp.Users, resp.Chats)
	for _, raw := range resp.Messages {
		if msg := model.FromWire(raw, chats); msg != nil && msg.ID() == id {
			return msg, nil
		}
	}
	return nil, errors.MessageNotFound(id)
}
