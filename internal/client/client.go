package client

import (
	"context"
	"sync"

	"github.com/ysy950803/tgflow/internal/errors"
	"github.com/ysy950803/tgflow/internal/model"
	"github.com/ysy950803/tgflow/internal/session"
	"github.com/ysy950803/tgflow/internal/wire"
)

// Transport is the gateway collaborator: it delivers already-decoded update
// batches and carries outbound calls. Its internal concurrency safety is its
// own contract; this layer only requires that the listed methods are safe to
// call from multiple goroutines.
type Transport interface {
	Recv(ctx context.Context) (*wire.Updates, error)
	SendMessage(ctx context.Context, req *wire.SendMessageRequest) (*wire.UpdateShortSentMessage, error)
	EditMessage(ctx context.Context, req *wire.EditMessageRequest) error
	DeleteMessages(ctx context.Context, req *wire.DeleteMessagesRequest) error
	ForwardMessages(ctx context.Context, req *wire.ForwardMessagesRequest) error
	SendReaction(ctx context.Context, req *wire.SendReactionRequest) error
	PinMessage(ctx context.Context, req *wire.PinMessageRequest) error
	ReadHistory(ctx context.Context, req *wire.ReadHistoryRequest) error
	GetMessages(ctx context.Context, req *wire.GetMessagesRequest) (*wire.Messages, error)
	Close() error
}

// UpdateKind discriminates dispatch events.
type UpdateKind int

const (
	UpdateNewMessage UpdateKind = iota
	UpdateMessageEdited
	UpdateMessagesDeleted
	UpdateRaw
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateNewMessage:
		return "new_message"
	case UpdateMessageEdited:
		return "message_edited"
	case UpdateMessagesDeleted:
		return "messages_deleted"
	default:
		return "raw"
	}
}

// Update is one dispatch event. Message is set for the snapshot-bearing
// kinds; DeletedIDs for deletions; Raw always keeps the decoded record.
type Update struct {
	Kind       UpdateKind
	Message    *model.Message
	DeletedIDs []int
	Raw        wire.UpdateClass
}

// Client is the shareable handle handed to every handler task. It owns the
// transport, the session bookkeeping and a small buffer of updates decoded
// from the last batch.
type Client struct {
	transport Transport
	session   *session.Session

	mu      sync.Mutex
	pending []Update
}

func New(transport Transport, sess *session.Session) *Client {
	return &Client{transport: transport, session: sess}
}

// Session exposes the session for the shutdown persistence step.
func (c *Client) Session() *session.Session {
	return c.session
}

// NextUpdate returns the next dispatch event, fetching and normalizing a new
// batch when the buffer is empty. A transport failure is fatal to the caller
// of the dispatch loop; there is no retry at this layer.
func (c *Client) NextUpdate(ctx context.Context) (Update, error) {
	for {
		c.mu.Lock()
		if len(c.pending) > 0 {
			u := c.pending[0]
			c.pending = c.pending[1:]
			c.mu.Unlock()
			return u, nil
		}
		c.mu.Unlock()

		box, err := c.transport.Recv(ctx)
		if err != nil {
			return Update{}, errors.RecvFailed(err)
		}
		decoded := c.normalizeBatch(box)

		c.mu.Lock()
		c.pending = append(c.pending, decoded...)
		c.mu.Unlock()
	}
}

// normalizeBatch builds the batch registry once, shares it across every
// snapshot from the batch, and advances the session's sequence markers.
func (c *Client) normalizeBatch(box *wire.Updates) []Update {
	chats := model.NewChatMap(box.Users, box.Chats)
	if box.State != nil {
		c.session.AdvanceState(*box.State)
	}

	out := make([]Update, 0, len(box.Updates))
	for _, raw := range box.Updates {
		switch u := raw.(type) {
		case *wire.UpdateNewMessage:
			c.session.AdvanceState(wire.State{Pts: u.Pts})
			if msg := model.FromWire(u.Message, chats); msg != nil {
				out = append(out, Update{Kind: UpdateNewMessage, Message: msg, Raw: raw})
			}
		case *wire.UpdateEditMessage:
			c.session.AdvanceState(wire.State{Pts: u.Pts})
			if msg := model.FromWire(u.Message, chats); msg != nil {
				out = append(out, Update{Kind: UpdateMessageEdited, Message: msg, Raw: raw})
			}
		case *wire.UpdateDeleteMessages:
			c.session.AdvanceState(wire.State{Pts: u.Pts})
			out = append(out, Update{Kind: UpdateMessagesDeleted, DeletedIDs: u.IDs, Raw: raw})
		default:
			out = append(out, Update{Kind: UpdateRaw, Raw: raw})
		}
	}
	return out
}

func (c *Client) Close() error {
	return c.transport.Close()
}
