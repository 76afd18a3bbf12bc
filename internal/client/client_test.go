package client

import (
	"context"
	"testing"

	"github.com/ysy950803/tgflow/internal/errors"
	"github.com/ysy950803/tgflow/internal/model"
	"github.com/ysy950803/tgflow/internal/session"
	"github.com/ysy950803/tgflow/internal/wire"
)

type stubTransport struct {
	boxes []*wire.Updates
	sent  *wire.SendMessageRequest
	ack   *wire.UpdateShortSentMessage
}

func (s *stubTransport) Recv(ctx context.Context) (*wire.Updates, error) {
	if len(s.boxes) == 0 {
		return nil, errors.ErrTransportClosed
	}
	box := s.boxes[0]
	s.boxes = s.boxes[1:]
	return box, nil
}

func (s *stubTransport) SendMessage(ctx context.Context, req *wire.SendMessageRequest) (*wire.UpdateShortSentMessage, error) {
	s.sent = req
	return s.ack, nil
}
func (s *stubTransport) EditMessage(ctx context.Context, req *wire.EditMessageRequest) error {
	return nil
}
func (s *stubTransport) DeleteMessages(ctx context.Context, req *wire.DeleteMessagesRequest) error {
	return nil
}
func (s *stubTransport) ForwardMessages(ctx context.Context, req *wire.ForwardMessagesRequest) error {
	return nil
}
func (s *stubTransport) SendReaction(ctx context.Context, req *wire.SendReactionRequest) error {
	return nil
}
func (s *stubTransport) PinMessage(ctx context.Context, req *wire.PinMessageRequest) error {
	return nil
}
func (s *stubTransport) ReadHistory(ctx context.Context, req *wire.ReadHistoryRequest) error {
	return nil
}
func (s *stubTransport) GetMessages(ctx context.Context, req *wire.GetMessagesRequest) (*wire.Messages, error) {
	return &wire.Messages{}, nil
}
func (s *stubTransport) Close() error { return nil }

func TestNextUpdateNormalizesBatch(t *testing.T) {
	peer := wire.Peer{Kind: wire.PeerChannel, ID: 500}
	box := &wire.Updates{
		Updates: []wire.UpdateClass{
			&wire.UpdateNewMessage{
				Message: &wire.Message{ID: 1, PeerID: peer, Message: "a"},
				Pts:     101,
			},
			// Empty placeholders produce no dispatch event.
			&wire.UpdateNewMessage{
				Message: &wire.MessageEmpty{ID: 2},
				Pts:     102,
			},
			&wire.UpdateEditMessage{
				Message: &wire.Message{ID: 1, PeerID: peer, Message: "b"},
				Pts:     103,
			},
			&wire.UpdateDeleteMessages{IDs: []int{4, 5}, Pts: 104},
			&wire.UpdateShortSentMessage{ID: 6, Pts: 105},
		},
		Chats: []wire.Chat{{Kind: wire.PeerChannel, ID: 500, Title: "general", Forum: true}},
		State: &wire.State{Pts: 105, Seq: 9, Date: 1700000000},
	}

	c := New(&stubTransport{boxes: []*wire.Updates{box}}, &session.Session{})
	ctx := context.Background()

	first, err := c.NextUpdate(ctx)
	if err != nil {
		t.Fatalf("NextUpdate: %v", err)
	}
	if first.Kind != UpdateNewMessage || first.Message.Text() != "a" {
		t.Fatalf("first = %v %q", first.Kind, first.Message.Text())
	}

	second, err := c.NextUpdate(ctx)
	if err != nil {
		t.Fatalf("NextUpdate: %v", err)
	}
	if second.Kind != UpdateMessageEdited || second.Message.Text() != "b" {
		t.Fatalf("second = %v", second.Kind)
	}

	// Snapshots from one batch share the registry by reference.
	if first.Message.Registry() != second.Message.Registry() {
		t.Fatal("snapshots from one batch got different registries")
	}
	if got := first.Message.Chat().Name(); got != "general" {
		t.Fatalf("Chat().Name() = %q", got)
	}

	third, err := c.NextUpdate(ctx)
	if err != nil {
		t.Fatalf("NextUpdate: %v", err)
	}
	if third.Kind != UpdateMessagesDeleted || len(third.DeletedIDs) != 2 {
		t.Fatalf("third = %v %v", third.Kind, third.DeletedIDs)
	}

	fourth, err := c.NextUpdate(ctx)
	if err != nil {
		t.Fatalf("NextUpdate: %v", err)
	}
	if fourth.Kind != UpdateRaw || fourth.Raw == nil {
		t.Fatalf("fourth = %v", fourth.Kind)
	}

	if st := c.Session().State(); st.Pts != 105 || st.Seq != 9 {
		t.Fatalf("session state = %+v", st)
	}

	// Script exhausted: the transport error surfaces wrapped.
	if _, err := c.NextUpdate(ctx); !errors.Is(err, errors.ErrTransportClosed) {
		t.Fatalf("NextUpdate after close = %v", err)
	}
}

func TestSendMessageSynthesizesSnapshot(t *testing.T) {
	chat := model.Chat{Peer: wire.Peer{Kind: wire.PeerChannel, ID: 500}, Title: "general"}
	tr := &stubTransport{ack: &wire.UpdateShortSentMessage{Out: true, ID: 77, Pts: 200, Date: 1700000003}}
	c := New(tr, &session.Session{})

	msg, err := c.SendMessage(context.Background(), chat, model.Text("hi").ReplyTo(9))
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if msg.ID() != 77 || !msg.Outgoing() || msg.Text() != "hi" {
		t.Fatalf("snapshot = id %d out %t text %q", msg.ID(), msg.Outgoing(), msg.Text())
	}
	if tr.sent.RandomID == "" {
		t.Fatal("send request has no random id")
	}
	if tr.sent.ReplyToMsgID == nil || *tr.sent.ReplyToMsgID != 9 {
		t.Fatalf("send request reply target = %v", tr.sent.ReplyToMsgID)
	}
	if pts := c.Session().State().Pts; pts != 200 {
		t.Fatalf("session pts = %d, want 200 after ack", pts)
	}
}

func TestSendMessageRejectsEmptyPeer(t *testing.T) {
	c := New(&stubTransport{}, &session.Session{})
	if _, err := c.SendMessage(context.Background(), model.Chat{}, model.Text("hi")); !errors.Is(err, errors.ErrPeerEmpty) {
		t.Fatalf("SendMessage(empty peer) = %v, want ErrPeerEmpty", err)
	}
}

func TestReplyOverridesReplyTarget(t *testing.T) {
	peer := wire.Peer{Kind: wire.PeerChat, ID: 7}
	chats := model.NewChatMap(nil, []wire.Chat{{Kind: wire.PeerChat, ID: 7, Title: "t"}})
	orig := model.FromWire(&wire.Message{ID: 55, PeerID: peer}, chats)

	tr := &stubTransport{ack: &wire.UpdateShortSentMessage{ID: 56}}
	c := New(tr, &session.Session{})

	if _, err := c.Reply(context.Background(), orig, model.Text("re").ReplyTo(1)); err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if tr.sent.ReplyToMsgID == nil || *tr.sent.ReplyToMsgID != 55 {
		t.Fatalf("Reply target = %v, want 55", tr.sent.ReplyToMsgID)
	}
}
