package model

import (
	"strings"
	"testing"

	"github.com/ysy950803/tgflow/internal/wire"
)

func intPtr(v int) *int { return &v }

func messageWithReply(h wire.ReplyHeader) *Message {
	raw := wire.Message{
		ID:      100,
		PeerID:  wire.Peer{Kind: wire.PeerChannel, ID: 500},
		ReplyTo: h,
		Message: "hi",
	}
	chat := Chat{Peer: raw.PeerID, Title: "general", Forum: true}
	return &Message{raw: raw, chats: SingleChatMap(chat)}
}

func TestTopicIDResolution(t *testing.T) {
	tests := []struct {
		name   string
		header wire.ReplyHeader
		wantID int
		wantOK bool
	}{
		{
			name:   "no header",
			header: nil,
		},
		{
			name: "flag unset with both ids",
			header: &wire.MessageReplyHeader{
				TopID: intPtr(42),
				MsgID: intPtr(7),
			},
		},
		{
			name: "top id wins over msg id",
			header: &wire.MessageReplyHeader{
				ForumTopicFlag: true,
				TopID:          intPtr(42),
				MsgID:          intPtr(7),
			},
			wantID: 42,
			wantOK: true,
		},
		{
			name: "msg id stands in for the topic root",
			header: &wire.MessageReplyHeader{
				ForumTopicFlag: true,
				MsgID:          intPtr(7),
			},
			wantID: 7,
			wantOK: true,
		},
		{
			name: "flag set but no ids",
			header: &wire.MessageReplyHeader{
				ForumTopicFlag: true,
			},
		},
		{
			name: "legacy header mandatory msg id",
			header: &wire.LegacyReplyHeader{
				ForumTopicFlag: true,
				MsgID:          9,
			},
			wantID: 9,
			wantOK: true,
		},
		{
			name: "legacy header top id wins",
			header: &wire.LegacyReplyHeader{
				ForumTopicFlag: true,
				MsgID:          9,
				TopID:          intPtr(3),
			},
			wantID: 3,
			wantOK: true,
		},
		{
			name: "legacy header flag unset",
			header: &wire.LegacyReplyHeader{
				MsgID: 9,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := messageWithReply(tt.header)
			id, ok := msg.TopicID()
			if ok != tt.wantOK || id != tt.wantID {
				t.Fatalf("TopicID() = (%d, %t), want (%d, %t)", id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestIsForumTopicIndependentOfChat(t *testing.T) {
	// The chat metadata says "not a forum" but the message flag is set; the
	// flag must win because chat metadata can be stale or synthesized.
	raw := wire.Message{
		ID:      1,
		PeerID:  wire.Peer{Kind: wire.PeerChannel, ID: 500},
		ReplyTo: &wire.MessageReplyHeader{ForumTopicFlag: true, MsgID: intPtr(7)},
	}
	msg := &Message{raw: raw, chats: SingleChatMap(Chat{Peer: raw.PeerID})}

	if !msg.IsForumTopic() {
		t.Fatal("IsForumTopic() = false, want true")
	}
	if msg.Chat().IsForum() {
		t.Fatal("Chat().IsForum() = true, want false")
	}
}

func TestIsInTopics(t *testing.T) {
	msg := messageWithReply(&wire.MessageReplyHeader{
		ForumTopicFlag: true,
		TopID:          intPtr(42),
		MsgID:          intPtr(7),
	})

	if !msg.IsInTopic(42) {
		t.Fatal("IsInTopic(42) = false, want true")
	}
	if msg.IsInTopic(7) {
		t.Fatal("IsInTopic(7) = true, want false")
	}
	if !msg.IsInTopics([]int{1, 42, 99}) {
		t.Fatal("IsInTopics({1,42,99}) = false, want true")
	}
	if msg.IsInTopics(nil) {
		t.Fatal("IsInTopics(empty) = true, want false")
	}

	// A message with no resolvable topic matches nothing, including sets
	// containing zero.
	none := messageWithReply(nil)
	if none.IsInTopics([]int{0}) {
		t.Fatal("IsInTopics({0}) on topic-less message = true, want false")
	}
}

func TestReplyDescriptorRecomputed(t *testing.T) {
	msg := messageWithReply(&wire.MessageReplyHeader{
		ForumTopicFlag: true,
		TopID:          intPtr(42),
	})

	d1 := msg.ReplyDescriptor()
	d2 := msg.ReplyDescriptor()
	if d1 == d2 {
		t.Fatal("ReplyDescriptor() returned the same pointer twice, want fresh values")
	}

	// Mutating a returned descriptor must not leak into later resolutions.
	d1.ForumTopic = false
	if _, ok := msg.TopicID(); !ok {
		t.Fatal("TopicID() lost resolution after descriptor mutation")
	}
}

func TestDebugTopicInfo(t *testing.T) {
	msg := messageWithReply(&wire.MessageReplyHeader{
		ForumTopicFlag: true,
		MsgID:          intPtr(7),
	})

	got := msg.DebugTopicInfo()
	for _, want := range []string{
		"messageReplyHeader",
		"forum_topic flag: true",
		"reply_to_top_id: none",
		"reply_to_msg_id: 7",
		"resolved topic id: 7",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("DebugTopicInfo() missing %q:\n%s", want, got)
		}
	}

	if got := messageWithReply(nil).DebugTopicInfo(); got != "no reply header found" {
		t.Errorf("DebugTopicInfo() without header = %q", got)
	}
}
