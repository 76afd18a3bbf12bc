package model

import (
	"fmt"
	"strings"

	"github.com/ysy950803/tgflow/internal/wire"
)

// ReplyDescriptor is the normalized view over the reply-header generations:
// the sole input to topic resolution. A nil descriptor means the message has
// no reply header at all, which is distinct from a present-but-empty one.
type ReplyDescriptor struct {
	ForumTopic bool
	TopID      *int
	MsgID      *int
}

func newReplyDescriptor(h wire.ReplyHeader) *ReplyDescriptor {
	if h == nil {
		return nil
	}
	d := &ReplyDescriptor{ForumTopic: h.ForumTopic()}
	if id, ok := h.ReplyToTopID(); ok {
		d.TopID = &id
	}
	if id, ok := h.ReplyToMsgID(); ok {
		d.MsgID = &id
	}
	return d
}

// TopicID resolves the forum-topic identifier from the descriptor:
//
//  1. no descriptor, or the forum flag unset: no topic;
//  2. reply_to_top_id when present: the authoritative id for replies inside
//     an existing topic thread;
//  3. otherwise reply_to_msg_id: the topic's root message is referenced this
//     way and its id stands in as the topic id;
//  4. flag set but neither id present: unknown, never a sentinel value.
func (d *ReplyDescriptor) TopicID() (int, bool) {
	if d == nil || !d.ForumTopic {
		return 0, false
	}
	if d.TopID != nil {
		return *d.TopID, true
	}
	if d.MsgID != nil {
		return *d.MsgID, true
	}
	return 0, false
}

// ReplyDescriptor returns the normalized reply header, or nil when the
// message has none. Recomputed on every call; the snapshot caches nothing.
func (m *Message) ReplyDescriptor() *ReplyDescriptor {
	return newReplyDescriptor(m.raw.ReplyTo)
}

// IsForumTopic reports whether the message is flagged as belonging to a
// forum topic. This is independent of whether the chat itself resolves as
// forum-enabled; stale or missing chat metadata must not mask the flag.
func (m *Message) IsForumTopic() bool {
	return m.raw.ReplyTo != nil && m.raw.ReplyTo.ForumTopic()
}

// TopicID resolves the forum-topic id of this message, when derivable.
func (m *Message) TopicID() (int, bool) {
	return m.ReplyDescriptor().TopicID()
}

// IsInTopic reports whether the message belongs to the given topic.
func (m *Message) IsInTopic(topicID int) bool {
	id, ok := m.TopicID()
	return ok && id == topicID
}

// IsInTopics reports whether the message belongs to any of the given topics.
// An empty set never matches.
func (m *Message) IsInTopics(topicIDs []int) bool {
	id, ok := m.TopicID()
	if !ok {
		return false
	}
	for _, t := range topicIDs {
		if t == id {
			return true
		}
	}
	return false
}

// DebugTopicInfo renders the topic-resolution inputs and outcome for this
// snapshot. Meant for operators reading logs, not for machine consumption.
func (m *Message) DebugTopicInfo() string {
	h := m.raw.ReplyTo
	if h == nil {
		return "no reply header found"
	}

	variant := "unknown"
	switch h.(type) {
	case *wire.MessageReplyHeader:
		variant = "messageReplyHeader"
	case *wire.LegacyReplyHeader:
		variant = "messageReplyHeaderLegacy"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "topic debug info:\n")
	fmt.Fprintf(&b, "- message id: %d\n", m.raw.ID)
	fmt.Fprintf(&b, "- chat is forum-enabled: %t\n", m.Chat().IsForum())
	fmt.Fprintf(&b, "- reply header variant: %s\n", variant)
	fmt.Fprintf(&b, "- forum_topic flag: %t\n", h.ForumTopic())
	fmt.Fprintf(&b, "- reply_to_top_id: %s\n", formatOptID(h.ReplyToTopID()))
	fmt.Fprintf(&b, "- reply_to_msg_id: %s\n", formatOptID(h.ReplyToMsgID()))
	fmt.Fprintf(&b, "- resolved topic id: %s", formatOptID(m.TopicID()))
	return b.String()
}

func formatOptID(id int, ok bool) string {
	if !ok {
		return "none"
	}
	return fmt.Sprintf("%d", id)
}
