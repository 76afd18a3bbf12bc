package model

import (
	"fmt"
	"strings"

	"github.com/ysy950803/tgflow/internal/wire"
)

// Chat is the resolved metadata for one peer: a user, a small group or a
// channel. Synthetic is set on stand-ins built for references the response
// batch did not include.
type Chat struct {
	Peer      wire.Peer
	Title     string
	Username  string
	Bot       bool
	Broadcast bool
	Megagroup bool
	Forum     bool
	Min       bool
	Synthetic bool
}

func (c Chat) ID() int64 {
	return c.Peer.ID
}

// Name is the display name, falling back to "id N" for synthesized entries.
func (c Chat) Name() string {
	if c.Title != "" {
		return c.Title
	}
	if c.Username != "" {
		return c.Username
	}
	return fmt.Sprintf("id %d", c.Peer.ID)
}

// IsForum reports whether the chat has forum topics enabled. This is a
// property of the chat and independent of any message's topic flag.
func (c Chat) IsForum() bool {
	return c.Forum
}

// ChatMap is the per-batch registry mapping peers to chat metadata. A single
// response carries many entities, some only referenced from deep inside an
// action payload; keeping the whole set shared lets snapshots stay cheap to
// copy. Immutable after construction, safe for concurrent readers.
type ChatMap struct {
	chats map[wire.Peer]Chat
}

// NewChatMap builds the registry from a response's entity sidecar.
func NewChatMap(users []wire.User, chats []wire.Chat) *ChatMap {
	m := make(map[wire.Peer]Chat, len(users)+len(chats))
	for _, u := range users {
		peer := wire.Peer{Kind: wire.PeerUser, ID: u.ID}
		title := strings.TrimSpace(u.FirstName + " " + u.LastName)
		m[peer] = Chat{
			Peer:     peer,
			Title:    title,
			Username: u.Username,
			Bot:      u.Bot,
			Min:      u.Min,
		}
	}
	for _, c := range chats {
		kind := c.Kind
		if kind == "" {
			kind = wire.PeerChat
		}
		peer := wire.Peer{Kind: kind, ID: c.ID}
		m[peer] = Chat{
			Peer:      peer,
			Title:     c.Title,
			Username:  c.Username,
			Broadcast: c.Broadcast,
			Megagroup: c.Megagroup,
			Forum:     c.Forum,
			Min:       c.Min,
		}
	}
	return &ChatMap{chats: m}
}

// SingleChatMap wraps one locally known chat, used when synthesizing
// snapshots from short-sent acknowledgments.
func SingleChatMap(c Chat) *ChatMap {
	return &ChatMap{chats: map[wire.Peer]Chat{c.Peer: c}}
}

// Lookup returns the metadata for peer and whether it was present.
func (m *ChatMap) Lookup(peer wire.Peer) (Chat, bool) {
	if m == nil {
		return Chat{}, false
	}
	c, ok := m.chats[peer]
	return c, ok
}

// Get always resolves: references missing from the batch get a minimal
// synthesized stand-in instead of failing, since responses are not
// guaranteed to include every referenced entity.
func (m *ChatMap) Get(peer wire.Peer) Chat {
	if c, ok := m.Lookup(peer); ok {
		return c
	}
	return Chat{Peer: peer, Synthetic: true}
}

// Len reports how many entities the registry holds.
func (m *ChatMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.chats)
}

// All returns a copy of the registry contents for diagnostics.
func (m *ChatMap) All() []Chat {
	if m == nil {
		return nil
	}
	out := make([]Chat, 0, len(m.chats))
	for _, c := range m.chats {
		out = append(out, c)
	}
	return out
}
