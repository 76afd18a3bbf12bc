package wire

// PeerKind 对端类型
type PeerKind string

const (
	PeerUser    PeerKind = "user"
	PeerChat    PeerKind = "chat"
	PeerChannel PeerKind = "channel"
)

// Peer references a user, small group or channel by bare identifier.
// It carries no access information; resolving it against the entity
// set of the same response is the registry's job.
type Peer struct {
	Kind PeerKind `json:"kind"`
	ID   int64    `json:"id"`
}

func (p Peer) IsZero() bool {
	return p.Kind == "" && p.ID == 0
}

// User is the decoded user entity as it appears in a response sidecar.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
	Bot       bool   `json:"bot,omitempty"`
	Self      bool   `json:"self,omitempty"`
	Min       bool   `json:"min,omitempty"`
}

// Chat is the decoded group/channel entity from a response sidecar.
type Chat struct {
	ID          int64    `json:"id"`
	Kind        PeerKind `json:"kind"`
	Title       string   `json:"title,omitempty"`
	Username    string   `json:"username,omitempty"`
	Broadcast   bool     `json:"broadcast,omitempty"`
	Megagroup   bool     `json:"megagroup,omitempty"`
	Forum       bool     `json:"forum,omitempty"`
	Min         bool     `json:"min,omitempty"`
	Deactivated bool     `json:"deactivated,omitempty"`
}
