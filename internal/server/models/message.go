package models

import "time"

// MaxMessageLen bounds the text of a user question, in characters.
const MaxMessageLen = 4000

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one turn of a session. Seq is assigned by the database and
// breaks ties between messages written in the same instant.
type Message struct {
	ID        string
	SessionID string
	Seq       int64
	Role      Role
	Text      string
	CreatedAt time.Time
}
