package models

import "time"

// DefaultSessionTitle is used when a session is created without a title.
const DefaultSessionTitle = "Untitled"

// MaxSessionTitleLen bounds session titles, in characters.
const MaxSessionTitleLen = 200

// Session is a titled conversation owned by exactly one user.
type Session struct {
	ID        string
	UserID    string
	Title     string
	CreatedAt time.Time
}
