package entity

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// User represents a row in the `users` table. Password holds the bcrypt hash
// and is never serialized.
type User struct {
	Username    string     `db:"username" json:"username"`
	Password    string     `db:"password" json:"-"`
	FirstName   string     `db:"first_name" json:"first_name"`
	LastName    string     `db:"last_name" json:"last_name"`
	Phone       string     `db:"phone" json:"phone"`
	JoinAt      time.Time  `db:"join_at" json:"join_at"`
	LastLoginAt *time.Time `db:"last_login_at" json:"last_login_at"`
}

// Summary is the public profile of a user.
type Summary struct {
	Username  string `db:"username" json:"username"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
	Phone     string `db:"phone" json:"phone"`
}

// Public projects u onto its public profile.
func (u User) Public() Summary {
	return Summary{Username: u.Username, FirstName: u.FirstName, LastName: u.LastName, Phone: u.Phone}
}

// UserMessage is a message seen from one side of the conversation: messages
// sent by a user carry ToUser, messages received carry FromUser.
type UserMessage struct {
	ID       snowflake.ID `json:"id"`
	ToUser   *Summary     `json:"to_user,omitempty"`
	FromUser *Summary     `json:"from_user,omitempty"`
	Body     string       `json:"body"`
	SentAt   time.Time    `json:"sent_at"`
	ReadAt   *time.Time   `json:"read_at"`
}
