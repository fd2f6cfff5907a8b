package entity

import (
	"time"

	"github.com/bwmarrin/snowflake"

	userentity "github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/internal/user/entity"
)

// Message represents a row in the `messages` table.
type Message struct {
	ID           snowflake.ID `json:"id"`
	FromUsername string       `json:"from_username"`
	ToUsername   string       `json:"to_username"`
	Body         string       `json:"body"`
	SentAt       time.Time    `json:"sent_at"`
	ReadAt       *time.Time   `json:"read_at,omitempty"`
}

// Detail is a message with both participants' public profiles.
type Detail struct {
	ID       snowflake.ID       `json:"id"`
	Body     string             `json:"body"`
	SentAt   time.Time          `json:"sent_at"`
	ReadAt   *time.Time         `json:"read_at"`
	FromUser userentity.Summary `json:"from_user"`
	ToUser   userentity.Summary `json:"to_user"`
}

// Receipt is returned when a message is marked read.
type Receipt struct {
	ID     snowflake.ID `json:"id"`
	ReadAt time.Time    `json:"read_at"`
}
