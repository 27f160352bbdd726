package chat

import (
	"errors"
	"time"
)

const (
	// AnonymousNickname is used when a message arrives without a nickname.
	AnonymousNickname = "Anonymous"
	// SentimentUnknown is stored when the text could not be scored.
	SentimentUnknown = "Unknown"

	DefaultListLimit = 50
	MaxListLimit     = 200
)

// ErrInvalidMessage is returned for blank message text.
var ErrInvalidMessage = errors.New("message text is required")

// User is a chat participant identified by nickname.
type User struct {
	ID        int64     `json:"id"`
	Nickname  string    `json:"nickname"`
	CreatedAt time.Time `json:"createdAt"`
}

// Message is a posted text together with its sentiment label.
type Message struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Nickname  string    `json:"nickname"`
	Text      string    `json:"text"`
	Sentiment string    `json:"sentiment"`
	CreatedAt time.Time `json:"createdAt"`
}
