package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered EventType = "user_registered"
	EventUserCreated    EventType = "user_created"
	EventUserUpdated    EventType = "user_updated"
	EventUserDeleted    EventType = "user_deleted"
)

// Event is a user lifecycle change emitted by services after a successful write.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	UserID    string    `json:"user_id"`
	ActorID   *string   `json:"actor_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// UserChangedPayload lists the fields an update touched. Values are never included.
type UserChangedPayload struct {
	Fields []string `json:"fields"`
}

// UserCreatedPayload describes a new account.
type UserCreatedPayload struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}
