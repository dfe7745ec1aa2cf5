package model

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Scope tells whether a notification goes to one user or to the whole user base.
type Scope string

// Channel is the delivery method of a notification.
type Channel string

const (
	ScopeBroadcast Scope = "broadcast"
	ScopeSingle    Scope = "single"

	ChannelEmail Channel = "email"
	ChannelInApp Channel = "in_app"
)

// QueuedNotification represents a row of the notifications queue table.
type QueuedNotification struct {
	ID          int64          `json:"id"`           // row identifier
	Title       sql.NullString `json:"title"`        // subject or heading
	Description sql.NullString `json:"description"`  // message body, may carry routing prefixes
	TimeCreated time.Time      `json:"time_created"` // time the notification is due
	Status      bool           `json:"status"`       // false = pending, true = dispatched

	// Optional structured routing columns, read only when enabled in config.
	Channel         sql.NullString `json:"channel"`
	Scope           sql.NullString `json:"scope"`
	Recipient       sql.NullString `json:"recipient"`
	RecipientUserID uuid.NullUUID  `json:"recipient_user_id"`
}

// Route is the resolved delivery plan of a queued notification.
type Route struct {
	Scope           Scope
	Channel         Channel
	Recipient       string    // email address for single email routes
	RecipientUserID uuid.UUID // user id for single in-app routes
	Legacy          bool      // true when derived from the description text
}

// InAppNotification is a row of the in-app notification feed.
type InAppNotification struct {
	UserID  uuid.UUID `json:"user_id"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Type    string    `json:"type"`
	IsRead  bool      `json:"is_read"`
}

// DispatchEvent is published for every notification marked as sent.
type DispatchEvent struct {
	RunID          uuid.UUID `json:"run_id"`
	NotificationID int64     `json:"notification_id"`
	Scope          Scope     `json:"scope"`
	Channel        Channel   `json:"channel"`
	Recipients     int       `json:"recipients"`
	DispatchedAt   time.Time `json:"dispatched_at"`
}
