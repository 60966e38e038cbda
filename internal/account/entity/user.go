package entity

import "time"

// UserRecord is the application-level profile stored at key user_{principalId}.
// A record exists iff the corresponding provider principal exists; the two are
// created in the same logical operation. The layout is additive-only: readers
// must tolerate absent fields, so nothing here may become required later.
type UserRecord struct {
	Email     string    `json:"email"`
	Name      *string   `json:"name,omitempty"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
	LastLogin time.Time `json:"lastLogin"`
}
