package models

import (
	"time"
)

// User is created on the first link request from a new messaging identity.
type User struct {
	ID          int64     `json:"id"`
	Identity    string    `json:"identity"` // external messaging account id
	DisplayName string    `json:"display_name,omitempty"`
	TotalLinks  int64     `json:"total_links_created"`
	CreatedAt   time.Time `json:"created_at"`
}
