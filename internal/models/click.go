package models

import (
	"time"
)

// Device categories derived from the user-agent string.
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
)

// Click is an append-only record of one redirect.
type Click struct {
	ID        int64     `json:"id"`
	LinkID    int64     `json:"link_id"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	Referer   string    `json:"referer"`
	Device    string    `json:"device"`
	Browser   string    `json:"browser"`
	// Unique marks the first recorded click from this address for this link,
	// as known at insert time.
	Unique    bool      `json:"unique"`
	ClickedAt time.Time `json:"clicked_at"`
}

// ClickEvent is the raw capture handed to the click worker pool.
type ClickEvent struct {
	ShortCode string
	IPAddress string
	UserAgent string
	Referer   string
}

// ClickResult reports what the tracker recorded.
type ClickResult struct {
	Recorded bool
	Unique   bool
}
