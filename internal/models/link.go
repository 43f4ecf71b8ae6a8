package models

import (
	"time"
)

type Link struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	ShortCode    string    `json:"short_code"`
	OriginalURL  string    `json:"original_url"`
	Domain       string    `json:"domain"`
	Active       bool      `json:"active"`
	TotalClicks  int64     `json:"total_clicks"`
	UniqueClicks int64     `json:"unique_clicks"`
	CreatedAt    time.Time `json:"created_at"`
}

// LinkStats is the public stats payload; internal row ids never leave the API.
type LinkStats struct {
	ShortCode    string           `json:"short_code"`
	ShortURL     string           `json:"short_url"`
	TotalClicks  int64            `json:"total_clicks"`
	UniqueClicks int64            `json:"unique_clicks"`
	ClicksToday  int64            `json:"clicks_today"`
	CreatedAt    time.Time        `json:"created_at"`
	Devices      map[string]int64 `json:"devices"`
	Browsers     map[string]int64 `json:"browsers"`
}

type DailyClickStats struct {
	Date   string `json:"date"`
	Clicks int64  `json:"clicks"`
}
