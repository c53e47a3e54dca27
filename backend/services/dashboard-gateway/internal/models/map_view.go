package models

import "time"

// MapView is a saved map viewport with its filters.
type MapView struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Zoom      float64   `json:"zoom"`
	Metric    string    `json:"metric"`
	Filter    LogFilter `json:"filter"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Default map center (New Delhi) and zoom used before any view is saved.
const (
	DefaultLat  = 28.6139
	DefaultLng  = 77.2090
	DefaultZoom = 12
)
