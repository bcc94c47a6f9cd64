package models

import "time"

type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Icon        string    `json:"icon,omitempty"`
	Description string    `json:"description,omitempty"`
	ImageCount  int       `json:"image_count"`
	CreatedAt   time.Time `json:"created_at"`
}
