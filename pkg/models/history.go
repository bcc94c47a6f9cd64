package models

import "time"

type SearchHistory struct {
	ID           int64     `json:"id"`
	Query        string    `json:"query"`
	ResultsCount int       `json:"results_count"`
	CategoryID   *int64    `json:"category_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
