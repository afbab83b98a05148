package model

import "time"

type Condition string

const (
	ConditionNew  Condition = "new"
	ConditionGood Condition = "good"
	ConditionFair Condition = "fair"
	ConditionPoor Condition = "poor"
)

type Book struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	ISBN            *string   `json:"isbn,omitempty"`
	Publisher       *string   `json:"publisher,omitempty"`
	Year            *int      `json:"year,omitempty"`
	CategoryID      *int64    `json:"category_id,omitempty"`
	Summary         *string   `json:"summary,omitempty"`
	TotalCopies     int64     `json:"total_copies"`
	AvailableCopies int64     `json:"available_copies"`
	Condition       Condition `json:"condition"`
	Location        *string   `json:"location,omitempty"`
	IsAvailable     bool      `json:"is_available"`
	CreatedAt       time.Time `json:"created_at"`
}

// Copy is one physical instance of a book.
type Copy struct {
	ID          int64     `json:"id"`
	BookID      int64     `json:"book_id"`
	Barcode     string    `json:"barcode"`
	Condition   Condition `json:"condition"`
	Location    *string   `json:"location,omitempty"`
	IsAvailable bool      `json:"is_available"`
	Notes       *string   `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
