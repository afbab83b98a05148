package model

import "time"

type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	ParentID    *int64    `json:"parent_id,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// CategoryNode is a category with its children resolved, for tree views.
type CategoryNode struct {
	Category
	Children []*CategoryNode `json:"children"`
}
