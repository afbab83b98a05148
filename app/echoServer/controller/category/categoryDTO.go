package category

type CategoryReq struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
	ParentID    *int64  `json:"parent_id" validate:"omitempty,gt=0"`
	IsActive    *bool   `json:"is_active"`
}
