package book

type CreateBookReq struct {
	Title       string  `json:"title" validate:"required"`
	Author      string  `json:"author" validate:"required"`
	ISBN        *string `json:"isbn"`
	Publisher   *string `json:"publisher"`
	Year        *int    `json:"year" validate:"omitempty,gte=0"`
	CategoryID  *int64  `json:"category_id" validate:"omitempty,gt=0"`
	Summary     *string `json:"summary"`
	TotalCopies int64   `json:"total_copies" validate:"required,gt=0"`
	Condition   string  `json:"condition" validate:"omitempty,oneof=new good fair poor"`
	Location    *string `json:"location"`
}

type UpdateBookReq struct {
	Title       *string `json:"title"`
	Author      *string `json:"author"`
	ISBN        *string `json:"isbn"`
	Publisher   *string `json:"publisher"`
	Year        *int    `json:"year" validate:"omitempty,gte=0"`
	CategoryID  *int64  `json:"category_id" validate:"omitempty,gt=0"`
	Summary     *string `json:"summary"`
	TotalCopies *int64  `json:"total_copies" validate:"omitempty,gt=0"`
	Condition   *string `json:"condition" validate:"omitempty,oneof=new good fair poor"`
	Location    *string `json:"location"`
	IsAvailable *bool   `json:"is_available"`
}

type AddCopiesReq struct {
	Count     int     `json:"count" validate:"required,gt=0"`
	Condition string  `json:"condition" validate:"omitempty,oneof=new good fair poor"`
	Location  *string `json:"location"`
}
