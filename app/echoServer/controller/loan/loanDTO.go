package loan

import "time"

type BorrowReq struct {
	BookID  int64      `json:"book_id" validate:"required,gt=0"`
	DueDate *time.Time `json:"due_date"`
}

type ExtendReq struct {
	Days int `json:"days" validate:"required,gt=0"`
}
