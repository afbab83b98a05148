package model

import "time"

type LoanStatus string

const (
	LoanRequested LoanStatus = "requested"
	LoanApproved  LoanStatus = "approved"
	LoanBorrowed  LoanStatus = "borrowed"
	LoanReturned  LoanStatus = "returned"
	LoanOverdue   LoanStatus = "overdue"
	LoanCancelled LoanStatus = "cancelled"
)

// Active reports whether a status counts against a member's loan cap.
func (s LoanStatus) Active() bool {
	return s == LoanBorrowed || s == LoanOverdue
}

type Loan struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	BookID     int64      `json:"book_id"`
	CopyID     *int64     `json:"copy_id,omitempty"`
	Status     LoanStatus `json:"status"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	DueDate    time.Time  `json:"due_date"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
	FineAmount float64    `json:"fine_amount"`
	Notes      *string    `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
