package library

import "errors"

// Book and user store errors.
var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
)

// Loan store errors.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrBookNotFound      = errors.New("book not found")
	ErrBookNotAvailable  = errors.New("book is not available")
	ErrLoanAlreadyExists = errors.New("loan already exists")
	ErrLoanNotFound      = errors.New("loan not found")
)

// Persistence errors. They are joined with the underlying cause, so both the
// category and the low-level error are reachable through errors.Is / errors.As.
var (
	ErrIO     = errors.New("io error")
	ErrFormat = errors.New("malformed document")
)

// ErrInconsistentState is returned by CheckConsistency when the borrow flags
// and the active loans disagree.
var ErrInconsistentState = errors.New("inconsistent library state")
