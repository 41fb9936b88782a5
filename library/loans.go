package library

import "fmt"

// LoanStore owns the loan collection. It never keeps book or user records of
// its own: the stores it needs are passed in per call, so the borrow flag on
// the book record stays the only place availability is recorded.
type LoanStore struct {
	loans []Loan
}

func NewLoanStore(loans []Loan) *LoanStore {
	return &LoanStore{loans: loans}
}

// Create lends a book to a user.
//
// The checks run in this order and none of them mutates anything:
//   - the user must exist (ErrUserNotFound)
//   - the book must exist (ErrBookNotFound)
//   - the book must not be flagged as borrowed (ErrBookNotAvailable)
//   - no active loan may reference the book (ErrLoanAlreadyExists)
//
// The flag and the active loans describe the same fact, so the last check only
// fails when the two have drifted apart. Only after every check passes is the
// book flagged and the loan appended.
func (s *LoanStore) Create(users *UserStore, books *BookStore, userID, bookID uint32, loanDate string) error {
	if !users.Exists(userID) {
		return fmt.Errorf("user %d: %w", userID, ErrUserNotFound)
	}

	book := books.find(bookID)
	if book == nil {
		return fmt.Errorf("book %d: %w", bookID, ErrBookNotFound)
	}
	if book.IsBorrowed {
		return fmt.Errorf("book %d: %w", bookID, ErrBookNotAvailable)
	}

	if s.activeIndex(bookID) >= 0 {
		return fmt.Errorf("book %d: %w", bookID, ErrLoanAlreadyExists)
	}

	book.IsBorrowed = true
	s.loans = append(s.loans, NewLoan(userID, bookID, loanDate))
	return nil
}

// Return closes the active loan for bookID and makes the book available again.
// A loan whose book has since been deleted is still marked as returned.
func (s *LoanStore) Return(books *BookStore, bookID uint32, returnDate string) error {
	i := s.activeIndex(bookID)
	if i < 0 {
		return fmt.Errorf("book %d: %w", bookID, ErrLoanNotFound)
	}

	date := returnDate
	s.loans[i].ReturnDate = &date

	if book := books.find(bookID); book != nil {
		book.IsBorrowed = false
	}
	return nil
}

// Delete removes the active loan for bookID. It is a raw record deletion: the
// book's borrow flag is left as it is.
func (s *LoanStore) Delete(bookID uint32) error {
	i := s.activeIndex(bookID)
	if i < 0 {
		return fmt.Errorf("book %d: %w", bookID, ErrLoanNotFound)
	}
	s.loans = append(s.loans[:i], s.loans[i+1:]...)
	return nil
}

// Active returns the loans that have not been returned, in collection order.
func (s *LoanStore) Active() []Loan {
	results := []Loan{}
	for _, l := range s.loans {
		if l.Active() {
			results = append(results, cloneLoan(l))
		}
	}
	return results
}

// ForUser returns every loan of the user, returned or not.
func (s *LoanStore) ForUser(userID uint32) []Loan {
	results := []Loan{}
	for _, l := range s.loans {
		if l.UserID == userID {
			results = append(results, cloneLoan(l))
		}
	}
	return results
}

func (s *LoanStore) List() []Loan {
	out := make([]Loan, len(s.loans))
	for i, l := range s.loans {
		out[i] = cloneLoan(l)
	}
	return out
}

func (s *LoanStore) Len() int { return len(s.loans) }

func (s *LoanStore) activeIndex(bookID uint32) int {
	for i, l := range s.loans {
		if l.BookID == bookID && l.Active() {
			return i
		}
	}
	return -1
}

// cloneLoan detaches the return date so callers cannot reach into the store.
func cloneLoan(l Loan) Loan {
	if l.ReturnDate != nil {
		d := *l.ReturnDate
		l.ReturnDate = &d
	}
	return l
}
