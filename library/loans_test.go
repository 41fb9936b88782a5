package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	books *BookStore
	users *UserStore
	loans *LoanStore
}

func newFixture(books []Book, users []User, loans []Loan) fixture {
	return fixture{
		books: NewBookStore(books),
		users: NewUserStore(users),
		loans: NewLoanStore(loans),
	}
}

func alice() []User { return []User{NewUser(1, "Alice")} }

func goBook(borrowed bool) []Book {
	b := NewBook(1, "Go Book", "Steve", 300)
	b.IsBorrowed = borrowed
	return []Book{b}
}

func strPtr(s string) *string { return &s }

func TestCreateLoan(t *testing.T) {
	f := newFixture(goBook(false), alice(), nil)

	require.NoError(t, f.loans.Create(f.users, f.books, 1, 1, "2023-10-01"))

	loans := f.loans.List()
	require.Len(t, loans, 1)
	assert.Equal(t, NewLoan(1, 1, "2023-10-01"), loans[0])
	assert.Nil(t, loans[0].ReturnDate)

	b, _ := f.books.Get(1)
	assert.True(t, b.IsBorrowed)
}

func TestCreateLoanFailures(t *testing.T) {
	tests := []struct {
		name    string
		books   []Book
		loans   []Loan
		userID  uint32
		bookID  uint32
		wantErr error
	}{
		{
			name:    "unknown user",
			books:   goBook(false),
			userID:  2,
			bookID:  1,
			wantErr: ErrUserNotFound,
		},
		{
			name:    "unknown book",
			books:   nil,
			userID:  1,
			bookID:  1,
			wantErr: ErrBookNotFound,
		},
		{
			name:    "book already borrowed",
			books:   goBook(true),
			userID:  1,
			bookID:  1,
			wantErr: ErrBookNotAvailable,
		},
		{
			name:    "active loan without borrow flag",
			books:   goBook(false),
			loans:   []Loan{NewLoan(1, 1, "2023-10-01")},
			userID:  1,
			bookID:  1,
			wantErr: ErrLoanAlreadyExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.books, alice(), tt.loans)
			booksBefore := f.books.List()
			loansBefore := f.loans.List()

			err := f.loans.Create(f.users, f.books, tt.userID, tt.bookID, "2023-10-02")
			require.ErrorIs(t, err, tt.wantErr)

			assert.Equal(t, booksBefore, f.books.List(), "book state must not change on failure")
			assert.Equal(t, loansBefore, f.loans.List(), "loans must not change on failure")
		})
	}
}

func TestCreateLoanTwiceScenario(t *testing.T) {
	f := newFixture(goBook(false), alice(), nil)

	require.NoError(t, f.loans.Create(f.users, f.books, 1, 1, "2023-10-01"))
	err := f.loans.Create(f.users, f.books, 1, 1, "2023-10-02")
	assert.ErrorIs(t, err, ErrBookNotAvailable)
	assert.Equal(t, 1, f.loans.Len())
}

func TestReturnLoan(t *testing.T) {
	f := newFixture(goBook(false), alice(), nil)
	require.NoError(t, f.loans.Create(f.users, f.books, 1, 1, "2023-10-01"))

	require.NoError(t, f.loans.Return(f.books, 1, "2023-10-10"))

	loans := f.loans.List()
	require.Len(t, loans, 1)
	require.NotNil(t, loans[0].ReturnDate)
	assert.Equal(t, "2023-10-10", *loans[0].ReturnDate)

	b, _ := f.books.Get(1)
	assert.False(t, b.IsBorrowed)
	assert.Empty(t, f.loans.Active())
}

func TestReturnLoanWithoutActiveLoan(t *testing.T) {
	f := newFixture(goBook(false), alice(), []Loan{
		{UserID: 1, BookID: 1, LoanDate: "2023-09-01", ReturnDate: strPtr("2023-09-15")},
	})

	err := f.loans.Return(f.books, 1, "2023-10-10")
	require.ErrorIs(t, err, ErrLoanNotFound)
	assert.Equal(t, "2023-09-15", *f.loans.List()[0].ReturnDate, "a returned loan is never touched again")
}

func TestReturnLoanOfDeletedBook(t *testing.T) {
	f := newFixture(goBook(false), alice(), nil)
	require.NoError(t, f.loans.Create(f.users, f.books, 1, 1, "2023-10-01"))
	require.NoError(t, f.books.DeleteByID(1))

	require.NoError(t, f.loans.Return(f.books, 1, "2023-10-10"))
	assert.Equal(t, "2023-10-10", *f.loans.List()[0].ReturnDate)
}

func TestLoanAfterReturn(t *testing.T) {
	f := newFixture(goBook(false), []User{NewUser(1, "Alice"), NewUser(2, "Bob")}, nil)

	require.NoError(t, f.loans.Create(f.users, f.books, 1, 1, "2023-10-01"))
	require.NoError(t, f.loans.Return(f.books, 1, "2023-10-05"))
	require.NoError(t, f.loans.Create(f.users, f.books, 2, 1, "2023-10-06"))

	active := f.loans.Active()
	require.Len(t, active, 1)
	assert.Equal(t, uint32(2), active[0].UserID)
	assert.Equal(t, 2, f.loans.Len())
}

func TestDeleteLoan(t *testing.T) {
	f := newFixture(goBook(false), alice(), nil)
	require.NoError(t, f.loans.Create(f.users, f.books, 1, 1, "2023-10-01"))

	require.NoError(t, f.loans.Delete(1))
	assert.Zero(t, f.loans.Len())

	b, _ := f.books.Get(1)
	assert.True(t, b.IsBorrowed, "deleting a loan leaves the borrow flag alone")

	assert.ErrorIs(t, f.loans.Delete(1), ErrLoanNotFound)
}

func TestDeleteLoanIgnoresReturnedLoans(t *testing.T) {
	f := newFixture(nil, nil, []Loan{
		{UserID: 1, BookID: 1, LoanDate: "2023-09-01", ReturnDate: strPtr("2023-09-15")},
	})
	assert.ErrorIs(t, f.loans.Delete(1), ErrLoanNotFound)
	assert.Equal(t, 1, f.loans.Len())
}

func TestActiveLoans(t *testing.T) {
	s := NewLoanStore([]Loan{
		NewLoan(1, 1, "2023-10-01"),
		{UserID: 2, BookID: 2, LoanDate: "2023-09-01", ReturnDate: strPtr("2023-09-15")},
		NewLoan(3, 3, "2023-10-03"),
	})

	active := s.Active()
	require.Len(t, active, 2)
	assert.Equal(t, uint32(1), active[0].BookID)
	assert.Equal(t, uint32(3), active[1].BookID)
}

func TestLoansForUser(t *testing.T) {
	s := NewLoanStore([]Loan{
		NewLoan(1, 1, "2023-10-01"),
		{UserID: 1, BookID: 2, LoanDate: "2023-09-01", ReturnDate: strPtr("2023-09-15")},
		{UserID: 2, BookID: 3, LoanDate: "2023-08-01", ReturnDate: strPtr("2023-08-15")},
	})

	loans := s.ForUser(1)
	require.Len(t, loans, 2)
	for _, l := range loans {
		assert.Equal(t, uint32(1), l.UserID)
	}
	assert.Empty(t, s.ForUser(9))
}

func TestLoanListDetachesReturnDate(t *testing.T) {
	s := NewLoanStore([]Loan{{UserID: 1, BookID: 1, LoanDate: "d", ReturnDate: strPtr("r")}})
	*s.List()[0].ReturnDate = "changed"
	assert.Equal(t, "r", *s.List()[0].ReturnDate)
}
