package library

// Book represents a catalogued book and whether it is currently lent out.
// IDs are assigned by the caller; IsBorrowed is kept in sync by the loan store.
type Book struct {
	ID         uint32 `json:"id" db:"id"`
	Title      string `json:"title" db:"title"`
	Author     string `json:"author" db:"author"`
	Pages      uint32 `json:"pages" db:"pages"`
	IsBorrowed bool   `json:"is_borrowed" db:"is_borrowed"`
}

// NewBook returns an available book.
func NewBook(id uint32, title, author string, pages uint32) Book {
	return Book{ID: id, Title: title, Author: author, Pages: pages}
}

// User represents a registered library member.
type User struct {
	ID   uint32 `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

func NewUser(id uint32, name string) User {
	return User{ID: id, Name: name}
}

// Loan records a book lent to a user. ReturnDate stays nil while the loan is
// active and is set exactly once when the book comes back.
type Loan struct {
	UserID     uint32  `json:"user_id" db:"user_id"`
	BookID     uint32  `json:"book_id" db:"book_id"`
	LoanDate   string  `json:"loan_date" db:"loan_date"`
	ReturnDate *string `json:"return_date" db:"return_date"`
}

func NewLoan(userID, bookID uint32, loanDate string) Loan {
	return Loan{UserID: userID, BookID: bookID, LoanDate: loanDate}
}

// Active reports whether the loan has not been returned yet.
func (l Loan) Active() bool { return l.ReturnDate == nil }

// BookUpdate carries the optional fields of a book update; nil fields are left
// untouched.
type BookUpdate struct {
	Title  *string
	Author *string
	Pages  *uint32
}
