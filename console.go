package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/AndreWozniack/LibraryManager/internal/display"
	"github.com/AndreWozniack/LibraryManager/library"
)

const (
	dateLayout   = "2006-01-02"
	defaultWidth = 100
)

// console drives the numbered menu. It reads one line per prompt from in and
// writes everything to out, so tests can run it over buffers.
type console struct {
	sc  *bufio.Scanner
	out io.Writer
	mgr *library.LibraryManager
}

func newConsole(in io.Reader, out io.Writer, mgr *library.LibraryManager) *console {
	return &console{sc: bufio.NewScanner(in), out: out, mgr: mgr}
}

// run shows the menu until the user picks exit or input ends. Saving is left
// to the caller.
func (c *console) run() {
	for {
		fmt.Fprintln(c.out, "\n===== Library Management =====")
		fmt.Fprintln(c.out, "1. Add book")
		fmt.Fprintln(c.out, "2. Add user")
		fmt.Fprintln(c.out, "3. Loan book")
		fmt.Fprintln(c.out, "4. Return book")
		fmt.Fprintln(c.out, "5. List books")
		fmt.Fprintln(c.out, "6. List users")
		fmt.Fprintln(c.out, "7. List active loans")
		fmt.Fprintln(c.out, "8. Search books")
		fmt.Fprintln(c.out, "9. Exit")

		choice, ok := c.prompt("Choose an option: ")
		if !ok {
			return
		}

		switch choice {
		case "1":
			c.handleAddBook()
		case "2":
			c.handleAddUser()
		case "3":
			c.handleLoan()
		case "4":
			c.handleReturn()
		case "5":
			c.handleListBooks(c.mgr.GetAllBooks())
		case "6":
			c.handleListUsers()
		case "7":
			c.handleListActiveLoans()
		case "8":
			c.handleSearchBooks()
		case "9":
			fmt.Fprintln(c.out, "Goodbye!")
			return
		default:
			fmt.Fprintln(c.out, "Invalid option. Try again.")
		}
	}
}

func (c *console) handleAddBook() {
	fmt.Fprintln(c.out, "\n--- Add a new book ---")

	id, ok := c.promptUint("Book ID: ")
	if !ok {
		return
	}
	title, ok := c.prompt("Title: ")
	if !ok {
		return
	}
	author, ok := c.prompt("Author: ")
	if !ok {
		return
	}
	pages, ok := c.promptUint("Pages: ")
	if !ok {
		return
	}

	if err := c.mgr.AddBook(library.NewBook(id, title, author, pages)); err != nil {
		fmt.Fprintf(c.out, "Error adding book: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Added book ID %d.\n", id)
}

func (c *console) handleAddUser() {
	fmt.Fprintln(c.out, "\n--- Add a new user ---")

	id, ok := c.promptUint("User ID: ")
	if !ok {
		return
	}
	name, ok := c.prompt("Name: ")
	if !ok {
		return
	}

	if err := c.mgr.AddUser(library.NewUser(id, name)); err != nil {
		fmt.Fprintf(c.out, "Error adding user: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Added user '%s' with ID %d.\n", name, id)
}

func (c *console) handleLoan() {
	fmt.Fprintln(c.out, "\n--- Loan a book ---")
	fmt.Fprintln(c.out, "1. List all available books")
	fmt.Fprintln(c.out, "2. Search by title or author")

	option, ok := c.prompt("Choose an option: ")
	if !ok {
		return
	}

	var candidates []library.Book
	switch option {
	case "1":
		candidates = c.mgr.AvailableBooks()
	case "2":
		query, ok := c.prompt("Title or author: ")
		if !ok {
			return
		}
		for _, b := range c.mgr.SearchBooks(query) {
			if !b.IsBorrowed {
				candidates = append(candidates, b)
			}
		}
	default:
		fmt.Fprintln(c.out, "Invalid option.")
		return
	}

	if len(candidates) == 0 {
		fmt.Fprintln(c.out, "No available books found.")
		return
	}
	fmt.Fprintln(c.out, "Available books:")
	c.handleListBooks(candidates)

	bookID, ok := c.promptUint("Book ID to lend: ")
	if !ok {
		return
	}
	book, err := c.mgr.GetBook(bookID)
	if err != nil {
		fmt.Fprintln(c.out, "Book not found.")
		return
	}
	if book.IsBorrowed {
		fmt.Fprintln(c.out, "This book is already on loan.")
		return
	}

	users := c.mgr.GetAllUsers()
	if len(users) == 0 {
		fmt.Fprintln(c.out, "No users registered.")
		return
	}
	fmt.Fprintln(c.out, "Registered users:")
	for _, u := range users {
		fmt.Fprintf(c.out, "ID: %d, Name: %s\n", u.ID, u.Name)
	}

	userID, ok := c.promptUint("User ID: ")
	if !ok {
		return
	}
	if _, err := c.mgr.GetUser(userID); err != nil {
		fmt.Fprintln(c.out, "User not found.")
		return
	}

	loanDate, ok := c.promptDate("Loan date (YYYY-MM-DD, empty for today): ")
	if !ok {
		return
	}

	if err := c.mgr.LoanBook(userID, bookID, loanDate); err != nil {
		fmt.Fprintf(c.out, "Error lending book: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "'%s' lent to user %d.\n", book.Title, userID)
}

func (c *console) handleReturn() {
	fmt.Fprintln(c.out, "\n--- Return a book ---")

	bookID, ok := c.promptUint("Book ID: ")
	if !ok {
		return
	}
	returnDate, ok := c.promptDate("Return date (YYYY-MM-DD, empty for today): ")
	if !ok {
		return
	}

	if err := c.mgr.ReturnBook(bookID, returnDate); err != nil {
		fmt.Fprintf(c.out, "Error returning book: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Book %d returned.\n", bookID)
}

func (c *console) handleListBooks(books []library.Book) {
	if len(books) == 0 {
		fmt.Fprintln(c.out, "No books in the library.")
		return
	}

	// ID, pages and status columns plus separators take 30 characters.
	rest := max(terminalWidth(c.out)-30, 20)
	titleWidth := rest * 3 / 5
	authorWidth := rest - titleWidth

	fmt.Fprintf(c.out, "%-6s %-*s %-*s %-7s %s\n", "ID", titleWidth, "Title", authorWidth, "Author", "Pages", "Status")
	fmt.Fprintln(c.out, strings.Repeat("-", titleWidth+authorWidth+30))
	for _, b := range books {
		status := "Available"
		if b.IsBorrowed {
			status = "On loan"
		}
		fmt.Fprintf(c.out, "%-6d %-*s %-*s %-7d %s\n",
			b.ID,
			titleWidth, display.Truncate(b.Title, titleWidth),
			authorWidth, display.Truncate(b.Author, authorWidth),
			b.Pages,
			status)
	}
}

func (c *console) handleListUsers() {
	fmt.Fprintln(c.out, "\n--- Users ---")
	users := c.mgr.GetAllUsers()
	if len(users) == 0 {
		fmt.Fprintln(c.out, "No users registered.")
		return
	}
	for _, u := range users {
		fmt.Fprintf(c.out, "ID: %d, Name: %s\n", u.ID, u.Name)
	}
}

func (c *console) handleListActiveLoans() {
	fmt.Fprintln(c.out, "\n--- Active loans ---")
	loans := c.mgr.ActiveLoans()
	if len(loans) == 0 {
		fmt.Fprintln(c.out, "No active loans.")
		return
	}

	fmt.Fprintf(c.out, "%-8s %-8s %-12s %s\n", "Book", "User", "Since", "Title")
	fmt.Fprintln(c.out, strings.Repeat("-", 60))
	for _, l := range loans {
		title := "(removed)"
		if b, err := c.mgr.GetBook(l.BookID); err == nil {
			title = b.Title
		}
		fmt.Fprintf(c.out, "%-8d %-8d %-12s %s\n", l.BookID, l.UserID, l.LoanDate, title)
	}
}

func (c *console) handleSearchBooks() {
	fmt.Fprintln(c.out, "\n--- Search books ---")
	query, ok := c.prompt("Title or author: ")
	if !ok {
		return
	}

	results := c.mgr.SearchBooks(query)
	if len(results) == 0 {
		fmt.Fprintln(c.out, "No books match that term.")
		return
	}
	c.handleListBooks(results)
}

// ------------------ Prompts ------------------

// prompt prints label and returns the next trimmed line. ok is false once the
// input is exhausted.
func (c *console) prompt(label string) (string, bool) {
	fmt.Fprint(c.out, label)
	if !c.sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.sc.Text()), true
}

// promptUint re-asks until the line parses as an unsigned 32-bit integer.
func (c *console) promptUint(label string) (uint32, bool) {
	for {
		s, ok := c.prompt(label)
		if !ok {
			return 0, false
		}
		n, err := strconv.ParseUint(s, 10, 32)
		if err == nil {
			return uint32(n), true
		}
		fmt.Fprintln(c.out, "Invalid number. Try again.")
	}
}

// promptDate returns the entered date text unchanged, or today's date when
// the line is empty. The format is not validated.
func (c *console) promptDate(label string) (string, bool) {
	s, ok := c.prompt(label)
	if !ok {
		return "", false
	}
	if s == "" {
		s = time.Now().Format(dateLayout)
	}
	return s, true
}

// terminalWidth reports the width of out when it is a terminal.
func terminalWidth(out io.Writer) int {
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return defaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}
