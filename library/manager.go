package library

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
)

const (
	logMsgLoaded          = "library loaded"
	logMsgSaved           = "library saved"
	logMsgInconsistent    = "library state is inconsistent"
	logMsgArchiveExported = "archive exported"
	logMsgArchiveRestored = "archive restored"
	logMsgBookLent        = "book lent"
	logMsgBookReturned    = "book returned"
	logMsgLoanDeleted     = "loan deleted"
	logAttrError          = "error"
	logAttrDataDir        = "data_dir"
	logAttrPath           = "path"
	logAttrExportID       = "export_id"
	logAttrBookCount      = "books"
	logAttrUserCount      = "users"
	logAttrLoanCount      = "loans"
	logAttrBookID         = "book_id"
	logAttrUserID         = "user_id"
	logAttrDate           = "date"
)

const (
	inconsistencyFlagNoLoan = "flagged as borrowed without an active loan"
	inconsistencyLoanNoFlag = "has an active loan but is not flagged as borrowed"
)

// LibraryManager is the façade over the book, user and loan stores. It owns the
// three collections, loads and saves them together and serialises every
// operation behind one mutex, since lending touches all three at once.
type LibraryManager struct {
	mu      sync.Mutex
	dataDir string
	logger  *slog.Logger

	books *BookStore
	users *UserStore
	loans *LoanStore
}

// Option configures a LibraryManager.
type Option func(*LibraryManager)

// WithLogger sets the logger used for load/save and circulation events.
func WithLogger(logger *slog.Logger) Option {
	return func(lm *LibraryManager) {
		if logger != nil {
			lm.logger = logger
		}
	}
}

// NewLibraryManager returns an empty library whose documents live in dataDir.
// Nothing is read until Load is called.
func NewLibraryManager(dataDir string, options ...Option) *LibraryManager {
	lm := &LibraryManager{
		dataDir: dataDir,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		books:   NewBookStore(nil),
		users:   NewUserStore(nil),
		loans:   NewLoanStore(nil),
	}
	for _, opt := range options {
		opt(lm)
	}
	return lm
}

func (lm *LibraryManager) DataDir() string { return lm.dataDir }

func (lm *LibraryManager) path(name string) string {
	return filepath.Join(lm.dataDir, name)
}

// ------------------ Persistence ------------------

// Load replaces the in-memory state with the three documents in the data
// directory, creating missing documents as empty arrays first. Loading is
// all-or-nothing: if any document fails, the current state is left untouched.
func (lm *LibraryManager) Load() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	for _, name := range []string{BooksFile, UsersFile, LoansFile} {
		if err := ensureDocument(lm.path(name)); err != nil {
			return fmt.Errorf("prepare %s: %w", lm.path(name), err)
		}
	}

	books, err := loadDocument[Book](lm.path(BooksFile))
	if err != nil {
		return err
	}
	users, err := loadDocument[User](lm.path(UsersFile))
	if err != nil {
		return err
	}
	loans, err := loadDocument[Loan](lm.path(LoansFile))
	if err != nil {
		return err
	}

	lm.books = NewBookStore(books)
	lm.users = NewUserStore(users)
	lm.loans = NewLoanStore(loans)

	lm.logger.Info(logMsgLoaded,
		logAttrDataDir, lm.dataDir,
		logAttrBookCount, len(books),
		logAttrUserCount, len(users),
		logAttrLoanCount, len(loans),
	)
	if err := lm.checkConsistency(); err != nil {
		lm.logger.Warn(logMsgInconsistent, logAttrError, err.Error())
	}
	return nil
}

// Save writes all three documents. Every document is attempted; the returned
// error joins the failures.
func (lm *LibraryManager) Save() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	err := errors.Join(
		saveDocument(lm.path(BooksFile), lm.books.books),
		saveDocument(lm.path(UsersFile), lm.users.users),
		saveDocument(lm.path(LoansFile), lm.loans.loans),
	)
	if err != nil {
		return err
	}

	lm.logger.Info(logMsgSaved, logAttrDataDir, lm.dataDir)
	return nil
}

// ------------------ Book helpers ------------------

func (lm *LibraryManager) AddBook(b Book) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.books.Add(b)
}

func (lm *LibraryManager) GetBook(id uint32) (Book, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.books.Get(id)
}

func (lm *LibraryManager) GetAllBooks() []Book {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.books.List()
}

func (lm *LibraryManager) AvailableBooks() []Book {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.books.Available()
}

func (lm *LibraryManager) UpdateBook(id uint32, u BookUpdate) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.books.UpdateByID(id, u)
}

// RemoveBook deletes a book by id. Loans referencing it are kept.
func (lm *LibraryManager) RemoveBook(id uint32) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.books.DeleteByID(id)
}

func (lm *LibraryManager) SearchBooks(q string) []Book {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.books.Search(q)
}

// ------------------ User helpers ------------------

func (lm *LibraryManager) AddUser(u User) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.users.Add(u)
}

func (lm *LibraryManager) GetUser(id uint32) (User, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.users.Get(id)
}

func (lm *LibraryManager) GetAllUsers() []User {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.users.List()
}

func (lm *LibraryManager) UpdateUser(id uint32, name string) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.users.Update(id, name)
}

func (lm *LibraryManager) RemoveUser(id uint32) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.users.Delete(id)
}

func (lm *LibraryManager) SearchUsers(q string) []User {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.users.Search(q)
}

// ------------------ Circulation ------------------

// LoanBook lends bookID to userID on loanDate.
func (lm *LibraryManager) LoanBook(userID, bookID uint32, loanDate string) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if err := lm.loans.Create(lm.users, lm.books, userID, bookID, loanDate); err != nil {
		return err
	}
	lm.logger.Debug(logMsgBookLent, logAttrUserID, userID, logAttrBookID, bookID, logAttrDate, loanDate)
	return nil
}

// ReturnBook closes the active loan of bookID on returnDate.
func (lm *LibraryManager) ReturnBook(bookID uint32, returnDate string) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if err := lm.loans.Return(lm.books, bookID, returnDate); err != nil {
		return err
	}
	lm.logger.Debug(logMsgBookReturned, logAttrBookID, bookID, logAttrDate, returnDate)
	return nil
}

// DeleteLoan drops the active loan record of bookID without touching the book.
func (lm *LibraryManager) DeleteLoan(bookID uint32) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if err := lm.loans.Delete(bookID); err != nil {
		return err
	}
	lm.logger.Debug(logMsgLoanDeleted, logAttrBookID, bookID)
	return nil
}

func (lm *LibraryManager) ActiveLoans() []Loan {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.loans.Active()
}

func (lm *LibraryManager) LoansForUser(userID uint32) []Loan {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.loans.ForUser(userID)
}

func (lm *LibraryManager) GetAllLoans() []Loan {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.loans.List()
}

// ------------------ Consistency ------------------

// CheckConsistency compares the borrow flags with the active loans. Every
// mismatch is reported; the result wraps ErrInconsistentState.
func (lm *LibraryManager) CheckConsistency() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.checkConsistency()
}

func (lm *LibraryManager) checkConsistency() error {
	active := make(map[uint32]bool)
	for _, l := range lm.loans.loans {
		if l.Active() {
			active[l.BookID] = true
		}
	}

	var problems []error
	for _, b := range lm.books.books {
		switch {
		case b.IsBorrowed && !active[b.ID]:
			problems = append(problems, fmt.Errorf("book %d %s", b.ID, inconsistencyFlagNoLoan))
		case !b.IsBorrowed && active[b.ID]:
			problems = append(problems, fmt.Errorf("book %d %s", b.ID, inconsistencyLoanNoFlag))
		}
	}
	// Active loans of deleted books are not reported: ReturnBook accepts them.

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInconsistentState, errors.Join(problems...))
}

// ------------------ Archive ------------------

func (lm *LibraryManager) snapshot() Snapshot {
	return Snapshot{
		Books: lm.books.List(),
		Users: lm.users.List(),
		Loans: lm.loans.List(),
	}
}

// ExportArchive writes the current state into the SQLite archive at path and
// returns the export id.
func (lm *LibraryManager) ExportArchive(path string) (string, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	archive, err := OpenArchive(path)
	if err != nil {
		return "", err
	}
	defer archive.Close()

	s := lm.snapshot()
	id, err := archive.WriteSnapshot(s)
	if err != nil {
		return "", err
	}

	lm.logger.Info(logMsgArchiveExported,
		logAttrPath, path,
		logAttrExportID, id,
		logAttrBookCount, len(s.Books),
		logAttrUserCount, len(s.Users),
		logAttrLoanCount, len(s.Loans),
	)
	return id, nil
}

// RestoreArchive replaces the in-memory state with the contents of the SQLite
// archive at path. An archive that was never written yields ErrNoExports. The
// JSON documents are not written; call Save for that.
func (lm *LibraryManager) RestoreArchive(path string) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	archive, err := OpenArchive(path)
	if err != nil {
		return err
	}
	defer archive.Close()

	if _, err := archive.LastExport(); err != nil {
		return err
	}
	s, err := archive.ReadSnapshot()
	if err != nil {
		return err
	}

	lm.books = NewBookStore(s.Books)
	lm.users = NewUserStore(s.Users)
	lm.loans = NewLoanStore(s.Loans)

	lm.logger.Info(logMsgArchiveRestored,
		logAttrPath, path,
		logAttrBookCount, len(s.Books),
		logAttrUserCount, len(s.Users),
		logAttrLoanCount, len(s.Loans),
	)
	if err := lm.checkConsistency(); err != nil {
		lm.logger.Warn(logMsgInconsistent, logAttrError, err.Error())
	}
	return nil
}
