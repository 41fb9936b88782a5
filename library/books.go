package library

import (
	"fmt"
	"strings"
)

// BookStore owns the book collection. It is not safe for concurrent use;
// LibraryManager serialises access.
type BookStore struct {
	books []Book
}

// NewBookStore wraps an existing collection. A nil slice is fine.
func NewBookStore(books []Book) *BookStore {
	return &BookStore{books: books}
}

// Add appends a book unless another book already has the same title and author.
// IDs are not checked for collisions.
func (s *BookStore) Add(b Book) error {
	if s.indexByIdentity(b.Title, b.Author) >= 0 {
		return fmt.Errorf("book %q by %s: %w", b.Title, b.Author, ErrAlreadyExists)
	}
	s.books = append(s.books, b)
	return nil
}

// Get returns a copy of the book with the given id.
func (s *BookStore) Get(id uint32) (Book, error) {
	b := s.find(id)
	if b == nil {
		return Book{}, fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	return *b, nil
}

// UpdateByID applies the non-nil fields of u to the book with the given id.
func (s *BookStore) UpdateByID(id uint32, u BookUpdate) error {
	b := s.find(id)
	if b == nil {
		return fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	if u.Title != nil {
		b.Title = *u.Title
	}
	if u.Author != nil {
		b.Author = *u.Author
	}
	if u.Pages != nil {
		b.Pages = *u.Pages
	}
	return nil
}

// UpdateByIdentity sets the page count of the book matching title and author.
func (s *BookStore) UpdateByIdentity(title, author string, pages uint32) error {
	i := s.indexByIdentity(title, author)
	if i < 0 {
		return fmt.Errorf("book %q by %s: %w", title, author, ErrNotFound)
	}
	s.books[i].Pages = pages
	return nil
}

// DeleteByID removes the first book with the given id.
func (s *BookStore) DeleteByID(id uint32) error {
	for i := range s.books {
		if s.books[i].ID == id {
			s.removeAt(i)
			return nil
		}
	}
	return fmt.Errorf("book %d: %w", id, ErrNotFound)
}

// DeleteByIdentity removes the book matching title and author.
func (s *BookStore) DeleteByIdentity(title, author string) error {
	i := s.indexByIdentity(title, author)
	if i < 0 {
		return fmt.Errorf("book %q by %s: %w", title, author, ErrNotFound)
	}
	s.removeAt(i)
	return nil
}

// Search returns every book whose title or author contains query. Matching is
// case-sensitive; an empty query matches everything.
func (s *BookStore) Search(query string) []Book {
	results := []Book{}
	for _, b := range s.books {
		if strings.Contains(b.Title, query) || strings.Contains(b.Author, query) {
			results = append(results, b)
		}
	}
	return results
}

// Available returns the books that are not currently lent out.
func (s *BookStore) Available() []Book {
	results := []Book{}
	for _, b := range s.books {
		if !b.IsBorrowed {
			results = append(results, b)
		}
	}
	return results
}

// List returns a copy of the collection in insertion order.
func (s *BookStore) List() []Book {
	out := make([]Book, len(s.books))
	copy(out, s.books)
	return out
}

func (s *BookStore) Len() int { return len(s.books) }

// find returns a pointer into the collection so the loan store can flip the
// borrow flag in place.
func (s *BookStore) find(id uint32) *Book {
	for i := range s.books {
		if s.books[i].ID == id {
			return &s.books[i]
		}
	}
	return nil
}

func (s *BookStore) indexByIdentity(title, author string) int {
	for i, b := range s.books {
		if b.Title == title && b.Author == author {
			return i
		}
	}
	return -1
}

func (s *BookStore) removeAt(i int) {
	s.books = append(s.books[:i], s.books[i+1:]...)
}
