package library

import (
	"fmt"
	"strings"
)

// UserStore owns the user collection.
type UserStore struct {
	users []User
}

func NewUserStore(users []User) *UserStore {
	return &UserStore{users: users}
}

// Add appends a user unless the id is already taken.
func (s *UserStore) Add(u User) error {
	if s.index(u.ID) >= 0 {
		return fmt.Errorf("user %d: %w", u.ID, ErrAlreadyExists)
	}
	s.users = append(s.users, u)
	return nil
}

func (s *UserStore) Get(id uint32) (User, error) {
	i := s.index(id)
	if i < 0 {
		return User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return s.users[i], nil
}

// Exists reports whether a user with the given id is registered.
func (s *UserStore) Exists(id uint32) bool { return s.index(id) >= 0 }

// Update replaces the name of the user with the given id.
func (s *UserStore) Update(id uint32, name string) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	s.users[i].Name = name
	return nil
}

func (s *UserStore) Delete(id uint32) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	s.users = append(s.users[:i], s.users[i+1:]...)
	return nil
}

// Search returns the users whose name contains query.
func (s *UserStore) Search(query string) []User {
	results := []User{}
	for _, u := range s.users {
		if strings.Contains(u.Name, query) {
			results = append(results, u)
		}
	}
	return results
}

func (s *UserStore) List() []User {
	out := make([]User, len(s.users))
	copy(out, s.users)
	return out
}

func (s *UserStore) Len() int { return len(s.users) }

func (s *UserStore) index(id uint32) int {
	for i, u := range s.users {
		if u.ID == id {
			return i
		}
	}
	return -1
}
