package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
)

// Document names inside the data directory.
const (
	BooksFile = "books.json"
	UsersFile = "users.json"
	LoansFile = "loans.json"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ensureDocument creates path with an empty JSON array when it does not exist.
func ensureDocument(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return errors.Join(ErrIO, err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Join(ErrIO, err)
		}
	}
	if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
		return errors.Join(ErrIO, err)
	}
	return nil
}

// loadDocument reads a JSON array of records. A missing file yields an empty
// collection; a document that does not decode fails with ErrFormat.
func loadDocument[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, errors.Join(ErrIO, err))
	}

	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, errors.Join(ErrFormat, err))
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}

// saveDocument writes records as an indented JSON array. The document is
// written to a temporary file first and renamed over the old one.
func saveDocument[T any](path string, records []T) error {
	if records == nil {
		records = []T{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("save %s: %w", path, errors.Join(ErrFormat, err))
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("save %s: %w", path, errors.Join(ErrIO, err))
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("save %s: %w", path, errors.Join(ErrIO, err))
	}
	return nil
}
