package library

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempArchive(t *testing.T) *Archive {
	t.Helper()
	archive, err := OpenArchive(filepath.Join(t.TempDir(), "archive", "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { archive.Close() })
	return archive
}

func sampleSnapshot() Snapshot {
	books := sampleBooks()
	books[0].IsBorrowed = true
	return Snapshot{
		Books: books,
		Users: []User{NewUser(3, "Carol"), NewUser(1, "Alice")},
		Loans: []Loan{
			{UserID: 1, BookID: 2, LoanDate: "2023-09-01", ReturnDate: strPtr("2023-09-15")},
			NewLoan(3, 1, "2023-10-01"),
		},
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	archive := tempArchive(t)
	want := sampleSnapshot()

	id, err := archive.WriteSnapshot(want)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err, "export id is a UUID")

	got, err := archive.ReadSnapshot()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	export, err := archive.LastExport()
	require.NoError(t, err)
	assert.Equal(t, id, export.ID)
	assert.Equal(t, 3, export.BookCount)
	assert.Equal(t, 2, export.UserCount)
	assert.Equal(t, 2, export.LoanCount)
}

func TestArchiveWriteReplacesPreviousState(t *testing.T) {
	archive := tempArchive(t)
	_, err := archive.WriteSnapshot(sampleSnapshot())
	require.NoError(t, err)

	smaller := Snapshot{Books: []Book{NewBook(9, "Only", "One", 1)}, Users: []User{}, Loans: []Loan{}}
	_, err = archive.WriteSnapshot(smaller)
	require.NoError(t, err)

	got, err := archive.ReadSnapshot()
	require.NoError(t, err)
	assert.Equal(t, smaller, got)
}

func TestArchiveLargeSnapshot(t *testing.T) {
	archive := tempArchive(t)
	s := Snapshot{Users: []User{}, Loans: []Loan{}}
	for i := uint32(0); i < 1200; i++ {
		s.Books = append(s.Books, NewBook(i, "Title", "Author "+uuid.NewString(), i))
	}

	_, err := archive.WriteSnapshot(s)
	require.NoError(t, err)

	got, err := archive.ReadSnapshot()
	require.NoError(t, err)
	require.Len(t, got.Books, 1200)
	assert.Equal(t, s.Books[1199], got.Books[1199])
}

func TestArchiveWithoutExports(t *testing.T) {
	archive := tempArchive(t)
	_, err := archive.LastExport()
	assert.ErrorIs(t, err, ErrNoExports)

	s, err := archive.ReadSnapshot()
	require.NoError(t, err)
	assert.Empty(t, s.Books)
}

func TestExportAndRestoreArchive(t *testing.T) {
	mgr := newManager(t)
	require.NoError(t, mgr.AddBook(NewBook(1, "First", "A", 10)))
	require.NoError(t, mgr.AddBook(NewBook(2, "Second", "B", 20)))
	require.NoError(t, mgr.AddUser(NewUser(1, "Alice")))
	require.NoError(t, mgr.LoanBook(1, 2, "2023-10-01"))

	path := filepath.Join(t.TempDir(), "library.db")
	id, err := mgr.ExportArchive(path)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	restored := newManager(t)
	require.NoError(t, restored.RestoreArchive(path))
	assert.Equal(t, mgr.GetAllBooks(), restored.GetAllBooks())
	assert.Equal(t, mgr.GetAllUsers(), restored.GetAllUsers())
	assert.Equal(t, mgr.GetAllLoans(), restored.GetAllLoans())

	require.NoError(t, restored.ReturnBook(2, "2023-10-05"))
	assert.NoError(t, restored.CheckConsistency())
}

func TestRestoreEmptyArchive(t *testing.T) {
	mgr := newManager(t)
	require.NoError(t, mgr.AddUser(NewUser(1, "Alice")))

	err := mgr.RestoreArchive(filepath.Join(t.TempDir(), "empty.db"))
	require.ErrorIs(t, err, ErrNoExports)
	assert.Len(t, mgr.GetAllUsers(), 1)
}

func TestOpenArchiveRejectsCorruptSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.db")
	archive, err := OpenArchive(path)
	require.NoError(t, err)
	_, err = archive.db.Exec(`UPDATE meta SET value='not-a-number' WHERE key='schema_version'`)
	require.NoError(t, err)
	require.NoError(t, archive.Close())

	_, err = OpenArchive(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read schema version")
}

func TestOpenArchiveTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.db")
	archive, err := OpenArchive(path)
	require.NoError(t, err)
	require.NoError(t, archive.Close())

	archive, err = OpenArchive(path)
	require.NoError(t, err)
	require.NoError(t, archive.Close())
}
