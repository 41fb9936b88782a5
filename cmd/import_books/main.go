package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AndreWozniack/LibraryManager/internal/display"
	"github.com/AndreWozniack/LibraryManager/library"
)

func main() {
	var dataDir string

	cmd := &cobra.Command{
		Use:          "import_books [books.csv]",
		Short:        "Add books from a CSV file (id,title,author,pages) to books.json",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			csvPath := "books.csv"
			if len(args) > 0 {
				csvPath = args[0]
			}
			return run(dataDir, csvPath, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&dataDir, "data-dir", ".", "directory holding the library documents")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(dataDir, csvPath string, out io.Writer) error {
	manager := library.NewLibraryManager(dataDir)
	if err := manager.Load(); err != nil {
		return fmt.Errorf("load library: %w", err)
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintf(out, "Importing books from %s...\n", csvPath)
	successCount, errorCount := importBooks(manager, f, out)

	fmt.Fprintf(out, "\nImport complete!\n")
	fmt.Fprintf(out, "Successfully imported: %d books\n", successCount)
	fmt.Fprintf(out, "Errors: %d\n", errorCount)

	if successCount == 0 {
		return nil
	}
	if err := manager.Save(); err != nil {
		return fmt.Errorf("save library: %w", err)
	}

	fmt.Fprintln(out, "\nCatalog:")
	fmt.Fprintf(out, "%-6s %-50s %-30s %s\n", "ID", "Title", "Author", "Pages")
	fmt.Fprintln(out, strings.Repeat("-", 95))
	for _, book := range manager.GetAllBooks() {
		fmt.Fprintf(out, "%-6d %-50s %-30s %d\n", book.ID, display.Truncate(book.Title, 50), display.Truncate(book.Author, 30), book.Pages)
	}
	return nil
}

// importBooks adds every "id,title,author,pages" row of r to the library. A
// first row whose id column is literally "id" is treated as a header.
func importBooks(mgr *library.LibraryManager, r io.Reader, out io.Writer) (successCount, errorCount int) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 4
	reader.TrimLeadingSpace = true

	for row := 1; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fmt.Fprintf(out, "Row %d: ERROR - %v\n", row, err)
			errorCount++
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				break
			}
			continue
		}
		if row == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "id") {
			continue
		}

		book, err := parseBook(record)
		if err != nil {
			fmt.Fprintf(out, "Row %d: ERROR - %v\n", row, err)
			errorCount++
			continue
		}

		fmt.Fprintf(out, "Importing: %s by %s... ", book.Title, book.Author)
		if err := mgr.AddBook(book); err != nil {
			fmt.Fprintf(out, "ERROR - %v\n", err)
			errorCount++
			continue
		}
		fmt.Fprintf(out, "SUCCESS (ID: %d)\n", book.ID)
		successCount++
	}
	return successCount, errorCount
}

func parseBook(record []string) (library.Book, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(record[0]), 10, 32)
	if err != nil {
		return library.Book{}, fmt.Errorf("invalid id %q", record[0])
	}
	pages, err := strconv.ParseUint(strings.TrimSpace(record[3]), 10, 32)
	if err != nil {
		return library.Book{}, fmt.Errorf("invalid page count %q", record[3])
	}
	title := strings.TrimSpace(record[1])
	author := strings.TrimSpace(record[2])
	if title == "" || author == "" {
		return library.Book{}, errors.New("title and author are required")
	}
	return library.NewBook(uint32(id), title, author, uint32(pages)), nil
}
