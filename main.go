package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AndreWozniack/LibraryManager/library"
)

const (
	envDataDir        = "LIBRARY_DATA_DIR"
	defaultArchive    = "library.db"
	logMsgSaveSkipped = "library data was not loaded, leaving documents untouched"
	logMsgSaveFailed  = "could not save library data"
	logAttrError      = "error"
	logAttrDataDir    = "data_dir"
)

type options struct {
	dataDir  string
	logLevel string
	archive  string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	defaultDir := os.Getenv(envDataDir)
	if defaultDir == "" {
		defaultDir = "."
	}

	root := &cobra.Command{
		Use:           "librarian",
		Short:         "Manage books, users and loans stored as JSON documents",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := loggerFor(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			mgr := library.NewLibraryManager(opts.dataDir, library.WithLogger(logger))

			// Documents that failed to load are left on disk untouched, so the
			// session runs on an empty library and nothing is written back.
			loadErr := mgr.Load()
			if loadErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error loading data: %v\nChanges made in this session will not be saved.\n", loadErr)
			}

			newConsole(cmd.InOrStdin(), cmd.OutOrStdout(), mgr).run()

			if loadErr != nil {
				logger.Info(logMsgSaveSkipped, logAttrDataDir, opts.dataDir)
				return nil
			}
			if err := mgr.Save(); err != nil {
				logger.Error(logMsgSaveFailed, logAttrError, err.Error())
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", defaultDir, "directory holding books.json, users.json and loans.json (env "+envDataDir+")")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")

	root.AddCommand(newExportCommand(opts), newRestoreCommand(opts), newCheckCommand(opts))
	return root
}

func newExportCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the library state into a SQLite archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := loadedManager(cmd, opts)
			if err != nil {
				return err
			}
			id, err := mgr.ExportArchive(archivePath(opts))
			if err != nil {
				return fmt.Errorf("export archive: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d books, %d users and %d loans to %s (export %s)\n",
				len(mgr.GetAllBooks()), len(mgr.GetAllUsers()), len(mgr.GetAllLoans()), archivePath(opts), id)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.archive, "db", "", "archive path (default <data-dir>/"+defaultArchive+")")
	return cmd
}

func newRestoreCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Replace the JSON documents with the contents of a SQLite archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := newManager(cmd, opts)
			if err != nil {
				return err
			}
			if err := mgr.RestoreArchive(archivePath(opts)); err != nil {
				return fmt.Errorf("restore archive: %w", err)
			}
			if err := mgr.Save(); err != nil {
				return fmt.Errorf("save restored data: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d books, %d users and %d loans from %s\n",
				len(mgr.GetAllBooks()), len(mgr.GetAllUsers()), len(mgr.GetAllLoans()), archivePath(opts))
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.archive, "db", "", "archive path (default <data-dir>/"+defaultArchive+")")
	return cmd
}

func newCheckCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify that borrow flags match the active loans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := loadedManager(cmd, opts)
			if err != nil {
				return err
			}
			if err := mgr.CheckConsistency(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Library state is consistent.")
			return nil
		},
	}
}

func newManager(cmd *cobra.Command, opts *options) (*library.LibraryManager, error) {
	logger, err := loggerFor(opts, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	return library.NewLibraryManager(opts.dataDir, library.WithLogger(logger)), nil
}

// loadedManager is used by the non-interactive commands, where a load failure
// is fatal.
func loadedManager(cmd *cobra.Command, opts *options) (*library.LibraryManager, error) {
	mgr, err := newManager(cmd, opts)
	if err != nil {
		return nil, err
	}
	if err := mgr.Load(); err != nil {
		return nil, fmt.Errorf("load library: %w", err)
	}
	return mgr, nil
}

func archivePath(opts *options) string {
	if opts.archive != "" {
		return opts.archive
	}
	return filepath.Join(opts.dataDir, defaultArchive)
}

func loggerFor(opts *options, w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(opts.logLevel)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(s)))); err != nil {
		return slog.LevelWarn, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
