package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/phrazzld/scry-local/internal/config"
	"github.com/phrazzld/scry-local/internal/platform/filestore"
	"github.com/phrazzld/scry-local/internal/platform/logger"
	"github.com/phrazzld/scry-local/internal/platform/sqlite"
	"github.com/phrazzld/scry-local/internal/store"
)

// app holds what every subcommand needs once configuration is loaded.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// global flags
	cfgFile     string
	storagePath string
	backend     string
	logLevel    string

	cfg    *config.Config
	logger *slog.Logger
	store  *store.CardStore
	file   *filestore.Store // nil unless the file backend is in use
	closer func() error
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) (*cobra.Command, *app) {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "scry",
		Short: "Review flashcards stored on this machine.",
		Long: `scry shows flashcards weighted towards the ones you miss most.

Several scry processes may share one card store. A process never overwrites
changes it has not seen: if the store changed since it was loaded, the save is
refused and the process stops writing.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./config.yaml or $HOME/.scry/config.yaml)")
	flags.StringVar(&a.storagePath, "storage-path", "", "card store location (overrides storage.path)")
	flags.StringVar(&a.backend, "backend", "", "storage backend: file or sqlite (overrides storage.backend)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides log.level)")

	root.AddCommand(
		newReviewCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newAddCmd(a),
		newRemoveCmd(a),
		newStatsCmd(a),
		newInitCmd(a),
		newTagCmd(a),
		newResetCmd(a),
	)
	return root, a
}

// setup loads configuration, configures logging and opens the card store.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env file: %w", err)
	}

	overrides := map[string]any{}
	flags := cmd.Flags()
	if flags.Changed("storage-path") {
		overrides["storage.path"] = a.storagePath
	}
	if flags.Changed("backend") {
		overrides["storage.backend"] = a.backend
	}
	if flags.Changed("log-level") {
		overrides["log.level"] = a.logLevel
	}

	cfg, err := config.Load(config.Options{ConfigFile: a.cfgFile, Overrides: overrides})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a.cfg = cfg

	log, err := logger.SetupWithWriter(cfg.Log, a.stderr)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	a.logger = log

	medium, err := a.openMedium(cmd)
	if err != nil {
		return err
	}
	a.store = store.NewCardStore(medium, log)

	log.Debug("configuration loaded",
		slog.String("command", cmd.Name()),
		slog.String("backend", cfg.Storage.Backend),
		slog.String("location", medium.Location()))
	return nil
}

func (a *app) openMedium(cmd *cobra.Command) (store.Medium, error) {
	switch a.cfg.Storage.Backend {
	case config.BackendSQLite:
		s, err := sqlite.Open(cmd.Context(), a.cfg.Storage.Path, a.cfg.Storage.Location, a.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		a.closer = s.Close
		return s, nil
	default:
		s, err := filestore.New(a.cfg.Storage.Path, filestore.WithLogger(a.logger))
		if err != nil {
			return nil, fmt.Errorf("failed to open file store: %w", err)
		}
		a.file = s
		return s, nil
	}
}

// close releases the card store. It is safe to call more than once.
func (a *app) close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer()
	a.closer = nil
	return err
}
