package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mchmarny/semscore/pkg/config"
	"github.com/mchmarny/semscore/pkg/data"
	"github.com/mchmarny/semscore/pkg/logging"
	"github.com/mchmarny/semscore/pkg/net"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	appName      = "semscore"
	appConfigKey = "app-config"

	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""
)

const (
	debugFlagName  = "debug"
	configFlagName = "config"
	dbFlagName     = "db"
	formatFlagName = "format"
)

// Execute creates and runs the CLI application.
func Execute() {
	initLogging(false)

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type appConfig struct {
	Home   string
	Config *config.Config
	Format string
	Debug  bool

	db *sql.DB
}

// DB opens the run store on first use.
func (a *appConfig) DB() (*sql.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	dsn := a.Config.Store.DSN
	if err := data.Init(dsn); err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}
	db, err := data.GetDB(dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	a.db = db
	return db, nil
}

func (a *appConfig) Close() {
	if a.db != nil {
		a.db.Close()
		a.db = nil
	}
}

func getConfig(cmd *cli.Command) *appConfig {
	return cmd.Root().Metadata[appConfigKey].(*appConfig)
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  appName,
		Version:               fmt.Sprintf("%s (%s - %s)", version, commit, date),
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Usage:                 "Score semantic-domain attribution and similarity oracles",
		Metadata:              map[string]any{},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  debugFlagName,
				Usage: "Prints verbose logs (optional, default: false)",
			},
			&cli.StringFlag{
				Name:  configFlagName,
				Usage: "Path to the config file (default: $HOME/.semscore/config.yaml)",
			},
			&cli.StringFlag{
				Name:  dbFlagName,
				Usage: "Run store: sqlite file path or postgres:// URL (overrides store.dsn)",
			},
			&cli.StringFlag{
				Name:  formatFlagName,
				Usage: "Output format [json, yaml]",
				Value: formatJSON,
			},
		},
		Commands: []*cli.Command{
			attributionCommand(),
			gapCommand(),
			groupsCommand(),
			summarizeCommand(),
			graphCommand(),
			runsCommand(),
			tokenCommand(),
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			debug := cmd.Bool(debugFlagName)
			if debug {
				initLogging(true)
			}

			format := formatJSON
			if f := cmd.String(formatFlagName); f == formatYAML || f == "yml" {
				format = formatYAML
			}

			home, _, err := config.GetOrCreateHomeDir(appName)
			if err != nil {
				return ctx, fmt.Errorf("preparing home dir: %w", err)
			}

			var cfg *config.Config
			if p := cmd.String(configFlagName); p != "" {
				cfg, err = config.Load(p)
			} else {
				cfg, err = config.ReadOrCreate(home)
			}
			if err != nil {
				return ctx, fmt.Errorf("loading config: %w", err)
			}
			if dsn := cmd.String(dbFlagName); dsn != "" {
				cfg.Store.DSN = dsn
			}
			slog.Debug("config loaded", "home", home, "store", cfg.Store.DSN, "workers", cfg.Workers)

			cmd.Metadata[appConfigKey] = &appConfig{
				Home:   home,
				Config: cfg,
				Format: format,
				Debug:  debug,
			}
			return ctx, nil
		},
		After: func(_ context.Context, cmd *cli.Command) error {
			if cfg, ok := cmd.Metadata[appConfigKey].(*appConfig); ok {
				cfg.Close()
			}
			return nil
		},
	}
}

func initLogging(debug bool) {
	level := "info"
	if debug {
		level = "debug"
	}
	logging.SetDefaultCLILogger(level)
}

// fetchSource resolves a local path or remote URL input.
func fetchSource(ctx context.Context, cfg *appConfig, src string) (string, error) {
	if !net.IsRemote(src) {
		return src, nil
	}
	token, err := getSourceToken(cfg.Home)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Debug("no source token available", "error", err)
	}
	return net.Fetch(ctx, src, cfg.Config.Cache, token)
}

func writer(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func encode(cmd *cli.Command, v any) error {
	w := writer(cmd)
	if getConfig(cmd).Format == formatYAML {
		return yaml.NewEncoder(w).Encode(v)
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}

// writeOutput writes path through fn, creating parent directories.
func writeOutput(path string, fn func(io.Writer) error) (retErr error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output dir for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("closing output %s: %w", path, cerr)
		}
	}()
	if err := fn(f); err != nil {
		return fmt.Errorf("writing output %s: %w", path, err)
	}
	slog.Debug("output written", "path", path)
	return nil
}
