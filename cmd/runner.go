package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunepull/internal/repositories"
	"github.com/desertthunder/tunepull/internal/services"
	"github.com/desertthunder/tunepull/internal/shared"
	"github.com/desertthunder/tunepull/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Collaborators left nil in [RunnerOpts] are built from the loaded configuration.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	getenv     func(string) string

	provider   services.MetadataProvider
	search     services.SearchProvider
	source     services.MediaSource
	transcoder services.Transcoder
	tagger     services.Tagger
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config // skips loading --config when set
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Getenv     func(string) string

	Provider   services.MetadataProvider
	Search     services.SearchProvider
	Source     services.MediaSource
	Transcoder services.Transcoder
	Tagger     services.Tagger
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		getenv:     opts.Getenv,
		provider:   opts.Provider,
		search:     opts.Search,
		source:     opts.Source,
		transcoder: opts.Transcoder,
		tagger:     opts.Tagger,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		downloadCommand, serveCommand, setupCommand, historyCommand, ledgerCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig reads --config (defaults when the file is absent), applies environment
// overrides and the configured log level.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, error) {
	cfg := r.config
	if cfg == nil {
		var err error
		if cfg, err = shared.LoadConfigOrDefault(cmd.String("config")); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(r.getenv); err != nil {
		return nil, err
	}
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(cfg.Log.Level))
	return cfg, nil
}

// pipeline is the wired acquisition engine and the resources it holds.
type pipeline struct {
	engine *tasks.Engine
	db     *sql.DB
}

func (p *pipeline) Close() error {
	if p.db == nil {
		return nil
	}
	return p.db.Close()
}

// buildPipeline wires the engine from cfg. Search, source and transcoder follow
// download.search, download.source and download.ffmpeg_path unless overridden.
func (r *Runner) buildPipeline(cfg *shared.Config) (*pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	provider := r.provider
	if provider == nil {
		spotify, err := services.NewSpotifyService(cfg.Credentials.Spotify, r.httpClient)
		if err != nil {
			return nil, err
		}
		provider = spotify
	}

	search := r.search
	if search == nil {
		switch cfg.Download.Search {
		case "proxy":
			yt := cfg.Credentials.YouTube
			search = services.NewYouTubeService(yt.ProxyURL, yt.HeadersPath, r.httpClient)
		default:
			search = services.NewYTDLPSearch(cfg.Download.YTDLPPath, 0)
		}
	}

	source := r.source
	if source == nil {
		switch cfg.Download.Source {
		case "ytdlp":
			source = services.NewYTDLPSource(cfg.Download.YTDLPPath)
		default:
			source = services.NewYouTubeSource(r.httpClient)
		}
	}

	transcoder := r.transcoder
	if transcoder == nil {
		transcoder = services.NewFFmpeg(cfg.Download.FFmpegPath, cfg.Download.BitrateKbps)
	}

	var tagger services.Tagger
	if cfg.Download.Tag {
		tagger = r.tagger
		if tagger == nil {
			tagger = services.NewID3Tagger()
		}
	}

	engine := tasks.NewEngine(
		tasks.NewResolver(provider, r.logger),
		tasks.NewLocator(search, r.logger),
		tasks.NewFetcher(cfg.Download.Dir, source, transcoder, tagger, r.logger),
		r.logger,
	)
	p := &pipeline{engine: engine}

	if cfg.Database.Enabled {
		db, err := r.openDatabase(cfg.Database)
		if err != nil {
			r.logger.Warn("history disabled", "error", err)
		} else {
			p.db = db
			engine.WithRecorder(repositories.NewHistoryRepository(db))
		}
	}

	return p, nil
}

func (r *Runner) openDatabase(cfg shared.DatabaseConfig) (*sql.DB, error) {
	db, err := shared.NewDatabase(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}
	shared.ConfigureDatabase(db, cfg.MaxOpenConns, cfg.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
