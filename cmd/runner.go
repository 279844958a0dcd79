package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/unavoidables/internal/matching"
	"github.com/desertthunder/unavoidables/internal/models"
	"github.com/desertthunder/unavoidables/internal/scraper"
	"github.com/desertthunder/unavoidables/internal/services"
	"github.com/desertthunder/unavoidables/internal/shared"
	"github.com/desertthunder/unavoidables/internal/tasks"
)

const (
	appName     = "unavoidables"
	appVersion  = "0.3.0"
	sentinel    = "80'eren"
	catalogName = "P3's Ugens Uundgåelige"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Dependencies left nil in [RunnerOpts] are built from the configuration on first use.
type Runner struct {
	config     *shared.Config
	configPath string
	configured bool
	logger     *log.Logger
	output     io.Writer
	httpClient *http.Client
	searcher   services.Searcher
	playlists  services.PlaylistService
	fetcher    scraper.Fetcher
	spotify    *services.SpotifyService
	db         *sql.DB
	now        func() time.Time
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	HTTPClient *http.Client
	Searcher   services.Searcher
	Playlists  services.PlaylistService
	Fetcher    scraper.Fetcher
	DB         *sql.DB
}

// NewRunner creates a new Runner with the provided configuration.
//
// A provided Config is used as-is; otherwise the --config file is loaded before each command.
func NewRunner(opts RunnerOpts) *Runner {
	configured := opts.Config != nil
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		configured: configured,
		logger:     opts.Logger,
		output:     opts.Output,
		httpClient: opts.HTTPClient,
		searcher:   opts.Searcher,
		playlists:  opts.Playlists,
		fetcher:    opts.Fetcher,
		db:         opts.DB,
		now:        time.Now,
	}
}

func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    appName,
		Usage:   "Keep " + catalogName + " resolved on Spotify and mirrored into a playlist",
		Version: appVersion,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log candidate scores and other debug output",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Only log warnings and errors",
			},
		},
		Before:   r.before,
		Commands: r.register(),
		Writer:   r.output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, spotifyCommand, scrapeCommand, runCommand, resolveCommand, catalogCommand, syncCommand, historyCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// before applies the global flags and loads the configuration file when one exists.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	switch {
	case cmd.Bool("verbose"):
		shared.SetLogLevel(r.logger, log.DebugLevel)
	case cmd.Bool("quiet"):
		shared.SetLogLevel(r.logger, log.WarnLevel)
	}

	if r.configured {
		return ctx, nil
	}

	r.configPath = cmd.String("config")
	config, err := shared.LoadConfig(r.configPath)
	switch {
	case err == nil:
		r.config = config
	case errors.Is(err, fs.ErrNotExist):
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
	default:
		return ctx, err
	}

	r.configured = true
	return ctx, nil
}

// Close releases the database connection.
func (r *Runner) Close() {
	if r.db != nil {
		r.db.Close()
		r.db = nil
	}
}

func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	path, err := r.config.DatabasePath()
	if err != nil {
		return nil, err
	}

	db, err := shared.OpenCatalogDatabase(path, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("opened catalog database", "path", path)

	r.db = db
	return db, nil
}

// spotifyService builds the authenticated client from the stored credentials and token.
func (r *Runner) spotifyService(ctx context.Context) (*services.SpotifyService, error) {
	if r.spotify != nil {
		return r.spotify, nil
	}

	creds := r.config.Credentials.Spotify
	svc, err := services.NewSpotifyService(
		creds.Map(),
		services.WithOwner(r.config.Spotify.UserID),
		services.WithSpotifyLogger(r.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: set client_id and client_secret in %s", err, r.configPath)
	}

	token := creds.Token()
	if token == nil {
		return nil, fmt.Errorf("%w: run '%s spotify auth' first", shared.ErrNotAuthenticated, appName)
	}

	svc.UseToken(context.WithValue(ctx, oauth2.HTTPClient, r.httpClient), token)
	r.spotify = svc
	return svc, nil
}

func (r *Runner) searchService(ctx context.Context) (services.Searcher, error) {
	if r.searcher != nil {
		return r.searcher, nil
	}
	return r.spotifyService(ctx)
}

func (r *Runner) playlistService(ctx context.Context) (services.PlaylistService, error) {
	if r.playlists != nil {
		return r.playlists, nil
	}
	return r.spotifyService(ctx)
}

// persistToken writes a refreshed access token back to the config file.
func (r *Runner) persistToken() {
	if r.spotify == nil || r.configPath == "" {
		return
	}

	token, err := r.spotify.Token()
	if err != nil {
		r.logger.Warn("could not read spotify token", "error", err)
		return
	}
	if token.AccessToken == r.config.Credentials.Spotify.AccessToken {
		return
	}

	if err := r.saveTokens(token); err != nil {
		r.logger.Warn("failed to save refreshed token", "error", err)
		return
	}
	r.logger.Debug("saved refreshed spotify token", "path", r.configPath)
}

// saveTokens stores token in the config and writes the config file.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("%w: no configuration loaded", shared.ErrMissingConfig)
	}
	if r.configPath == "" {
		return fmt.Errorf("%w: config path", shared.ErrMissingArgument)
	}

	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}

	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func (r *Runner) newScraper() (*scraper.Scraper, error) {
	cachePath, err := r.config.PageCachePath()
	if err != nil {
		return nil, err
	}

	fetcher := r.fetcher
	if fetcher == nil {
		sc := r.config.Scraper
		fetcher = services.NewChartService(sc.BaseURL, sc.UserAgent, time.Duration(sc.Timeout)*time.Second, nil)
	}

	return scraper.New(fetcher, r.config.Scraper.Decade, cachePath, r.logger), nil
}

func (r *Runner) newResolver(searcher services.Searcher) *tasks.Resolver {
	m := r.config.Matching
	ranker := matching.NewRanker(m.MinScore, m.MinSum, r.logger)
	return tasks.NewResolver(searcher, ranker, tasks.ResolverOpts{
		Limit:             r.config.Spotify.SearchLimit,
		RequestsPerSecond: r.config.Spotify.RequestsPerSecond,
		Logger:            r.logger,
	})
}

// overrides returns the configured artist overrides. The sentinel entry is always present.
func (r *Runner) overrides() models.Overrides {
	o := models.Overrides{}
	for title, artists := range r.config.Overrides {
		o[title] = artists
	}
	if _, ok := o[sentinel]; !ok {
		o[sentinel] = []string{"Bikstok"}
	}
	return o
}

func (r *Runner) syncOptions(dryRun bool) tasks.SyncOptions {
	s := r.config.Spotify
	return tasks.SyncOptions{
		PlaylistName: s.PlaylistName,
		Position:     s.Position,
		BatchSize:    s.BatchSize,
		Description:  s.Description,
		DryRun:       dryRun,
	}
}

// progressLogger logs updates from a task until the returned stop function is called.
func (r *Runner) progressLogger() (chan tasks.ProgressUpdate, func()) {
	progress := make(chan tasks.ProgressUpdate, 64)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Info(update.Message, "phase", update.Phase)
		}
	}()

	return progress, func() {
		close(progress)
		<-done
	}
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

func (r *Runner) writePlainln(format string, args ...any) error {
	return r.writePlain(format+"\n", args...)
}
