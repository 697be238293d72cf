package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/girlpunk/ytsm/internal/downloader"
	"github.com/girlpunk/ytsm/internal/models"
	"github.com/girlpunk/ytsm/internal/providers"
	"github.com/girlpunk/ytsm/internal/repositories"
	"github.com/girlpunk/ytsm/internal/shared"
	"github.com/girlpunk/ytsm/internal/tasks"
	"github.com/girlpunk/ytsm/internal/thumbnails"
)

// defaultUsername is the preference row used when no user is specified.
const defaultUsername = "admin"

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
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
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, migrateCommand, serveCommand, syncCommand,
		subscriptionCommand, folderCommand, videoCommand, downloadsCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// app is the wired application graph behind every command that touches the
// database. Commands construct one with [Runner.open] and close it when done.
type app struct {
	db       *sql.DB
	users    *repositories.UserRepository
	folders  *repositories.FolderRepository
	subs     *repositories.SubscriptionRepository
	videos   *repositories.VideoRepository
	registry *providers.Registry
	engine   *tasks.Engine
	queue    *tasks.Queue
}

func (a *app) Close() error {
	return a.db.Close()
}

// loadConfig reads the config file named by the command's --config flag,
// falling back to the Runner's existing config when the file is absent.
func (r *Runner) loadConfig(cmd *cli.Command) *shared.Config {
	path := cmd.String("config")
	if path == "" {
		return r.config
	}
	if _, err := os.Stat(path); err != nil {
		return r.config
	}
	config, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Warn("failed to load config, using defaults", "path", path, "error", err)
		return r.config
	}
	r.config = config
	return config
}

// open wires the full application graph from configuration.
func (r *Runner) open(cmd *cli.Command) (*app, error) {
	config := r.loadConfig(cmd)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	opts := providers.Options{
		RateLimit:    config.Providers.RateLimit,
		FetchTimeout: time.Duration(config.Providers.FetchTimeoutSeconds) * time.Second,
	}
	registry := providers.NewRegistry(
		providers.NewYouTubeProvider(config.Downloader.Path, opts, r.logger),
		providers.NewRSSProvider(opts, r.logger),
	)

	dl := downloader.NewYtdlpDownloader(
		config.Downloader.Path,
		time.Duration(config.Downloader.TimeoutSeconds)*time.Second,
		config.Downloader.Format,
		config.Downloader.ExtraArgs,
		r.logger,
	)
	thumbs := thumbnails.NewCache(config.Thumbnails.Dir, r.httpClient, r.logger)

	a := &app{
		db:       db,
		users:    repositories.NewUserRepository(db),
		folders:  repositories.NewFolderRepository(db),
		subs:     repositories.NewSubscriptionRepository(db),
		videos:   repositories.NewVideoRepository(db),
		registry: registry,
	}

	a.engine = tasks.NewEngine(tasks.EngineOpts{
		Subscriptions: a.subs,
		Videos:        a.videos,
		Users:         a.users,
		Folders:       a.folders,
		Registry:      registry,
		Downloader:    dl,
		Thumbnails:    thumbs,
		Logger:        r.logger,
		RefreshStats:  config.Downloads.RefreshStats,
	})

	a.queue = tasks.NewQueue(config.Queue.Workers, r.logger)

	return a, nil
}

// defaultUser fetches the default preference row, creating it from the
// configured download defaults on first use.
func (r *Runner) defaultUser(a *app) (*models.User, error) {
	user, err := a.users.GetByUsername(defaultUsername)
	if err == nil {
		return user, nil
	}

	order, err := models.ParseVideoOrder(r.config.Downloads.Order)
	if err != nil {
		order = models.OrderPlaylist
	}

	user = &models.User{
		ID:                        shared.GenerateID(),
		Username:                  defaultUsername,
		AutoDownload:              r.config.Downloads.AutoDownload,
		DownloadGlobalLimit:       r.config.Downloads.GlobalLimit,
		DownloadSubscriptionLimit: r.config.Downloads.SubscriptionLimit,
		DownloadOrder:             order,
		DeleteWatched:             r.config.Downloads.DeleteWatched,
		MarkDeletedAsWatched:      r.config.Downloads.MarkDeletedAsWatched,
		MaxDownloadAttempts:       r.config.Downloads.MaxAttempts,
		DownloadDir:               r.config.Downloads.Dir,
		DownloadFilePattern:       r.config.Downloads.FilePattern,
	}
	if err := a.users.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create default user: %w", err)
	}
	r.logger.Info("created default user", "username", defaultUsername)
	return user, nil
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
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
