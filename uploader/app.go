package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/natserract/splist/pkg/config"
	httpclient "github.com/natserract/splist/pkg/http"
	"github.com/natserract/splist/pkg/sharepoint"
	"github.com/natserract/splist/pkg/token"
	"github.com/natserract/splist/uploader/schema/postgres"
	"github.com/natserract/splist/uploader/services"
	"go.uber.org/zap"
)

// app holds everything a command needs, built in the order
// config -> token manager -> uploader.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	tokens   *token.Manager
	uploader *services.Uploader
	db       *postgres.DB
}

// errNoPrompt is returned when credentials are missing and the input is not
// available for prompting.
var errNoPrompt = errors.New("username and password must be set in the config or environment when stdin carries the record")

// newApp builds the app. Missing user credentials are prompted for on in,
// or rejected with errNoPrompt when in is nil.
func newApp(ctx context.Context, opts *rootOptions, in io.Reader, out io.Writer) (*app, error) {
	logger, err := newLogger(opts.debug)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		logger.Error("Failed to load config", zap.String("path", opts.configPath), zap.Error(err))
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	timeout, _ := cfg.Timeout()
	httpClient := httpclient.NewClientWithLogger(httpclient.Options{
		Timeout:  timeout,
		MaxTries: cfg.HTTPMaxTries,
	}, logger)

	a := &app{cfg: cfg, logger: logger}
	connector := sharepoint.NewClientWithLogger(cfg.SharePointURL, httpClient.Transport(), timeout, logger)

	var tokens services.TokenSource
	switch cfg.AuthMode {
	case config.AuthModeUser:
		if err := promptCredentials(cfg, in, out); err != nil {
			return nil, err
		}
		connector.WithUserAuth(sharepoint.NewUserAuth(cfg.SharePointURL, cfg.Username, cfg.Password))
		logger.Info("Using user credentials", zap.String("username", cfg.Username))
	default:
		fileCache, err := token.NewFileCache(cfg.TokenCachePath, logger)
		if err != nil {
			return nil, err
		}
		client, err := token.NewConfidential(cfg, fileCache, httpClient)
		if err != nil {
			logger.Error("Failed to create identity client", zap.Error(err))
			return nil, err
		}
		a.tokens = token.NewManager(client, fileCache, cfg.Scopes, logger)
		tokens = a.tokens
	}

	a.uploader = services.NewUploaderWithLogger(tokens, connector, cfg.TargetListTitle, cfg.DateFields, logger)

	if cfg.JournalDSN != "" {
		db, err := postgres.New(postgres.NewConfig(cfg.JournalDSN), logger)
		if err != nil {
			// The journal is optional; uploads go ahead without it
			logger.Warn("Failed to connect to journal database, continuing without journal", zap.Error(err))
		} else if err := db.InitSchema(ctx); err != nil {
			logger.Warn("Failed to initialize journal schema, continuing without journal", zap.Error(err))
			db.Close()
		} else {
			a.db = db
			a.uploader.WithJournal(services.NewPostgresJournal(db, logger))
		}
	}

	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	_ = a.logger.Sync()
}

func promptCredentials(cfg *config.Config, in io.Reader, out io.Writer) error {
	if in == nil {
		if cfg.Username == "" || cfg.Password == "" {
			return errNoPrompt
		}
		return nil
	}

	p := newPrompter(in, out)
	if cfg.Username == "" {
		username, err := p.line("Enter your SharePoint username: ")
		if err != nil {
			return fmt.Errorf("failed to read username: %w", err)
		}
		cfg.Username = username
	}
	if cfg.Password == "" {
		password, err := p.secret("Enter your SharePoint password: ")
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		cfg.Password = password
	}
	if cfg.Username == "" || cfg.Password == "" {
		return fmt.Errorf("username and password are required in user auth mode")
	}
	return nil
}
