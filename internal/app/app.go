package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/five82/sheetsync/internal/autosave"
	"github.com/five82/sheetsync/internal/config"
	"github.com/five82/sheetsync/internal/dirty"
	"github.com/five82/sheetsync/internal/gridapi"
	"github.com/five82/sheetsync/internal/lifecycle"
	"github.com/five82/sheetsync/internal/logging"
	"github.com/five82/sheetsync/internal/prefs"
	"github.com/five82/sheetsync/internal/server"
	"github.com/five82/sheetsync/internal/sheet"
	"github.com/five82/sheetsync/internal/state"
	"github.com/five82/sheetsync/internal/store"
	"github.com/five82/sheetsync/internal/ui"
)

// ErrNotLoggedIn is returned by remote commands when no token is configured.
var ErrNotLoggedIn = errors.New("not logged in; run `sheetsync login` first")

// Options select the backend and preference file shared by every command.
type Options struct {
	PrefsPath string // empty uses default ~/.config/sheetsync/prefs.toml

	// Local bypasses the HTTP API and opens the server database directly
	// as LocalUser (an email; empty uses local@localhost).
	Local     bool
	LocalUser string
}

// Bootstrap loads and validates the configuration and configures logging.
// verbose forces debug level.
func Bootstrap(configPath string, verbose bool) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	if err := logging.Setup(cfg.Log.Logging()); err != nil {
		return config.Config{}, fmt.Errorf("configure logging: %w", err)
	}
	return cfg, nil
}

// NewClient builds an API client. A token from the config file or
// environment wins over the one saved by `sheetsync login`.
func NewClient(cfg config.Config, prefsPath string) (*gridapi.Client, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		p, err := prefs.Load(prefsPath)
		if err != nil {
			logging.NewLogger("app").WithError(err).Warn("could not read preferences")
		}
		token = p.Token
	}
	client, err := gridapi.NewClient(cfg.APIURL, token)
	if err != nil {
		return nil, fmt.Errorf("init api client: %w", err)
	}
	return client, nil
}

// openService returns the backend for opts and a func releasing it.
func openService(ctx context.Context, cfg config.Config, opts Options) (service, func(), error) {
	if opts.Local {
		svc, err := openLocal(ctx, cfg.Server.DBPath, opts.LocalUser)
		if err != nil {
			return nil, nil, err
		}
		return svc, func() { _ = svc.Close() }, nil
	}
	client, err := NewClient(cfg, opts.PrefsPath)
	if err != nil {
		return nil, nil, err
	}
	return client, func() {}, nil
}

// Edit opens spreadsheet id in the terminal editor and autosaves it until
// the user quits or ctx is cancelled. Outstanding changes are flushed before
// it returns.
func Edit(ctx context.Context, cfg config.Config, id int64, opts Options) error {
	if id <= 0 {
		return fmt.Errorf("invalid spreadsheet id %d", id)
	}
	log := logging.NewLogger("app").WithField("document_id", id)

	svc, release, err := openService(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer release()

	sp, err := svc.FetchSpreadsheet(ctx, id)
	if err != nil {
		return describe(fmt.Errorf("open spreadsheet %d: %w", id, err))
	}

	doc, err := sheet.LoadOrNew(sp.Data)
	if err != nil {
		log.WithError(err).Warn("stored data is unreadable; starting from an empty sheet")
	}

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		log.WithError(err).Warn("could not read preferences")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	snapshots := &state.Store{}
	coord, err := autosave.New(autosave.Options{
		DocumentID: id,
		Serializer: autosave.SerializerFunc(doc.Serialize),
		Persister:  svc,
		Timing:     cfg.Autosave.Timing(),
		Store:      snapshots,
		Logger:     logging.NewLogger("autosave"),
		Context:    runCtx,
	})
	if err != nil {
		return fmt.Errorf("init autosave: %w", err)
	}
	coord.SetInitialSnapshot()

	watch := dirty.WatchDocument(doc, coord)
	defer watch.Stop()

	hooks := lifecycle.New(coord, lifecycle.Options{
		ShutdownDeadline: cfg.Autosave.ShutdownDeadline,
		Logger:           logging.NewLogger("lifecycle"),
	})
	uiHost := &lifecycle.Callbacks{}
	hooks.Install(uiHost)
	sigHost := lifecycle.NewSignalHost()
	hooks.Install(sigHost)
	go sigHost.Run(runCtx)

	watchConfig(runCtx, cfg.Path, coord)

	if client, ok := svc.(*gridapi.Client); ok {
		StartRecovery(runCtx, coord, client, 0, logging.NewLogger("recovery"))
	}

	if err := prefs.Update(opts.PrefsPath, func(p *prefs.Prefs) { p.LastOpened = id }); err != nil {
		log.WithError(err).Debug("could not record last opened spreadsheet")
	}

	log.WithField("title", sp.Title).Info("editor started")
	uiErr := ui.Run(ui.Options{
		Context:   ctx,
		Document:  doc,
		Title:     sp.Title,
		Saver:     coord,
		Store:     snapshots,
		Host:      uiHost,
		Detectors: dirty.Multi{dirty.NewInputDetector(coord)},
		Render:    dirty.NewRenderDetector(coord),
		Rename: func(ctx context.Context, title string) error {
			_, err := svc.UpdateSpreadsheet(ctx, id, gridapi.UpdateRequest{Title: title})
			return err
		},
		ThemeName: userPrefs.Theme,
		PrefsPath: opts.PrefsPath,
	})

	// The flush must outlive a SIGTERM-cancelled ctx; the shutdown deadline
	// bounds it instead.
	flushErr := hooks.Shutdown(context.WithoutCancel(ctx))
	if uiErr != nil {
		return fmt.Errorf("editor: %w", uiErr)
	}
	if flushErr != nil {
		return fmt.Errorf("final save: %w", flushErr)
	}
	log.Info("editor closed")
	return nil
}

// watchConfig applies autosave timings and log settings from config edits
// while the editor runs.
func watchConfig(ctx context.Context, path string, coord *autosave.Coordinator) {
	log := logging.NewLogger("app")
	w, err := config.NewWatcher(path, 0, func(next config.Config) {
		if err := next.Validate(); err != nil {
			log.WithError(err).Warn("ignoring invalid config change")
			return
		}
		coord.SetTiming(next.Autosave.Timing())
		if err := logging.Setup(next.Log.Logging()); err != nil {
			log.WithError(err).Warn("could not apply log settings")
		}
	})
	if err != nil {
		log.WithError(err).Debug("config hot reload disabled")
		return
	}
	go w.Run(ctx)
}

// List returns the caller's spreadsheets, most recently updated first.
func List(ctx context.Context, cfg config.Config, opts Options) ([]gridapi.SpreadsheetListItem, error) {
	svc, release, err := openService(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	defer release()

	items, err := svc.ListSpreadsheets(ctx)
	if err != nil {
		return nil, describe(fmt.Errorf("list spreadsheets: %w", err))
	}
	return items, nil
}

// Create makes an empty spreadsheet.
func Create(ctx context.Context, cfg config.Config, title string, opts Options) (*gridapi.Spreadsheet, error) {
	svc, release, err := openService(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	defer release()

	sp, err := svc.CreateSpreadsheet(ctx, title)
	if err != nil {
		return nil, describe(fmt.Errorf("create spreadsheet: %w", err))
	}
	return sp, nil
}

// Delete removes spreadsheet id.
func Delete(ctx context.Context, cfg config.Config, id int64, opts Options) error {
	svc, release, err := openService(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer release()

	if err := svc.DeleteSpreadsheet(ctx, id); err != nil {
		return describe(fmt.Errorf("delete spreadsheet %d: %w", id, err))
	}
	return nil
}

// Login creates a session for email and remembers its token in the
// preferences file.
func Login(ctx context.Context, cfg config.Config, prefsPath, email, name string) (*gridapi.User, error) {
	client, err := gridapi.NewClient(cfg.APIURL, "")
	if err != nil {
		return nil, fmt.Errorf("init api client: %w", err)
	}
	resp, err := client.Login(ctx, email, name)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	err = prefs.Update(prefsPath, func(p *prefs.Prefs) {
		p.Token = resp.Token
		p.Email = resp.User.Email
	})
	if err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &resp.User, nil
}

// Logout ends the saved session and forgets its token. A session the server
// no longer knows is still forgotten locally.
func Logout(ctx context.Context, cfg config.Config, prefsPath string) error {
	client, err := NewClient(cfg, prefsPath)
	if err != nil {
		return err
	}
	if err := client.Logout(ctx); err != nil && !gridapi.IsUnauthorized(err) {
		return fmt.Errorf("logout: %w", err)
	}
	return prefs.Update(prefsPath, func(p *prefs.Prefs) {
		p.Token = ""
	})
}

// Serve runs the grid API on cfg.Server.Listen until ctx is cancelled.
func Serve(ctx context.Context, cfg config.Config) error {
	st, err := store.Open(cfg.Server.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	srv := server.New(st, server.Options{
		CORSOrigin: cfg.Server.CORSOrigin,
		Logger:     logging.NewLogger("server"),
	})
	logging.NewLogger("app").WithField("listen", cfg.Server.Listen).Info("serving grid API")
	return srv.Run(ctx, cfg.Server.Listen)
}

// describe replaces an authentication failure with a hint to log in.
func describe(err error) error {
	if gridapi.IsUnauthorized(err) {
		return fmt.Errorf("%w: %w", ErrNotLoggedIn, err)
	}
	return err
}

// Whoami returns the user behind the saved session.
func Whoami(ctx context.Context, cfg config.Config, prefsPath string) (*gridapi.User, error) {
	client, err := NewClient(cfg, prefsPath)
	if err != nil {
		return nil, err
	}
	user, err := client.Me(ctx)
	if err != nil {
		return nil, describe(fmt.Errorf("whoami: %w", err))
	}
	return user, nil
}
