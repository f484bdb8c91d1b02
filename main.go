package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cdown/beamview/config"
	"github.com/cdown/beamview/display"
	"github.com/cdown/beamview/document"
	"github.com/cdown/beamview/engine"
	"github.com/cdown/beamview/history"
	"github.com/cdown/beamview/remote"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

func init() {
	// GLFW event handling must run on the main OS thread.
	runtime.LockOSThread()
}

// injectGlobals injects all of our globals into their packages
func injectGlobals(logger *slog.Logger) {
	Logger = logger
	config.Logger = logger
	document.Logger = logger
	engine.Logger = logger
	display.Logger = logger
	remote.Logger = logger
	history.Logger = logger
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <pdf_file>\n", os.Args[0])
		os.Exit(1)
	}

	cfg, logger := config.Setup()
	injectGlobals(logger)

	if err := cfg.Validate(); err != nil {
		Logger.Error("Refusing to start", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, os.Args[1]); err != nil {
		Logger.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, pdfPath string) error {
	axis, err := engine.ParseAxis(cfg.Split)
	if err != nil {
		return err
	}

	doc, err := document.Open(pdfPath)
	if err != nil {
		return err
	}
	defer doc.Close()
	Logger.Info("Opened document", "path", doc.Path(), "pages", doc.PageCount())

	pageWidth, pageHeight, err := doc.PageSize(0)
	if err != nil {
		return err
	}

	platform, err := display.New(doc.Title(), cfg.Windows, pageWidth, pageHeight, axis)
	if err != nil {
		return err
	}
	defer platform.Close()

	state, err := engine.NewState(doc, platform, axis, cfg.CachePolicy)
	if err != nil {
		return err
	}
	defer state.Close()

	loop := engine.NewLoop(state, time.Duration(cfg.IdleWaitMS)*time.Millisecond)

	// Viewing history: restore the last position and record navigation.
	if cfg.HistoryDB != "" {
		if closeHistory, err := setupHistory(cfg.HistoryDB, doc, state, loop); err != nil {
			Logger.Warn("History disabled", "error", err)
		} else {
			defer closeHistory()
		}
	}

	if cfg.RemoteAddr != "" {
		server := remote.New(platform.Inject)
		loop.PublishStatus = server.Publish
		go server.Start(cfg.RemoteAddr)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			server.Shutdown(ctx)
		}()
	}

	if cfg.AutoAdvance != "" {
		scheduler := cron.New()
		if _, err := scheduler.AddFunc(cfg.AutoAdvance, func() {
			platform.Inject(engine.Event{Kind: engine.EventNext})
		}); err != nil {
			return fmt.Errorf("invalid auto-advance schedule %q: %w", cfg.AutoAdvance, err)
		}
		Logger.Info("Auto-advance enabled", "schedule", cfg.AutoAdvance)
		scheduler.Start()
		defer scheduler.Stop()
	}

	return loop.Run()
}

// setupHistory restores the document's last viewed page, opens a viewing
// session, and hooks navigation recording into the loop. The returned
// function closes the session and the store.
func setupHistory(dbPath string, doc *document.Document, state *engine.State, loop *engine.Loop) (func(), error) {
	store, err := history.Open(dbPath)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if page, ok, err := store.RestorePage(ctx, doc.Path(), doc.PageCount()); err != nil {
		Logger.Warn("Could not read last position", "error", err)
	} else if ok && page > 0 {
		state.CurrentPage = page
		Logger.Info("Restored last position", "page", page)
	}

	sessionID, err := store.BeginSession(ctx, doc.Path(), state.CurrentPage)
	if err != nil {
		Logger.Warn("Could not record session start", "error", err)
	}

	loop.OnPageChanged = func(page int) {
		if err := store.RecordPage(ctx, doc.Path(), page); err != nil {
			Logger.Warn("Could not record position", "page", page, "error", err)
		}
	}

	return func() {
		if sessionID != "" {
			if err := store.EndSession(ctx, sessionID, state.CurrentPage); err != nil {
				Logger.Warn("Could not record session end", "error", err)
			}
		}
		store.Close()
	}, nil
}
