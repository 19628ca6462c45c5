// Package app wires one qmark editing session: config, logging, the
// durable document, the protocol connection on stdio and the bridge
// session, plus the ticker that watches the file for outside edits.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kobzarvs/qmark/internal/bridge"
	"github.com/kobzarvs/qmark/internal/config"
	"github.com/kobzarvs/qmark/internal/logger"
	"github.com/kobzarvs/qmark/internal/protocol"
	"github.com/kobzarvs/qmark/internal/session"
	"github.com/kobzarvs/qmark/internal/textdoc"
)

// App is the top-level runtime for qmark.
type App struct {
	args []string
}

func New(args []string) *App {
	return &App{args: args}
}

func (a *App) Run() error {
	var path string
	debug := false
	for _, arg := range a.args {
		switch arg {
		case "--debug":
			debug = true
		default:
			path = arg
		}
	}
	if path == "" {
		return errors.New("no target document: usage: qmark [--debug] <file.md>")
	}

	if err := logger.Init(debug); err != nil {
		return err
	}
	defer logger.Close()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	doc, err := textdoc.Open(abs)
	if err != nil {
		return err
	}

	store, err := session.NewManager()
	if err != nil {
		logger.Warn("session store unavailable", "err", err)
		store = nil
	} else {
		defer store.Stop()
	}

	conn := protocol.NewConn(os.Stdin, os.Stdout)
	defer conn.Close()

	sess := bridge.New(conn, doc, cfg, bridge.Options{
		Warn: func(msg string) {
			fmt.Fprintln(os.Stderr, "qmark:", msg)
			logger.Warn("user warning", "msg", msg)
		},
		Store: store,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	interval := time.Duration(cfg.Sync.PollIntervalMS) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}
	stopPoll := make(chan struct{})
	defer close(stopPoll)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopPoll:
				return
			case <-ticker.C:
				sess.Poll()
			}
		}
	}()

	logger.Info("session started", "path", abs, "eol", fmt.Sprintf("%q", string(doc.EOL())))
	err = sess.Run(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	logger.Info("session ended", "path", abs)
	return err
}
