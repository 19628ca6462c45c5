// Package bridge runs the host side of an editing session. A Session
// owns the synchronization direction flag and the last-pushed snapshot,
// moves text between the durable document and the rich surface, and
// keeps the two sides from echoing into each other.
//
// All session state is confined to the Run loop's goroutine. Methods
// that are safe to call from elsewhere say so; everything else must run
// as a queued task.
package bridge

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shurcooL/markdownfmt/markdown"

	"github.com/kobzarvs/qmark/internal/config"
	"github.com/kobzarvs/qmark/internal/logger"
	"github.com/kobzarvs/qmark/internal/protocol"
	"github.com/kobzarvs/qmark/internal/session"
	"github.com/kobzarvs/qmark/internal/textdoc"
)

// WarnFunc surfaces a user-visible warning.
type WarnFunc func(msg string)

// Options carries the optional collaborators of a Session.
type Options struct {
	// Warn receives edit-application failures and other conditions the
	// user should see. Nil means log-only.
	Warn WarnFunc
	// Store persists per-file view state across sessions. May be nil.
	Store *session.Manager
}

// Session is one host-side editing session over one protocol
// connection.
type Session struct {
	conn  *protocol.Conn
	doc   *textdoc.Document
	cfg   config.Config
	warn  WarnFunc
	store *session.Manager

	tasks chan func()
	done  chan struct{}

	// Owned by the Run loop.
	initialized bool
	pending     string
	hasPending  bool
	fromWebview bool
	snapshot    string
}

// New builds a session; Run starts it.
func New(conn *protocol.Conn, doc *textdoc.Document, cfg config.Config, opts Options) *Session {
	warn := opts.Warn
	if warn == nil {
		warn = func(msg string) { logger.Warn("session warning", "msg", msg) }
	}
	return &Session{
		conn:  conn,
		doc:   doc,
		cfg:   cfg,
		warn:  warn,
		store: opts.Store,
		tasks: make(chan func(), 32),
		done:  make(chan struct{}),
	}
}

// Run drives the session until the surface disconnects or ctx is
// canceled. Call it once per session; the initial document push is
// queued until the surface reports initialized.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)
	s.restoreViewState()
	s.pushDocument(s.doc.Text())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-s.tasks:
			fn()
		case msg, ok := <-s.conn.Events():
			if !ok {
				return nil
			}
			s.handleMessage(msg)
		case ev := <-s.doc.Events():
			s.handleDocEvent(ev)
		}
	}
}

// do queues fn on the session loop. A finished session swallows tasks
// instead of blocking the caller.
func (s *Session) do(fn func()) {
	select {
	case s.tasks <- fn:
	case <-s.done:
	}
}

// Barrier returns after every task and message queued before the call
// has been processed, or when the session finishes. Safe to call from
// any goroutine except the Run loop itself.
func (s *Session) Barrier() {
	fin := make(chan struct{})
	s.do(func() { close(fin) })
	select {
	case <-fin:
	case <-s.done:
	}
}

// Poll checks the backing file for external modification. Safe to call
// from any goroutine; the check itself runs on the session loop.
func (s *Session) Poll() {
	s.do(func() {
		if _, err := s.doc.ReloadIfChanged(); err != nil {
			logger.Warn("file poll failed", "path", s.doc.Path(), "err", err)
			return
		}
		s.drainDocEvents()
	})
}

// PushSidebarColor sends a targeted theme update to the surface. Safe
// to call from any goroutine.
func (s *Session) PushSidebarColor(color string) {
	s.do(func() { s.pushSidebarColor(color) })
}

func (s *Session) pushSidebarColor(color string) {
	s.send(&protocol.ThemeColorChanged{SidebarForeground: color})
}

func (s *Session) handleMessage(msg protocol.Message) {
	switch m := msg.(type) {
	case *protocol.Initialized:
		s.initialized = true
		s.sendStartup()
	case *protocol.WebviewChanged:
		s.applyFromWebview(m.Text)
	case *protocol.ScrollChanged:
		if s.store != nil && s.doc.Path() != "" {
			s.store.SetScrollTop(s.doc.Path(), m.ScrollTop)
		}
	default:
		logger.Debug("unexpected message from surface", "type", msg.Type())
	}
}

// sendStartup pushes theme, sidebar color and font, flushes the queued
// document, then echoes the persisted scroll position.
func (s *Session) sendStartup() {
	s.send(&protocol.ThemeChanged{Colors: s.cfg.Theme.Colors()})
	s.pushSidebarColor(s.cfg.Theme.SidebarForeground)
	s.send(&protocol.FontChanged{
		FontSize:   s.cfg.Editor.FontSize,
		FontFamily: s.cfg.Editor.FontFamily,
	})
	if s.hasPending {
		text := s.pending
		s.pending = ""
		s.hasPending = false
		s.send(&protocol.DocumentChanged{Text: text})
	}
	if s.store != nil && s.doc.Path() != "" {
		if st, ok := s.store.GetFileState(s.doc.Path()); ok && st.ScrollTop > 0 {
			s.send(&protocol.ScrollChanged{ScrollTop: st.ScrollTop})
		}
	}
}

func (s *Session) handleDocEvent(ev textdoc.Event) {
	if s.fromWebview && ev.Text == s.snapshot {
		logger.Debug("suppressed echo of surface-originated save")
		return
	}
	s.pushDocument(ev.Text)
}

func (s *Session) pushDocument(text string) {
	if !s.initialized {
		s.pending = text
		s.hasPending = true
		logger.Debug("document push queued until surface initializes")
		return
	}
	s.send(&protocol.DocumentChanged{Text: text})
}

// applyFromWebview lands a surface edit in the durable document. The
// direction flag stays set while the resulting save echo is absorbed
// and is always cleared afterwards, even on failure.
func (s *Session) applyFromWebview(text string) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	final := text
	if s.cfg.Sync.FormatOnSave {
		final = formatMarkdown(text)
	}
	s.fromWebview = true
	s.snapshot = final

	err := s.doc.ReplaceAll(final)
	if err == nil && s.doc.Path() != "" {
		err = s.doc.Save()
	}
	s.drainDocEvents()
	s.scheduleFlagClear()
	if err != nil {
		s.warn(fmt.Sprintf("failed to apply editor changes: %v", err))
		return
	}
	if final != text {
		// Formatting changed the text; the file is the source of
		// truth, so the surface gets the formatted version back.
		s.send(&protocol.DocumentChanged{Text: final})
	}
}

func (s *Session) scheduleFlagClear() {
	grace := time.Duration(s.cfg.Sync.FlagGraceMS) * time.Millisecond
	if grace <= 0 {
		s.do(func() { s.fromWebview = false })
		return
	}
	time.AfterFunc(grace, func() {
		s.do(func() { s.fromWebview = false })
	})
}

func (s *Session) drainDocEvents() {
	for {
		select {
		case ev := <-s.doc.Events():
			s.handleDocEvent(ev)
		default:
			return
		}
	}
}

func (s *Session) restoreViewState() {
	if s.store == nil || s.doc.Path() == "" {
		return
	}
	st, ok := s.store.GetFileState(s.doc.Path())
	if !ok {
		return
	}
	switch st.EOL {
	case "crlf":
		s.doc.SetEOL(textdoc.CRLF)
	case "lf":
		s.doc.SetEOL(textdoc.LF)
	}
}

func (s *Session) send(msg protocol.Message) {
	if err := s.conn.Send(msg); err != nil {
		logger.Warn("send to surface failed", "type", msg.Type(), "err", err)
	}
}

// formatFunc runs the Markdown formatter. Swapped out in tests to
// drive the failure paths.
var formatFunc = func(src []byte) ([]byte, error) {
	return markdown.Process("", src, nil)
}

// formatMarkdown normalizes Markdown through the formatter. It never
// fails and never returns empty: bad input comes back unchanged, and a
// formatter panic is contained here instead of unwinding the session.
func formatMarkdown(text string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("format pass panicked", "panic", r)
			out = text
		}
	}()
	formatted, err := formatFunc([]byte(text))
	if err != nil {
		logger.Warn("format pass failed", "err", err)
		return text
	}
	if len(bytes.TrimSpace(formatted)) == 0 {
		return text
	}
	return string(formatted)
}
