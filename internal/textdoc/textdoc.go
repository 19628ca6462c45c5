// Package textdoc owns the durable plain-text side of a document: the
// file on disk, its line-ending convention, and change notifications.
// Text crossing the package boundary is always canonical ("\n" endings);
// the document's own EOL style is applied only when bytes hit the disk.
package textdoc

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/kobzarvs/qmark/internal/logger"
)

// EOL is a line-ending convention.
type EOL string

const (
	LF   EOL = "\n"
	CRLF EOL = "\r\n"
)

// EventKind identifies what happened to the document.
type EventKind int

const (
	// EventSaved fires after Save writes the buffer out.
	EventSaved EventKind = iota
	// EventExternalChange fires when ReloadIfChanged adopts content
	// written by someone else.
	EventExternalChange
)

// Event carries a document notification. Text is the canonical text
// after the event.
type Event struct {
	Kind EventKind
	Text string
}

// Document is a text file plus its on-disk metadata. It is not safe for
// concurrent use; callers are expected to drive it from a single loop.
type Document struct {
	path string
	eol  EOL

	text     string // canonical, in-memory
	diskText string // canonical snapshot of what disk last held
	mtime    time.Time
	size     int64

	events chan Event
}

// Open reads path and detects its line-ending convention. Files without
// line breaks default to LF.
func Open(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := normalize(string(data))
	d := &Document{
		path:     path,
		eol:      DetectEOL(string(data)),
		text:     text,
		diskText: text,
		events:   make(chan Event, 16),
	}
	if info, err := os.Stat(path); err == nil {
		d.mtime = info.ModTime()
		d.size = info.Size()
	}
	return d, nil
}

// NewMemory builds a document with no backing file. Save returns an
// error; ReloadIfChanged is a no-op.
func NewMemory(text string, eol EOL) *Document {
	t := normalize(text)
	return &Document{
		eol:      eol,
		text:     t,
		diskText: t,
		events:   make(chan Event, 16),
	}
}

func (d *Document) Path() string { return d.path }

func (d *Document) EOL() EOL { return d.eol }

// SetEOL forces the line-ending convention, overriding detection. Takes
// effect on the next Save.
func (d *Document) SetEOL(eol EOL) { d.eol = eol }

// Text returns the canonical buffer content.
func (d *Document) Text() string { return d.text }

// Events delivers save and external-change notifications. Events are
// dropped, not blocked on, when nobody is draining.
func (d *Document) Events() <-chan Event { return d.events }

// ReplaceAll swaps the whole buffer. The input must be canonical; the
// document's EOL convention is applied at Save time.
func (d *Document) ReplaceAll(text string) error {
	if strings.Contains(text, "\r") {
		return errors.New("replacement text is not canonical")
	}
	d.text = text
	return nil
}

// Save writes the buffer to the backing file in the document's EOL
// convention, then emits EventSaved.
func (d *Document) Save() error {
	if d.path == "" {
		return errors.New("no file name")
	}
	data := []byte(d.expand(d.text))
	tmp := d.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, d.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	d.diskText = d.text
	if info, err := os.Stat(d.path); err == nil {
		d.mtime = info.ModTime()
		d.size = info.Size()
	}
	d.emit(Event{Kind: EventSaved, Text: d.text})
	return nil
}

// ReloadIfChanged re-reads the backing file when its content no longer
// matches what this document last read or wrote. On adoption it
// re-detects the EOL convention, replaces the buffer and emits
// EventExternalChange. Unsaved in-memory edits lose to the disk.
func (d *Document) ReloadIfChanged() (bool, error) {
	if d.path == "" {
		return false, nil
	}
	info, err := os.Stat(d.path)
	if err != nil {
		return false, err
	}
	if info.ModTime().Equal(d.mtime) && info.Size() == d.size {
		return false, nil
	}
	data, err := os.ReadFile(d.path)
	if err != nil {
		return false, err
	}
	d.mtime = info.ModTime()
	d.size = info.Size()
	text := normalize(string(data))
	if text == d.diskText {
		return false, nil
	}
	d.eol = DetectEOL(string(data))
	d.text = text
	d.diskText = text
	logger.Debug("external change adopted", "path", d.path, "bytes", len(data))
	d.emit(Event{Kind: EventExternalChange, Text: text})
	return true, nil
}

func (d *Document) emit(ev Event) {
	select {
	case d.events <- ev:
	default:
		logger.Warn("document event dropped", "path", d.path, "kind", ev.Kind)
	}
}

func (d *Document) expand(text string) string {
	if d.eol == CRLF {
		return strings.ReplaceAll(text, "\n", "\r\n")
	}
	return text
}

// DetectEOL picks the dominant line ending; ties and break-less text go
// to LF.
func DetectEOL(text string) EOL {
	crlf := strings.Count(text, "\r\n")
	lf := strings.Count(text, "\n") - crlf
	if crlf > lf {
		return CRLF
	}
	return LF
}

func normalize(text string) string {
	return strings.ReplaceAll(text, "\r\n", "\n")
}
