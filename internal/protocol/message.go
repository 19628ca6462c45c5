// Package protocol carries the message channel between the host that
// owns the durable Markdown file and the rich-document model that
// edits it. One Conn per editing session; frames are Content-Length
// delimited JSON objects with a "type" discriminator.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	TypeDocumentChanged   = "documentChanged"
	TypeWebviewChanged    = "webviewChanged"
	TypeInitialized       = "initialized"
	TypeFontChanged       = "fontChanged"
	TypeThemeChanged      = "themeChanged"
	TypeThemeColorChanged = "themeColorChanged"
	TypeScrollChanged     = "scrollChanged"
)

// Message is a single protocol frame payload.
type Message interface {
	Type() string
}

// DocumentChanged pushes canonical text into the rich-document model.
type DocumentChanged struct {
	Text string `json:"text"`
}

// WebviewChanged carries the model's materialized text back to the host.
type WebviewChanged struct {
	Text string `json:"text"`
}

// Initialized signals that the model is ready for its first DocumentChanged.
type Initialized struct{}

type FontChanged struct {
	FontSize   int    `json:"fontSize"`
	FontFamily string `json:"fontFamily"`
}

type ThemeChanged struct {
	Colors map[string]string `json:"colors"`
}

type ThemeColorChanged struct {
	SidebarForeground string `json:"sidebarForeground"`
}

// ScrollChanged is best-effort in both directions; it is never
// acknowledged and may be dropped under load.
type ScrollChanged struct {
	ScrollTop int `json:"scrollTop"`
}

func (DocumentChanged) Type() string   { return TypeDocumentChanged }
func (WebviewChanged) Type() string    { return TypeWebviewChanged }
func (Initialized) Type() string       { return TypeInitialized }
func (FontChanged) Type() string       { return TypeFontChanged }
func (ThemeChanged) Type() string      { return TypeThemeChanged }
func (ThemeColorChanged) Type() string { return TypeThemeColorChanged }
func (ScrollChanged) Type() string     { return TypeScrollChanged }

func encode(m Message) ([]byte, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	kind, err := json.Marshal(m.Type())
	if err != nil {
		return nil, err
	}
	fields["type"] = kind
	return json.Marshal(fields)
}

func decode(data []byte) (Message, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	switch head.Type {
	case TypeDocumentChanged:
		var m DocumentChanged
		err := json.Unmarshal(data, &m)
		return &m, err
	case TypeWebviewChanged:
		var m WebviewChanged
		err := json.Unmarshal(data, &m)
		return &m, err
	case TypeInitialized:
		return &Initialized{}, nil
	case TypeFontChanged:
		var m FontChanged
		err := json.Unmarshal(data, &m)
		return &m, err
	case TypeThemeChanged:
		var m ThemeChanged
		err := json.Unmarshal(data, &m)
		return &m, err
	case TypeThemeColorChanged:
		var m ThemeColorChanged
		err := json.Unmarshal(data, &m)
		return &m, err
	case TypeScrollChanged:
		var m ScrollChanged
		err := json.Unmarshal(data, &m)
		return &m, err
	case "":
		return nil, errors.New("frame without message type")
	default:
		return nil, fmt.Errorf("unknown message type %q", head.Type)
	}
}
