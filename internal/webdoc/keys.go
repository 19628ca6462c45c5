package webdoc

import (
	"github.com/gdamore/tcell/v2"
)

// Handler reacts to a key event. Returning true consumes the event:
// no default editing happens for it.
type Handler func(ev *tcell.EventKey) bool

// Key identifies a binding. Rune only matters for KeyRune bindings.
type Key struct {
	Key  tcell.Key
	Rune rune
	Mods tcell.ModMask
}

type bindingKey struct {
	key  tcell.Key
	r    rune
	mods tcell.ModMask
}

// Bind registers a handler for a key. Later bindings replace earlier
// ones for the same key.
func (m *Model) Bind(k Key, h Handler) {
	r := k.Rune
	if k.Key != tcell.KeyRune {
		r = 0
	}
	m.bindings[bindingKey{key: k.Key, r: r, mods: k.Mods}] = h
}

// HandleKey dispatches one key event: a bound handler runs first and
// may consume the event; otherwise the default editing primitives
// apply. Reports whether the event did anything.
func (m *Model) HandleKey(ev *tcell.EventKey) bool {
	r := ev.Rune()
	if ev.Key() != tcell.KeyRune {
		r = 0
	}
	if h, ok := m.bindings[bindingKey{key: ev.Key(), r: r, mods: ev.Modifiers()}]; ok {
		if h(ev) {
			return true
		}
	}

	switch ev.Key() {
	case tcell.KeyRune:
		_ = m.Transact(func(tx *Tx) error {
			tx.insertAtCursor(string(ev.Rune()))
			return nil
		})
		return true
	case tcell.KeyEnter:
		_ = m.Transact(func(tx *Tx) error {
			tx.insertAtCursor("\n")
			return nil
		})
		return true
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		_ = m.Transact(func(tx *Tx) error {
			tx.deleteBack()
			return nil
		})
		return true
	}
	return false
}
