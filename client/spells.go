package client

import (
	"fmt"
	"strings"
)

// ActivationKind distinguishes how a spell is triggered.
type ActivationKind int

const (
	// ActivationKeyCombo triggers on a key combination like "ctrl+k".
	ActivationKeyCombo ActivationKind = iota
	// ActivationTextSelection triggers when the user selects text.
	ActivationTextSelection
)

// Activation is a spell trigger condition.
type Activation struct {
	Kind     ActivationKind
	KeyCombo string // normalized, e.g. "ctrl+k"; empty for selections
}

// KeyCombo builds a key-combination activation. Combos are matched
// case-insensitively with modifiers in any order.
func KeyCombo(combo string) Activation {
	return Activation{Kind: ActivationKeyCombo, KeyCombo: normalizeCombo(combo)}
}

// TextSelection builds a selection activation.
func TextSelection() Activation {
	return Activation{Kind: ActivationTextSelection}
}

// Spell is a declarative shortcut: a named action bound to an activation.
// The action receives the session and, for selection spells, the selected
// text.
type Spell struct {
	Name       string
	Icon       string
	Activation Activation
	Action     func(s *Session, selection string) error
}

// SpellBook resolves activations to spells.
type SpellBook struct {
	spells []Spell
}

// NewSpellBook creates an empty SpellBook.
func NewSpellBook() *SpellBook {
	return &SpellBook{}
}

// Register adds spells to the book.
func (b *SpellBook) Register(spells ...Spell) {
	b.spells = append(b.spells, spells...)
}

// Spells returns all registered spells.
func (b *SpellBook) Spells() []Spell {
	out := make([]Spell, len(b.spells))
	copy(out, b.spells)
	return out
}

// Match returns the spells bound to an activation, menu order preserved.
func (b *SpellBook) Match(activation Activation) []Spell {
	var matched []Spell
	for _, sp := range b.spells {
		if sp.Activation.Kind != activation.Kind {
			continue
		}
		if sp.Activation.Kind == ActivationKeyCombo && sp.Activation.KeyCombo != normalizeCombo(activation.KeyCombo) {
			continue
		}
		matched = append(matched, sp)
	}
	return matched
}

// Invoke runs the named spell for an activation against a session.
func (b *SpellBook) Invoke(activation Activation, name string, session *Session, selection string) error {
	for _, sp := range b.Match(activation) {
		if sp.Name == name {
			return sp.Action(session, selection)
		}
	}
	return fmt.Errorf("spell: no %q bound to this activation", name)
}

// normalizeCombo lowercases a combo and sorts nothing: modifiers are expected
// in ctrl/alt/shift order, matching how they are declared.
func normalizeCombo(combo string) string {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(combo)), "+")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return strings.Join(parts, "+")
}

// Clipboard receives copied text, since the environment owns the actual
// clipboard.
type Clipboard func(text string) error

// UploadRequester is called when the user asks to upload a file; the
// environment owns the file picker.
type UploadRequester func() error

// DefaultSpells is the stock spell set: a ctrl+k quick-actions menu plus
// text-selection AI prompts.
func DefaultSpells(clipboard Clipboard, requestUpload UploadRequester) []Spell {
	quick := KeyCombo("ctrl+k")
	return []Spell{
		{
			Name:       "Upload File",
			Icon:       "upload",
			Activation: quick,
			Action: func(s *Session, _ string) error {
				if requestUpload == nil {
					return fmt.Errorf("spell: no upload requester configured")
				}
				return requestUpload()
			},
		},
		{
			Name:       "Invite User",
			Icon:       "hash",
			Activation: quick,
			Action: func(s *Session, _ string) error {
				room := s.Room()
				if room == nil {
					return fmt.Errorf("spell: no active room")
				}
				if clipboard == nil {
					return fmt.Errorf("spell: no clipboard configured")
				}
				return clipboard(room.InviteCode)
			},
		},
		{
			Name:       "Mention AI",
			Icon:       "bot",
			Activation: quick,
			Action: func(s *Session, _ string) error {
				return s.MentionAI("@ai Hello! Can you help with something?")
			},
		},
		{
			Name:       "Summarize Chat",
			Icon:       "file-text",
			Activation: quick,
			Action: func(s *Session, _ string) error {
				return s.MentionAI("@ai Can you summarize our conversation so far?")
			},
		},
		{
			Name:       "Toggle Voice",
			Icon:       "mic",
			Activation: quick,
			Action: func(s *Session, _ string) error {
				s.ToggleVoice()
				return nil
			},
		},
		{
			Name:       "Ask AI about this",
			Icon:       "bot",
			Activation: TextSelection(),
			Action: func(s *Session, selection string) error {
				return s.MentionAI("@ai " + selection)
			},
		},
		{
			Name:       "Explain this",
			Icon:       "message-square",
			Activation: TextSelection(),
			Action: func(s *Session, selection string) error {
				return s.MentionAI("@ai Explain this: " + selection)
			},
		},
	}
}
