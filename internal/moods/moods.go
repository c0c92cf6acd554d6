// Package moods holds the fixed mood vocabulary attachable to impressions.
package moods

import (
	"errors"
	"fmt"
	"strings"
)

// MaxPerImpression caps how many moods a single impression may carry.
const MaxPerImpression = 3

// ErrUnknownMood indicates a value outside the vocabulary.
var ErrUnknownMood = errors.New("moods: unknown mood")

// Mood names one face glyph from the vocabulary.
type Mood string

const (
	Happy      Mood = "happy"
	Sad        Mood = "sad"
	Angry      Mood = "angry"
	Surprised  Mood = "surprised"
	Confused   Mood = "confused"
	Excited    Mood = "excited"
	Tired      Mood = "tired"
	Cool       Mood = "cool"
	Love       Mood = "love"
	Neutral    Mood = "neutral"
	Worried    Mood = "worried"
	Scared     Mood = "scared"
	Evil       Mood = "evil"
	Silly      Mood = "silly"
	Crying     Mood = "crying"
	Wink       Mood = "wink"
	Thinking   Mood = "thinking"
	Rolling    Mood = "rolling"
	Suspicious Mood = "suspicious"
	Eye        Mood = "eye"
	Eyes       Mood = "eyes"
	Spiral     Mood = "spiral"
)

const defaultGlyph = "◉_◉"

var vocabulary = []Mood{
	Happy, Sad, Angry, Surprised, Confused,
	Excited, Tired, Cool, Love, Neutral,
	Worried, Scared, Evil, Silly, Crying,
	Wink, Thinking, Rolling, Suspicious,
	Eye, Eyes, Spiral,
}

var glyphs = map[Mood]string{
	Happy:      "^_^",
	Sad:        "T_T",
	Angry:      ">_<",
	Surprised:  "O_O",
	Confused:   "o_O",
	Excited:    "*_*",
	Tired:      "-_-",
	Cool:       "⌐■_■",
	Love:       "♥_♥",
	Neutral:    "•_•",
	Worried:    "⊙_⊙",
	Scared:     "ⓧ_ⓧ",
	Evil:       "⊗_⊗",
	Silly:      "x_x",
	Crying:     "இ_இ",
	Wink:       ";)",
	Thinking:   "?_?",
	Rolling:    "◔_◔",
	Suspicious: "¬_¬",
	Eye:        "◉",
	Eyes:       "◉◉",
	Spiral:     "@_@",
}

// Vocabulary returns every selectable mood in display order.
func Vocabulary() []Mood {
	out := make([]Mood, len(vocabulary))
	copy(out, vocabulary)
	return out
}

// Parse validates a raw mood name.
func Parse(raw string) (Mood, error) {
	candidate := Mood(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := glyphs[candidate]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMood, raw)
	}
	return candidate, nil
}

// Glyph returns the face rendered for the mood.
func (m Mood) Glyph() string {
	if glyph, ok := glyphs[m]; ok {
		return glyph
	}
	return defaultGlyph
}

func (m Mood) String() string {
	return string(m)
}

// Normalize parses raw names into a set that keeps first-seen order.
func Normalize(raw []string) ([]Mood, error) {
	seen := make(map[Mood]struct{}, len(raw))
	out := make([]Mood, 0, len(raw))
	for _, value := range raw {
		mood, err := Parse(value)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[mood]; ok {
			continue
		}
		seen[mood] = struct{}{}
		out = append(out, mood)
	}
	return out, nil
}
