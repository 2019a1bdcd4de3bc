package tags

import (
	"fmt"
	"sync"
)

// ID3Data is the ID3 payload of a tag. Description applies to user-defined
// text and URL frames and to comments; Language applies to comments.
type ID3Data struct {
	Value       string `json:"value,omitempty"`
	Description string `json:"description,omitempty"`
	Language    string `json:"language,omitempty"`
}

// Value carries the per-format payloads of one tag. A nil payload means the
// tag is skipped for that format.
type Value struct {
	ID3  *ID3Data `json:"id3,omitempty"`
	RIFF *string  `json:"riff,omitempty"`
}

// Mapping maps tag names to their payloads.
type Mapping map[string]Value

// Text returns a Value that carries s in both formats.
func Text(s string) Value {
	return Value{ID3: &ID3Data{Value: s}, RIFF: &s}
}

// ID3Only returns a Value with only an ID3 payload.
func ID3Only(d ID3Data) Value {
	return Value{ID3: &d}
}

// RIFFOnly returns a Value with only a RIFF payload.
func RIFFOnly(s string) Value {
	return Value{RIFF: &s}
}

// Clone returns a shallow copy of m; payload pointers are shared.
func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// DefaultMapping is substituted when no metadata is supplied.
func DefaultMapping() Mapping {
	return Mapping{
		"album": ID3Only(ID3Data{Value: "Untitled Album"}),
		"title": ID3Only(ID3Data{Value: "Untitled Recording"}),
		"name":  RIFFOnly("Untitled Recording"),
		"userDefinedTextInformationFrame": ID3Only(ID3Data{
			Description: "Description",
			Value:       "value",
		}),
	}
}

// Warning is a non-fatal problem found while encoding, such as a tag name
// that is not in the descriptor table.
type Warning struct {
	Stage   string // "id3" or "riff"
	Tag     string
	Message string
}

// String returns a human-readable warning message.
func (w Warning) String() string {
	return fmt.Sprintf("%s: %s: %s", w.Stage, w.Tag, w.Message)
}

// Warnings collects warnings from concurrent producers.
type Warnings struct {
	mu   sync.Mutex
	list []Warning
}

// Add records a warning.
func (w *Warnings) Add(stage, tag, format string, args ...any) {
	if w == nil {
		return
	}
	w.mu.Lock()
	w.list = append(w.list, Warning{Stage: stage, Tag: tag, Message: fmt.Sprintf(format, args...)})
	w.mu.Unlock()
}

// List returns a copy of the recorded warnings.
func (w *Warnings) List() []Warning {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Warning(nil), w.list...)
}
