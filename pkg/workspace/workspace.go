// Package workspace persists named graphs. A workspace is plain data only:
// the graph plus optional metadata, keyed by name with last-write-wins
// semantics. Stores exist for the local filesystem (FileStore, optionally
// snappy-compressed) and for the backend's nexus API (see pkg/api).
package workspace

import (
	"time"
	"unicode"

	"github.com/dd0wney/nodewire/pkg/graph"
)

// Metadata describes a workspace without touching its graph.
type Metadata struct {
	CreatedAt   string `json:"created_at,omitempty"`
	ModifiedAt  string `json:"modified_at,omitempty"`
	CreatedBy   string `json:"created_by,omitempty"`
	Description string `json:"description,omitempty"`
}

// Data is one saved workspace. Behavioral wiring never lands here; the
// graph carries only serializable node data.
type Data struct {
	Graph    graph.Graph `json:"graph"`
	Metadata *Metadata   `json:"metadata,omitempty"`
}

// Stamp fills the metadata timestamps: CreatedAt once, ModifiedAt on
// every call.
func (d *Data) Stamp(now time.Time) {
	ts := now.UTC().Format(time.RFC3339)
	if d.Metadata == nil {
		d.Metadata = &Metadata{}
	}
	if d.Metadata.CreatedAt == "" {
		d.Metadata.CreatedAt = ts
	}
	d.Metadata.ModifiedAt = ts
}

// Store is name-keyed workspace persistence. Load and Delete of an absent
// name return ErrNotFound; Save overwrites silently (last write wins).
type Store interface {
	Save(name string, data Data) error
	Load(name string) (Data, error)
	List() ([]string, error)
	Delete(name string) error
}

// SanitizeName maps a workspace name onto its storage key: letters,
// digits, '-' and '_' pass through, every other rune becomes '_'. Both
// sides of the nexus API apply the same mapping, so "a b" and "a_b"
// collide by contract.
func SanitizeName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		if isNameRune(r) {
			out = append(out, r)
		} else {
			out = append(out, '_')
		}
	}
	return string(out)
}

func isNameRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_'
}
