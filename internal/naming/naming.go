// Package naming derives filesystem-oriented file names from participant names.
package naming

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultPrefix is prepended to every derived file name
const DefaultPrefix = "confirmation_"

// Table maps substrings of a name to their replacement in a file name.
// Keys are matched literally; anything not covered passes through unchanged.
type Table map[string]string

// DefaultTable returns the substitution table the confirmation letters have
// always used. It only knows a handful of German characters.
func DefaultTable() Table {
	return Table{
		" ": "_",
		".": "_",
		"ö": "oe",
		"ü": "ue",
		"ä": "ae",
		"ß": "sss",
	}
}

// Clone returns a copy of the table
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Namer turns participant names into file names
type Namer struct {
	prefix   string
	replacer *strings.Replacer
}

// NewNamer creates a Namer with the given prefix and table.
// Empty keys in the table are ignored. Each key also matches its composed
// and decomposed Unicode forms, so "u\u0308" is looked up like "ü".
func NewNamer(prefix string, table Table) *Namer {
	expanded := make(map[string]string, len(table)*2)
	for k, v := range table {
		if k == "" {
			continue
		}
		for _, form := range []string{norm.NFC.String(k), norm.NFD.String(k)} {
			if _, explicit := table[form]; !explicit {
				expanded[form] = v
			}
		}
		expanded[k] = v
	}

	keys := make([]string, 0, len(expanded))
	for k := range expanded {
		keys = append(keys, k)
	}
	// strings.Replacer prefers earlier pairs on overlapping matches,
	// so longer keys go first and ties are broken lexically.
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, k, expanded[k])
	}

	return &Namer{
		prefix:   prefix,
		replacer: strings.NewReplacer(pairs...),
	}
}

// Transliterate applies the table to name. Characters the table does not
// cover are left byte for byte as they were.
func (n *Namer) Transliterate(name string) string {
	return n.replacer.Replace(name)
}

// SafeFilename returns the file name stem for name, without extension.
// An empty name yields the bare prefix.
func (n *Namer) SafeFilename(name string) string {
	return n.prefix + n.Transliterate(name)
}

// SourceFile returns the generated document name for name
func (n *Namer) SourceFile(name, ext string) string {
	return n.SafeFilename(name) + ext
}
