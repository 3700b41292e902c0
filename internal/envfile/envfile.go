// Package envfile reads and writes dotenv-style settings documents while
// preserving their layout. Comments, blank lines, and anything that is not a
// key=value assignment round-trip byte for byte; only lines comfyctl sets are
// rewritten.
package envfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type line struct {
	raw   string
	key   string // empty for comments, blanks, and other non-assignment lines
	value string
}

// Document is an ordered dotenv document.
type Document struct {
	lines           []line
	trailingNewline bool
}

// New returns an empty document.
func New() *Document {
	return &Document{trailingNewline: true}
}

// Parse builds a document from raw file content.
func Parse(data []byte) *Document {
	text := string(data)
	if text == "" {
		return New()
	}

	d := &Document{trailingNewline: strings.HasSuffix(text, "\n")}
	raw := strings.Split(text, "\n")
	if d.trailingNewline {
		raw = raw[:len(raw)-1]
	}
	for _, rl := range raw {
		d.lines = append(d.lines, parseLine(rl))
	}
	return d
}

// Load reads and parses the document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}
	return Parse(data), nil
}

func parseLine(raw string) line {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return line{raw: raw}
	}
	before, after, found := strings.Cut(raw, "=")
	if !found {
		return line{raw: raw}
	}
	return line{raw: raw, key: strings.TrimSpace(before), value: after}
}

// Get returns the trimmed value of key. When a key appears more than once the
// last assignment wins, matching how the dashboard reads its settings.
func (d *Document) Get(key string) (string, bool) {
	value := ""
	found := false
	for _, ln := range d.lines {
		if ln.key == key {
			value = strings.TrimSpace(ln.value)
			found = true
		}
	}
	return value, found
}

// Set assigns key to value, rewriting the last existing assignment in place
// or appending a new line when the key is absent.
func (d *Document) Set(key, value string) {
	for i := len(d.lines) - 1; i >= 0; i-- {
		if d.lines[i].key == key {
			d.lines[i] = line{raw: key + "=" + value, key: key, value: value}
			return
		}
	}
	d.lines = append(d.lines, line{raw: key + "=" + value, key: key, value: value})
}

// Keys returns the assignment keys in document order, without duplicates.
func (d *Document) Keys() []string {
	var keys []string
	seen := map[string]bool{}
	for _, ln := range d.lines {
		if ln.key == "" || seen[ln.key] {
			continue
		}
		seen[ln.key] = true
		keys = append(keys, ln.key)
	}
	return keys
}

// Bytes serializes the document.
func (d *Document) Bytes() []byte {
	if len(d.lines) == 0 {
		return nil
	}
	var b strings.Builder
	for i, ln := range d.lines {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(ln.raw)
	}
	if d.trailingNewline {
		b.WriteString("\n")
	}
	return []byte(b.String())
}

// WriteFile writes the document atomically: the content lands in a temp file
// next to the destination and is renamed over it.
func (d *Document) WriteFile(path string, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp settings file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(d.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp settings file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set settings file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp settings file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move settings file into place: %w", err)
	}
	return nil
}
