// Package mapstore persists OccupancyGrid records to a directory as
// self-describing JSON files with a metadata sidecar for fast listing.
package mapstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hyva-rover/roverbrain/internal/occupancy"
	"github.com/hyva-rover/roverbrain/internal/roverrors"
)

// Meta is the metadata sidecar written alongside each saved map, enough to
// list and preview maps without loading the full grid.
type Meta struct {
	Name       string               `json:"name"`
	Filename   string               `json:"filename"`
	Saved      float64              `json:"saved"`
	Stats      occupancy.Stats      `json:"stats"`
	RoomBounds *occupancy.RoomBounds `json:"room_bounds,omitempty"`
}

// Store manages saved occupancy-grid maps under a directory.
type Store struct {
	dir string
	now func() float64
}

// New builds a Store rooted at dir, creating it if necessary.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mapstore: %w", err)
	}
	return &Store{dir: dir, now: func() float64 { return float64(time.Now().Unix()) }}, nil
}

// Save writes both the full record and its .meta.json sidecar for name,
// sanitizing name to a safe filename first.
func (s *Store) Save(grid *occupancy.Grid, name string) (Meta, error) {
	safe := Sanitize(name)
	saved := s.now()
	rec := grid.ToRecord(saved, saved)

	if err := s.writeJSON(safe+".json", rec); err != nil {
		return Meta{}, err
	}

	var bounds *occupancy.RoomBounds
	if rb, ok := grid.RoomBounds(); ok {
		bounds = &rb
	}
	meta := Meta{
		Name:       name,
		Filename:   safe + ".json",
		Saved:      saved,
		Stats:      grid.Stats(),
		RoomBounds: bounds,
	}
	if err := s.writeJSON(safe+".meta.json", meta); err != nil {
		return Meta{}, err
	}
	return meta, nil
}

// Load reads a saved grid by name, returning a roverrors.ErrNotFound-wrapped
// error when it does not exist.
func (s *Store) Load(name string) (*occupancy.Grid, error) {
	safe := Sanitize(name)
	var rec occupancy.Record
	if err := s.readJSON(safe+".json", &rec); err != nil {
		return nil, err
	}
	return occupancy.FromRecord(rec), nil
}

// Delete removes every file belonging to name (.json, .meta.json, .png
// preview), reporting whether anything was actually removed.
func (s *Store) Delete(name string) (bool, error) {
	safe := Sanitize(name)
	deleted := false
	for _, ext := range []string{".json", ".meta.json", ".png"} {
		path := filepath.Join(s.dir, safe+ext)
		if err := os.Remove(path); err == nil {
			deleted = true
		} else if !os.IsNotExist(err) {
			return deleted, fmt.Errorf("mapstore: delete %s: %w", path, err)
		}
	}
	return deleted, nil
}

// List returns every saved map's metadata, newest-saved-first. Unreadable
// sidecars are skipped rather than failing the whole listing.
func (s *Store) List() ([]Meta, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.meta.json"))
	if err != nil {
		return nil, fmt.Errorf("mapstore: list: %w", err)
	}
	sort.Strings(matches)

	var metas []Meta
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var m Meta
		if err := json.Unmarshal(data, &m); err != nil {
			continue
		}
		metas = append(metas, m)
	}
	sort.SliceStable(metas, func(i, j int) bool { return metas[i].Saved > metas[j].Saved })
	return metas, nil
}

// Exists reports whether a map with this name is saved.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(filepath.Join(s.dir, Sanitize(name)+".json"))
	return err == nil
}

// Rename moves every file belonging to oldName to newName's sanitized
// filenames and updates the name/filename fields inside the meta sidecar.
func (s *Store) Rename(oldName, newName string) error {
	oldSafe, newSafe := Sanitize(oldName), Sanitize(newName)
	for _, ext := range []string{".json", ".meta.json", ".png"} {
		oldPath := filepath.Join(s.dir, oldSafe+ext)
		newPath := filepath.Join(s.dir, newSafe+ext)
		if _, err := os.Stat(oldPath); err != nil {
			continue
		}
		if err := os.Rename(oldPath, newPath); err != nil {
			return fmt.Errorf("mapstore: rename %s: %w", oldPath, err)
		}
	}

	metaPath := filepath.Join(s.dir, newSafe+".meta.json")
	var meta Meta
	if err := s.readJSON(newSafe+".meta.json", &meta); err != nil {
		if errors.Is(err, roverrors.ErrNotFound) {
			return nil
		}
		return err
	}
	meta.Name = newName
	meta.Filename = newSafe + ".json"
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("mapstore: rename %s: %w", metaPath, err)
	}
	return os.WriteFile(metaPath, data, 0o644)
}

// Sanitize converts a human-readable map name to a safe filename stem:
// keep alphanumerics, '-', '_' and spaces, strip everything else, collapse
// spaces to underscores, lowercase, and default to "unnamed" when empty.
func Sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		if isAlnum(r) || r == '-' || r == '_' || r == ' ' {
			b.WriteRune(r)
		}
	}
	safe := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(b.String()), " ", "_"))
	if safe == "" {
		return "unnamed"
	}
	return safe
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func (s *Store) writeJSON(filename string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("mapstore: encode %s: %w", filename, err)
	}
	path := filepath.Join(s.dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("mapstore: write %s: %w", path, err)
	}
	return nil
}

func (s *Store) readJSON(filename string, v any) error {
	path := filepath.Join(s.dir, filename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("mapstore: %s: %w", filename, roverrors.ErrNotFound)
		}
		return fmt.Errorf("mapstore: read %s: %w", path, err)
	}
	return json.Unmarshal(data, v)
}
