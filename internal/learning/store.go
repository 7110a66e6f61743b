package learning

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Record is one learning sample: a query and the result URLs it produced,
// plus page content when capture is enabled.
type Record struct {
	ID          string    `json:"id"`
	Query       string    `json:"query"`
	URLs        []string  `json:"urls"`
	CollectedAt time.Time `json:"collected_at"`
	Pages       []Page    `json:"pages,omitempty"`
}

// Page is the captured content of one result URL.
type Page struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Text        string `json:"text,omitempty"`
}

// Store keeps records on disk as <id>.json. There is no eviction besides
// PurgeOlderThan.
type Store struct {
	Dir string
	// StrictPerms enforces 0700 on the directory and 0600 on files.
	StrictPerms bool
}

// RecordID derives a stable id from the query and collection time.
func RecordID(query string, at time.Time) string {
	h := sha256.Sum256([]byte(query + "\n" + at.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(h[:])
}

func (s *Store) ensureDir() error {
	if s == nil || s.Dir == "" {
		return errors.New("dataset dir not configured")
	}
	perm := os.FileMode(0o755)
	if s.StrictPerms {
		perm = 0o700
	}
	if err := os.MkdirAll(s.Dir, perm); err != nil {
		return err
	}
	if s.StrictPerms {
		if info, err := os.Stat(s.Dir); err == nil && info.Mode()&0o777 != 0o700 {
			_ = os.Chmod(s.Dir, 0o700)
		}
	}
	return nil
}

func (s *Store) pathFor(id string) string { return filepath.Join(s.Dir, id+".json") }

// Save writes rec atomically, replacing any record with the same id.
func (s *Store) Save(_ context.Context, rec Record) error {
	if rec.ID == "" {
		return errors.New("record id is empty")
	}
	if err := s.ensureDir(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	f, err := os.CreateTemp(s.Dir, rec.ID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write record: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	mode := os.FileMode(0o644)
	if s.StrictPerms {
		mode = 0o600
	}
	if err := os.Chmod(tmp, mode); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, s.pathFor(rec.ID))
}

// Load returns the record with the given id.
func (s *Store) Load(_ context.Context, id string) (Record, error) {
	var rec Record
	if err := s.ensureDir(); err != nil {
		return rec, err
	}
	b, err := os.ReadFile(s.pathFor(id))
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(b, &rec); err != nil {
		return rec, fmt.Errorf("decode record %s: %w", id, err)
	}
	return rec, nil
}

// List returns all readable records ordered by collection time. Malformed
// files are skipped.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	if err := s.ensureDir(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, err
	}
	var out []Record
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		rec, err := s.Load(ctx, strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CollectedAt.Before(out[j].CollectedAt) })
	return out, nil
}

// PurgeOlderThan removes records collected more than maxAge ago and reports
// how many were removed. Non-positive maxAge removes nothing.
func (s *Store) PurgeOlderThan(maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	if err := s.ensureDir(); err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	removed := 0
	err := filepath.WalkDir(s.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		var rec Record
		if err := json.Unmarshal(b, &rec); err != nil {
			return nil
		}
		if now.Sub(rec.CollectedAt) <= maxAge {
			return nil
		}
		if err := os.Remove(path); err == nil {
			removed++
		}
		return nil
	})
	return removed, err
}

// Clear removes every record and leaves an empty directory behind.
func (s *Store) Clear() error {
	if s == nil || strings.TrimSpace(s.Dir) == "" {
		return errors.New("dataset dir not configured")
	}
	if err := os.RemoveAll(s.Dir); err != nil {
		return err
	}
	return s.ensureDir()
}
