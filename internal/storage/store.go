// Package storage keeps per-app JSON snapshots under DataDir/apps/{appId}/.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"review-insights-go/internal/types"
)

var (
	ErrNotFound     = errors.New("snapshot not found")
	ErrInvalidAppID = errors.New("invalid app id")
)

type Kind string

const (
	KindMetadata      Kind = "metadata"
	KindReviews       Kind = "reviews"
	KindAnalyzed      Kind = "analyzed"
	KindInsights      Kind = "insights"
	KindRatingHistory Kind = "rating_history"
	KindRegression    Kind = "regression"
	KindTimeline      Kind = "timeline"
	KindImpact        Kind = "impact"
	KindMemo          Kind = "memo"
)

var appIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Store serializes writes per process; readers never see a partial file
// because saves go through a temp file and rename.
type Store struct {
	root string
	mu   sync.Mutex
}

func New(dataDir string) (*Store, error) {
	root := filepath.Join(dataDir, "apps")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{root: root}, nil
}

// ValidateAppID rejects ids that could escape the snapshot directory.
func ValidateAppID(appID string) error {
	if !appIDPattern.MatchString(appID) || appID == "." || appID == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidAppID, appID)
	}
	return nil
}

func (s *Store) path(appID string, kind Kind) (string, error) {
	if err := ValidateAppID(appID); err != nil {
		return "", err
	}
	return filepath.Join(s.root, appID, string(kind)+".json"), nil
}

func (s *Store) Save(appID string, kind Kind, v any) error {
	p, err := s.path(appID, kind)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create app dir: %w", err)
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", kind, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("commit %s: %w", kind, err)
	}
	return nil
}

// Load decodes a snapshot into dst and returns ErrNotFound when it was never
// saved.
func (s *Store) Load(appID string, kind Kind, dst any) error {
	p, err := s.path(appID, kind)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s/%s: %w", appID, kind, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", kind, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s/%s: %w", appID, kind, err)
	}
	return nil
}

func (s *Store) Exists(appID string, kind Kind) bool {
	p, err := s.path(appID, kind)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// ListApps returns every app id with a snapshot directory, sorted.
func (s *Store) ListApps() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list apps: %w", err)
	}
	apps := []string{}
	for _, e := range entries {
		if e.IsDir() {
			apps = append(apps, e.Name())
		}
	}
	sort.Strings(apps)
	return apps, nil
}

func (s *Store) Delete(appID string) error {
	p, err := s.path(appID, KindMetadata)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return os.RemoveAll(filepath.Dir(p))
}

func (s *Store) SaveReviews(appID string, reviews []types.Review) error {
	return s.Save(appID, KindReviews, reviews)
}

// LoadReviews returns an empty slice, not ErrNotFound, for an unknown app.
func (s *Store) LoadReviews(appID string) ([]types.Review, error) {
	var out []types.Review
	if err := s.Load(appID, KindReviews, &out); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if out == nil {
		out = []types.Review{}
	}
	return out, nil
}

func (s *Store) SaveAnalyzed(appID string, reviews []types.AnalyzedReview) error {
	return s.Save(appID, KindAnalyzed, reviews)
}

func (s *Store) LoadAnalyzed(appID string) ([]types.AnalyzedReview, error) {
	var out []types.AnalyzedReview
	if err := s.Load(appID, KindAnalyzed, &out); err != nil {
		return nil, err
	}
	return out, nil
}
