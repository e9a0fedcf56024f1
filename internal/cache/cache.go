// Package cache persists the last successful remote payloads on disk and
// implements the fresh-cache / network / stale-cache fallback used for both
// the catalog and the analytics feed.
package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Cache file names. Both hold the raw remote payload with no envelope, so a
// cached file replays through the same decoder as a network response.
const (
	CatalogKey   = "cask.json"
	AnalyticsKey = "cask-install-365d.json"
)

var (
	// ErrMiss indicates the cache file is absent or unreadable.
	ErrMiss = errors.New("cache miss")

	// ErrPolicyUnavailable indicates the refresh policy preference is
	// absent or invalid.
	ErrPolicyUnavailable = errors.New("refresh policy unavailable")

	// ErrLoad indicates fresh cache, network and stale cache all failed.
	ErrLoad = errors.New("load failed")
)

// Policy controls how old a cached payload may be before a network refresh
// is attempted.
type Policy int

const (
	// PolicyLaunch refreshes on every launch; the cache is never fresh.
	PolicyLaunch Policy = iota
	PolicyHourly
	PolicyDaily
	PolicyWeekly
)

// ParsePolicy parses the config string form. Unknown or empty values return
// ErrPolicyUnavailable.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "launch":
		return PolicyLaunch, nil
	case "hourly":
		return PolicyHourly, nil
	case "daily":
		return PolicyDaily, nil
	case "weekly":
		return PolicyWeekly, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrPolicyUnavailable, s)
	}
}

// Interval returns the maximum cache age for the policy. PolicyLaunch
// returns 0 (never fresh).
func (p Policy) Interval() time.Duration {
	switch p {
	case PolicyHourly:
		return time.Hour
	case PolicyDaily:
		return 24 * time.Hour
	case PolicyWeekly:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// Store reads and writes cached payloads under one directory.
type Store struct {
	dir    string
	logger hclog.Logger

	// now is swappable in tests.
	now func() time.Time
}

// DefaultDir returns the per-user cache directory for caskctl.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return "", fmt.Errorf("determine cache directory: %w", err)
		}
		return filepath.Join(home, ".cache", "caskctl"), nil
	}
	return filepath.Join(base, "caskctl"), nil
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string, logger hclog.Logger) *Store {
	if logger == nil {
		logger = hclog.Default()
	}
	return &Store{dir: dir, logger: logger.Named("cache"), now: time.Now}
}

func (s *Store) path(key string) string { return filepath.Join(s.dir, key) }

// IsFresh reports whether the cached file for key is younger than the policy
// interval. A missing file is never fresh.
func (s *Store) IsFresh(key string, policy Policy) bool {
	interval := policy.Interval()
	if interval <= 0 {
		return false
	}
	fi, err := os.Stat(s.path(key))
	if err != nil {
		return false
	}
	return s.now().Sub(fi.ModTime()) < interval
}

// Load returns the cached payload for key, or ErrMiss.
func (s *Store) Load(key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMiss, key, err)
	}
	return data, nil
}

// Save persists the payload for key. Caching is advisory: failures are
// logged, never propagated, and never fail the pipeline. The write is a
// whole-file replace (temp file + rename) so a concurrent reader never sees
// a truncated payload.
func (s *Store) Save(key string, data []byte) {
	if err := s.save(key, data); err != nil {
		s.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

func (s *Store) save(key string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, key+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}

// Fetch resolves a remote resource through the three-tier fallback:
//
//  1. fresh cache (within the policy interval), decoded
//  2. network fetch, persisted on success
//  3. stale cache
//
// A transient network outage never surfaces an error as long as any cached
// payload, fresh or stale, decodes. Only when all three tiers fail does
// Fetch return an error wrapping ErrLoad.
func Fetch[T any](ctx context.Context, s *Store, key string, policy Policy,
	fetch func(context.Context) (T, []byte, error),
	decode func([]byte) (T, error)) (T, error) {

	var zero T

	if s.IsFresh(key, policy) {
		if raw, err := s.Load(key); err == nil {
			if v, err := decode(raw); err == nil {
				return v, nil
			}
			s.logger.Warn("fresh cache undecodable, refetching", "key", key)
		}
	}

	v, raw, netErr := fetch(ctx)
	if netErr == nil {
		s.Save(key, raw)
		return v, nil
	}
	s.logger.Warn("network fetch failed, trying stale cache", "key", key, "error", netErr)

	raw, err := s.Load(key)
	if err != nil {
		return zero, fmt.Errorf("%w: %s: network: %v, cache: %v", ErrLoad, key, netErr, err)
	}
	v, err = decode(raw)
	if err != nil {
		return zero, fmt.Errorf("%w: %s: network: %v, stale cache: %v", ErrLoad, key, netErr, err)
	}
	return v, nil
}
