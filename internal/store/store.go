// Package store keeps claims and their terminal verdicts.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/slopwatch/internal/model"
)

// ErrDuplicateVerdict is returned when a claim already has a terminal verdict
var ErrDuplicateVerdict = errors.New("claim already has a verdict")

// Filter selects verdicts. Zero values match everything.
type Filter struct {
	Since  time.Time
	Until  time.Time
	Status model.Status
	Domain model.Domain
	Limit  int
}

// Store persists claims and verdicts. Verdicts are returned newest first.
type Store interface {
	SaveClaim(ctx context.Context, claim model.Claim) error
	SaveVerdict(ctx context.Context, verdict model.Verdict) error
	Verdicts(ctx context.Context, filter Filter) ([]model.Verdict, error)
	Verdict(ctx context.Context, claimID string) (model.Verdict, bool, error)
	CountClaims(ctx context.Context, since time.Time) (int, error)
	Prune(ctx context.Context, before time.Time) (int, error)
	Close() error
}

// Open returns the store selected by the config
func Open(cfg model.StoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		path, err := ExpandHome(cfg.Path)
		if err != nil {
			return nil, err
		}
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// ExpandHome resolves a leading ~ to the user's home directory
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func (f Filter) match(v model.Verdict) bool {
	if !f.Since.IsZero() && v.ResolvedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && v.ResolvedAt.After(f.Until) {
		return false
	}
	if f.Status != "" && v.Status != f.Status {
		return false
	}
	if f.Domain != "" && v.Domain != f.Domain {
		return false
	}
	return true
}

func newestFirst(verdicts []model.Verdict) {
	sort.SliceStable(verdicts, func(i, j int) bool {
		return verdicts[i].ResolvedAt.After(verdicts[j].ResolvedAt)
	})
}
