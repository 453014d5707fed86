// Package memory provides an in-process ledger used when no database
// is configured and by tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"gasx/domain/core"
	"gasx/domain/run"
	"gasx/internal/errors"
	"gasx/ports"
)

// Ledger keeps manifests in a map guarded by a mutex. It mirrors the
// append-only contract of the persistent ledger.
type Ledger struct {
	mu        sync.RWMutex
	manifests map[core.RunID]*run.Manifest
}

// NewLedger creates an empty in-memory ledger.
func NewLedger() *Ledger {
	return &Ledger{manifests: make(map[core.RunID]*run.Manifest)}
}

// StoreManifest appends a manifest; overwriting an existing run is an
// error because the ledger is append-only.
func (l *Ledger) StoreManifest(_ context.Context, m *run.Manifest) error {
	if err := m.Validate(); err != nil {
		return errors.Wrap(err, "store manifest")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.manifests[m.RunID]; exists {
		return errors.InvalidInput("run " + string(m.RunID) + " already recorded")
	}
	cp := *m
	l.manifests[m.RunID] = &cp
	return nil
}

// GetManifest retrieves a manifest by run id.
func (l *Ledger) GetManifest(_ context.Context, runID core.RunID) (*run.Manifest, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.manifests[runID]
	if !ok {
		return nil, errors.NotFound("run " + string(runID))
	}
	cp := *m
	return &cp, nil
}

// ListManifests returns manifests newest first, honoring the filters.
func (l *Ledger) ListManifests(_ context.Context, filters ports.ManifestFilters) ([]*run.Manifest, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []*run.Manifest
	for _, m := range l.manifests {
		if filters.Method != "" && m.Method != filters.Method {
			continue
		}
		if filters.Family != "" && m.Family != filters.Family {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Time().After(out[j].CreatedAt.Time())
	})
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}
