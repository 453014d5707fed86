// Package ports declares the interfaces the application core expects
// from its adapters.
package ports

import (
	"context"

	"gasx/domain/core"
	"gasx/domain/run"
)

// LedgerWriterPort provides append-only write access to fit manifests.
// Manifests are never updated in place; a refit produces a new run.
type LedgerWriterPort interface {
	StoreManifest(ctx context.Context, m *run.Manifest) error
}

// LedgerReaderPort provides read-only access to stored manifests for
// queries, replay and API access.
type LedgerReaderPort interface {
	GetManifest(ctx context.Context, runID core.RunID) (*run.Manifest, error)
	ListManifests(ctx context.Context, filters ManifestFilters) ([]*run.Manifest, error)
}

// ManifestFilters narrows ledger queries.
type ManifestFilters struct {
	Method string
	Family string
	Limit  int
}

// LedgerPort combines read and write access.
type LedgerPort interface {
	LedgerWriterPort
	LedgerReaderPort
}
