package app

import (
	"context"

	"gasx/domain/core"
	"gasx/domain/run"
	"gasx/estimate"
	"gasx/internal"
	"gasx/internal/errors"
	"gasx/ports"
)

// FitService runs estimations and records each successful fit in the
// ledger. It is the application entry point used by the CLI and the
// HTTP server.
type FitService struct {
	Ledger ports.LedgerPort
	Log    *internal.Logger
}

// NewFitService wires a service; a nil logger falls back to the
// process default.
func NewFitService(ledger ports.LedgerPort, log *internal.Logger) *FitService {
	if log == nil {
		log = internal.DefaultLogger
	}
	return &FitService{Ledger: ledger, Log: log.With("fit")}
}

// RunFit fits the model, assembles the manifest and appends it to the
// ledger. The manifest is returned even when persistence is disabled.
func (s *FitService) RunFit(ctx context.Context, m *GASX, method string, opts *estimate.Options) (*run.Manifest, error) {
	res, err := m.Fit(method, opts)
	if err != nil {
		s.Log.Error("fit %s failed: %v", method, err)
		return nil, errors.EstimationError(err)
	}
	s.Log.Info("fit %s done in %s, ll=%.4f, run=%s", res.Method, res.Runtime, res.LogLikelihood, res.RunID)

	manifest := s.manifestFor(m, res)
	if s.Ledger != nil {
		if err := s.Ledger.StoreManifest(ctx, manifest); err != nil {
			s.Log.Warn("ledger write failed for run %s: %v", res.RunID, err)
			return manifest, err
		}
	}
	return manifest, nil
}

// Lookup fetches a previously recorded run.
func (s *FitService) Lookup(ctx context.Context, runID string) (*run.Manifest, error) {
	if s.Ledger == nil {
		return nil, errors.NotFound("ledger")
	}
	return s.Ledger.GetManifest(ctx, core.RunID(runID))
}

// Recent lists the latest recorded runs.
func (s *FitService) Recent(ctx context.Context, limit int) ([]*run.Manifest, error) {
	if s.Ledger == nil {
		return nil, nil
	}
	return s.Ledger.ListManifests(ctx, ports.ManifestFilters{Limit: limit})
}

func (s *FitService) manifestFor(m *GASX, res *estimate.FitResult) *run.Manifest {
	manifest := run.NewManifest(res.RunID, m.Formula, m.fam.Name(), m.AR, m.SC, string(res.Method), m.Seed)
	manifest.Obs = res.Obs
	manifest.LogLikelihood = res.LogLikelihood
	manifest.SEUnavailable = res.SEUnavailable
	manifest.Warnings = res.Warnings
	manifest.RuntimeMS = res.Runtime.Milliseconds()
	if n := len(res.ELBO); n > 0 {
		last := res.ELBO[n-1]
		manifest.ELBO = &last
	}
	return manifest
}
