// Package run defines the fit manifest, the persisted record of a
// completed estimation run.
package run

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"gasx/domain/core"
)

// Manifest is the truth source for an estimation run: enough to replay
// the fit deterministically and to audit what it produced.
type Manifest struct {
	RunID         core.RunID     `json:"run_id" db:"run_id"`
	Formula       string         `json:"formula" db:"formula"`
	Family        string         `json:"family" db:"family"`
	AR            int            `json:"ar" db:"ar"`
	SC            int            `json:"sc" db:"sc"`
	Method        string         `json:"method" db:"method"`
	Seed          uint64         `json:"seed" db:"seed"`
	Obs           int            `json:"obs" db:"obs"`
	LogLikelihood float64        `json:"log_likelihood" db:"log_likelihood"`
	ELBO          *float64       `json:"elbo,omitempty" db:"elbo"`
	SEUnavailable bool           `json:"se_unavailable" db:"se_unavailable"`
	Warnings      []string       `json:"warnings,omitempty" db:"-"`
	RuntimeMS     int64          `json:"runtime_ms" db:"runtime_ms"`
	Fingerprint   string         `json:"fingerprint" db:"fingerprint"`
	CreatedAt     core.Timestamp `json:"created_at" db:"created_at"`
}

// NewManifest creates a manifest and stamps its replay fingerprint.
func NewManifest(runID core.RunID, formula, family string, ar, sc int, method string, seed uint64) *Manifest {
	m := &Manifest{
		RunID:     runID,
		Formula:   formula,
		Family:    family,
		AR:        ar,
		SC:        sc,
		Method:    method,
		Seed:      seed,
		CreatedAt: core.Now(),
	}
	m.Fingerprint = m.computeFingerprint()
	return m
}

// computeFingerprint hashes every input that determines the fit, so two
// manifests with equal fingerprints describe the same estimation.
func (m *Manifest) computeFingerprint() string {
	data := fmt.Sprintf("formula:%s|family:%s|ar:%d|sc:%d|method:%s|seed:%d",
		m.Formula, m.Family, m.AR, m.SC, m.Method, m.Seed)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// Validate checks if the manifest is complete
func (m *Manifest) Validate() error {
	if m.RunID == "" {
		return fmt.Errorf("manifest: run_id cannot be empty")
	}
	if strings.TrimSpace(m.Formula) == "" {
		return fmt.Errorf("manifest: formula cannot be empty")
	}
	if m.Family == "" {
		return fmt.Errorf("manifest: family cannot be empty")
	}
	if m.Method == "" {
		return fmt.Errorf("manifest: method cannot be empty")
	}
	if m.Fingerprint == "" {
		return fmt.Errorf("manifest: fingerprint cannot be empty")
	}
	return nil
}

// WarningText flattens warnings for storage in a single text column.
func (m *Manifest) WarningText() string {
	return strings.Join(m.Warnings, "; ")
}
