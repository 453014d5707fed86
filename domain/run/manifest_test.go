package run

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gasx/domain/core"
)

func TestNewManifest_FingerprintDeterministic(t *testing.T) {
	a := NewManifest(core.NewRunID(), "y ~ x1", "poisson", 2, 2, "BBVI", 42)
	b := NewManifest(core.NewRunID(), "y ~ x1", "poisson", 2, 2, "BBVI", 42)

	assert.NotEmpty(t, a.Fingerprint)
	assert.Equal(t, a.Fingerprint, b.Fingerprint,
		"same estimation inputs must produce the same fingerprint")
}

func TestNewManifest_FingerprintSensitivity(t *testing.T) {
	base := NewManifest(core.NewRunID(), "y ~ x1", "poisson", 2, 2, "BBVI", 42)

	variants := []*Manifest{
		NewManifest(core.NewRunID(), "y ~ x2", "poisson", 2, 2, "BBVI", 42),
		NewManifest(core.NewRunID(), "y ~ x1", "normal", 2, 2, "BBVI", 42),
		NewManifest(core.NewRunID(), "y ~ x1", "poisson", 1, 2, "BBVI", 42),
		NewManifest(core.NewRunID(), "y ~ x1", "poisson", 2, 2, "M-H", 42),
		NewManifest(core.NewRunID(), "y ~ x1", "poisson", 2, 2, "BBVI", 43),
	}
	for i, v := range variants {
		assert.NotEqual(t, base.Fingerprint, v.Fingerprint, "variant %d should change the fingerprint", i)
	}
}

func TestManifest_Validate(t *testing.T) {
	m := NewManifest(core.NewRunID(), "y ~ 1", "normal", 1, 1, "MLE", 1)
	require.NoError(t, m.Validate())

	bad := *m
	bad.RunID = ""
	assert.Error(t, bad.Validate())

	bad = *m
	bad.Formula = "   "
	assert.Error(t, bad.Validate())

	bad = *m
	bad.Method = ""
	assert.Error(t, bad.Validate())
}

func TestManifest_WarningText(t *testing.T) {
	m := NewManifest(core.NewRunID(), "y ~ 1", "normal", 1, 1, "MLE", 1)
	assert.Equal(t, "", m.WarningText())

	m.Warnings = []string{"optimizer did not converge", "acceptance rate 0.21"}
	assert.Equal(t, "optimizer did not converge; acceptance rate 0.21", m.WarningText())
}
