package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("SIGNATURE_MODE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 2*time.Second, cfg.RandomnessWait)
	assert.Equal(t, SignatureModePermissive, cfg.SignatureMode)
	assert.Equal(t, int64(100), cfg.AMMFeeBps)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoadProductionRequiresSecrets(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadProductionForcesSignatures(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DATABASE_URL", "postgres://localhost/wagers")
	t.Setenv("SIGNATURE_MODE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, SignatureModeRequired, cfg.SignatureMode)
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	cfg := &Config{
		DatabaseDriver: "mysql",
		SignatureMode:  SignatureModePermissive,
		StoreTimeout:   time.Second,
	}
	assert.Error(t, cfg.Validate())
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"https://a.io", "https://b.io"}, splitList(" https://a.io, ,https://b.io "))
	assert.Nil(t, splitList(""))
}
