package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/nutrition-scraper/internal/config"
)

func TestConfigCmd_MasksDatabasePassword(t *testing.T) {
	orig := cfg
	t.Cleanup(func() { cfg = orig })

	cfg = testConfig(t)
	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = "postgres://scraper:s3cret@db:5432/nutri"

	var buf bytes.Buffer
	configCmd.SetOut(&buf)
	t.Cleanup(func() { configCmd.SetOut(nil) })
	require.NoError(t, configCmd.RunE(configCmd, nil))

	assert.NotContains(t, buf.String(), "s3cret")

	var printed config.Config
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &printed))
	assert.Equal(t, "postgres://scraper:xxxxx@db:5432/nutri", printed.Store.DatabaseURL)
	assert.Equal(t, "postgres://scraper:s3cret@db:5432/nutri", cfg.Store.DatabaseURL)
	assert.Equal(t, cfg.Source.SearchURL, printed.Source.SearchURL)
}
