package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_NAME", "")
	t.Setenv("PIPELINE_CSV_DELIMITER", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dental_analytics", cfg.Database.Database)
	assert.Equal(t, ';', cfg.Pipeline.Comma())
	assert.Equal(t, 1000, cfg.Pipeline.BatchSize)
	assert.Equal(t, 300, cfg.Cache.TTLSeconds)
	assert.Equal(t, 0, cfg.Cache.WarmIntervalSeconds)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("PIPELINE_CSV_DELIMITER", ",")
	t.Setenv("PIPELINE_BATCH_SIZE", "250")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:8501, ,https://dash.example.org")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "host=db.internal port=6543 user=postgres password= dbname=dental_analytics sslmode=disable", cfg.Database.DatabaseDSN())
	assert.Equal(t, ',', cfg.Pipeline.Comma())
	assert.Equal(t, 250, cfg.Pipeline.BatchSize)
	assert.True(t, cfg.OTEL.Enabled)
	assert.Equal(t, []string{"http://localhost:8501", "https://dash.example.org"}, cfg.Server.AllowedOrigins)
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("REDIS_PORT", "not-a-port")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", cfg.Redis.RedisAddr())
}

func TestPipelineConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     PipelineConfig
		wantErr bool
	}{
		{name: "valid", cfg: PipelineConfig{CSVPath: "a.csv", Delimiter: ";", BatchSize: 10}},
		{name: "multi-char delimiter", cfg: PipelineConfig{CSVPath: "a.csv", Delimiter: ";;", BatchSize: 10}, wantErr: true},
		{name: "zero batch", cfg: PipelineConfig{CSVPath: "a.csv", Delimiter: ";", BatchSize: 0}, wantErr: true},
		{name: "empty path", cfg: PipelineConfig{CSVPath: " ", Delimiter: ";", BatchSize: 10}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
