package observability

import (
	"testing"

	"github.com/smallbiznis/hisaab/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	got := LoadConfig(config.Config{Environment: "production", LogLevel: " INFO "})

	assert.Equal(t, "hisaab", got.ServiceName)
	assert.Equal(t, "grpc", got.OtelExporterProtocol)
	assert.Equal(t, "info", got.LogLevel)
	assert.False(t, got.Debug())
}

func TestDebug(t *testing.T) {
	assert.True(t, Config{LogLevel: "debug", Environment: "production"}.Debug())
	assert.True(t, Config{Environment: "local"}.Debug())
	assert.False(t, Config{}.Debug())
}
