package logger

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestOTelConfigDecoding(t *testing.T) {
	var fromJSON OTelConfig

	require.NoError(t, json.Unmarshal([]byte(`{
		"enabled": true,
		"endpoint": "collector:4317",
		"batch_timeout": "2s",
		"headers": {"x-tenant": "lab"},
		"tls": {"ca_file": "/etc/ca.pem"}
	}`), &fromJSON))

	assert.True(t, fromJSON.Enabled)
	assert.Equal(t, 2*time.Second, fromJSON.BatchTimeout.Std())
	assert.Equal(t, "lab", fromJSON.Headers["x-tenant"])
	require.NotNil(t, fromJSON.TLS)
	assert.Equal(t, "/etc/ca.pem", fromJSON.TLS.CAFile)

	var fromYAML Config

	require.NoError(t, yaml.Unmarshal([]byte(`
level: debug
output: stderr
otel:
  enabled: true
  endpoint: collector:4317
  batch_timeout: 750ms
  insecure: true
`), &fromYAML))

	assert.Equal(t, "debug", fromYAML.Level)
	assert.Equal(t, 750*time.Millisecond, fromYAML.OTel.BatchTimeout.Std())
	assert.True(t, fromYAML.OTel.Insecure)
	assert.Nil(t, fromYAML.OTel.TLS)
}

func TestDefaultConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("DEBUG", "on")
	t.Setenv("LOG_OUTPUT", "")
	t.Setenv("OTEL_LOGS_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "authorization=Bearer abc, x-org = lab ,broken")
	t.Setenv("OTEL_EXPORTER_OTLP_TIMEOUT", "3s")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "nonsense")
	t.Setenv("OTEL_SERVICE_NAME", "")

	config := DefaultConfig()

	assert.Equal(t, "warn", config.Level)
	assert.True(t, config.Debug)
	assert.Equal(t, "stdout", config.Output)
	assert.True(t, config.OTel.Enabled)
	assert.Equal(t, "otel:4317", config.OTel.Endpoint)
	assert.Equal(t, map[string]string{"authorization": "Bearer abc", "x-org": "lab"}, config.OTel.Headers)
	assert.Equal(t, 3*time.Second, config.OTel.BatchTimeout.Std())
	assert.False(t, config.OTel.Insecure)
	assert.Equal(t, defaultServiceName, config.OTel.ServiceName)
}

func TestEnvBool(t *testing.T) {
	tests := []struct {
		raw      string
		fallback bool
		want     bool
	}{
		{raw: "", fallback: true, want: true},
		{raw: "YES", want: true},
		{raw: "1", want: true},
		{raw: "false", fallback: true, want: false},
		{raw: "maybe", fallback: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Setenv("NETDISCOVERY_TEST_BOOL", tt.raw)
			assert.Equal(t, tt.want, envBool("NETDISCOVERY_TEST_BOOL", tt.fallback))
		})
	}
}
