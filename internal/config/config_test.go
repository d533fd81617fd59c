package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"KAKAO_API_KEY", "KAKAO_LOCAL_BASE_URL", "KAKAO_SEARCH_BASE_URL",
		"KAKAO_TIMEOUT", "MCP_TRANSPORT", "MCP_PORT", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFromPathReadsKakaoSection(t *testing.T) {
	clearEnv(t)
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "kakaomap.yaml")
	content := `transport: stdio
kakao:
  api_key: "file-key"
  local_base_url: "http://local.test"
  timeout: 3s
  place_size: 5
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0644))

	cfg, err := LoadFromPath(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, TransportStdio, cfg.Transport)
	assert.Equal(t, "file-key", cfg.Kakao.APIKey)
	assert.Equal(t, "http://local.test", cfg.Kakao.LocalBaseURL)
	assert.Equal(t, DefaultSearchBaseURL, cfg.Kakao.SearchBaseURL)
	assert.Equal(t, 3*time.Second, cfg.Kakao.Timeout)
	assert.Equal(t, 5, cfg.Kakao.PlaceSize)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromPathMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, TransportSSE, cfg.Transport)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultTimeout, cfg.Kakao.Timeout)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "kakaomap.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("kakao:\n  api_key: file-key\nport: 9000\n"), 0644))

	t.Setenv("KAKAO_API_KEY", "env-key")
	t.Setenv("MCP_PORT", "9100")
	t.Setenv("MCP_TRANSPORT", "STDIO")

	cfg, err := LoadFromPath(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Kakao.APIKey)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, TransportStdio, cfg.Transport)
}

func TestEnvRejectsBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("MCP_PORT", "eighty")
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "MCP_PORT")
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.ErrorContains(t, cfg.Validate(), "KAKAO_API_KEY")

	cfg.Kakao.APIKey = "k"
	assert.NoError(t, cfg.Validate())

	cfg.Transport = "websocket"
	assert.ErrorContains(t, cfg.Validate(), "unknown transport")

	cfg.Transport = TransportSSE
	cfg.Port = 0
	assert.ErrorContains(t, cfg.Validate(), "invalid port")

	cfg.Port = DefaultPort
	cfg.Kakao.PlaceSize = 20
	assert.ErrorContains(t, cfg.Validate(), "place_size")
}
