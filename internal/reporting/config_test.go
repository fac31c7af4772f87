package reporting

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteIntegrationConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteIntegrationConfig(dir, "127.0.0.1:7077"))

	data, err := os.ReadFile(filepath.Join(dir, IntegrationConfigFile))
	require.NoError(t, err)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &parsed))

	servers, ok := parsed["mcpServers"].(map[string]interface{})
	require.True(t, ok)
	tc, ok := servers["tc"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "http://127.0.0.1:7077/", tc["url"])
}
