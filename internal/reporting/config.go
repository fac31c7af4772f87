package reporting

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// IntegrationConfigFile is the filename a worker's assistant tooling reads
// to discover the Reporting Channel, the Go equivalent of the Python
// reference's .mcp.json.
const IntegrationConfigFile = ".mcp.json"

// GenerateIntegrationConfig builds the config content pointing at this
// project's Reporting Channel. listenAddr is the loopback address the
// channel is bound to (Config.Reporting.ListenAddr).
func GenerateIntegrationConfig(projectDir, listenAddr string) map[string]any {
	absDir, err := filepath.Abs(projectDir)
	if err != nil {
		absDir = projectDir
	}
	return map[string]any{
		"mcpServers": map[string]any{
			"tc": map[string]any{
				"url":         "http://" + listenAddr + "/",
				"projectDir":  absDir,
				"description": "terminal-coder reporting channel",
			},
		},
	}
}

// WriteIntegrationConfig writes the .mcp.json file to projectDir.
func WriteIntegrationConfig(projectDir, listenAddr string) error {
	config := GenerateIntegrationConfig(projectDir, listenAddr)
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(filepath.Join(projectDir, IntegrationConfigFile), data, 0644)
}
