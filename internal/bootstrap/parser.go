// Package bootstrap parses a project's bootstrap.md for the tool,
// credential, and environment-variable checks it describes, runs them
// against the project directory, and persists the results.
package bootstrap

import (
	"os"
	"regexp"
	"strings"
)

// CheckType distinguishes how a Check is executed.
type CheckType string

const (
	CheckTypeTool       CheckType = "tool"
	CheckTypeCredential CheckType = "credential"
	CheckTypeEnv        CheckType = "env"
)

// Check is one verification step extracted from bootstrap.md.
type Check struct {
	Name           string
	CheckType      CheckType
	Command        string
	ExpectedOutput string
}

// BuiltinChecks run regardless of what bootstrap.md contains.
var BuiltinChecks = []Check{
	{Name: "claude", CheckType: CheckTypeTool, Command: "claude --version"},
	{Name: "tmux", CheckType: CheckTypeTool, Command: "tmux -V"},
	{Name: "git", CheckType: CheckTypeTool, Command: "git status"},
}

// ParseBootstrap reads bootstrap.md and extracts its verification checks:
// the Prerequisites table's Verify column, **Verify:** credential lines,
// .env-adjacent variable references, plus the always-on builtins.
func ParseBootstrap(path string) ([]Check, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := string(content)

	var checks []Check
	checks = append(checks, parseToolPrerequisites(text)...)
	checks = append(checks, parseCredentialChecks(text)...)
	checks = append(checks, parseEnvChecks(text)...)
	checks = append(checks, BuiltinChecks...)
	return checks, nil
}

var separatorRowPattern = regexp.MustCompile(`^\|[\s\-:|]+\|$`)

// parseToolPrerequisites scans a markdown table with Tool | Install | Verify
// columns (in any order) and turns each row's Verify cell into a Check.
func parseToolPrerequisites(content string) []Check {
	var checks []Check
	lines := strings.Split(content, "\n")

	inTable := false
	headerIndex := map[string]int{}

	for _, line := range lines {
		stripped := strings.TrimSpace(line)

		if strings.Contains(stripped, "|") && !inTable {
			cells := splitCells(stripped)
			lower := make([]string, len(cells))
			for i, c := range cells {
				lower[i] = strings.ToLower(c)
			}
			if containsAll(lower, "tool", "verify") {
				headerIndex = map[string]int{}
				for i, c := range lower {
					headerIndex[c] = i
				}
				inTable = true
				continue
			}
		}

		if inTable && separatorRowPattern.MatchString(stripped) {
			continue
		}

		if inTable && strings.Contains(stripped, "|") {
			cells := splitCells(stripped)
			maxIdx := 0
			for _, i := range headerIndex {
				if i > maxIdx {
					maxIdx = i
				}
			}
			if len(cells) > maxIdx {
				toolIdx := headerIndex["tool"]
				verifyIdx, ok := headerIndex["verify"]
				if !ok {
					verifyIdx = 2
				}
				if toolIdx < len(cells) && verifyIdx < len(cells) {
					toolName := stripMarkdown(cells[toolIdx])
					verifyCmd := stripMarkdown(cells[verifyIdx])
					if verifyCmd != "" && verifyCmd != "-" {
						checks = append(checks, Check{
							Name:      strings.ReplaceAll(strings.ToLower(toolName), " ", "_"),
							CheckType: CheckTypeTool,
							Command:   verifyCmd,
						})
					}
				}
			}
			continue
		}

		if inTable && !strings.Contains(stripped, "|") && stripped != "" {
			inTable = false
		}
	}

	return checks
}

var verifyLinePattern = regexp.MustCompile("\\*\\*Verify:\\*\\*\\s*`([^`]+)`")

// parseCredentialChecks extracts **Verify:** `command` lines for services
// that need a live connectivity check (an API key, a database URL).
func parseCredentialChecks(content string) []Check {
	var checks []Check
	for _, match := range verifyLinePattern.FindAllStringSubmatch(content, -1) {
		command := match[1]
		checks = append(checks, Check{
			Name:      deriveCheckName(command),
			CheckType: CheckTypeCredential,
			Command:   command,
		})
	}
	return checks
}

var envVarPattern = regexp.MustCompile("`([A-Z][A-Z0-9_]+)`")

// parseEnvChecks looks for `VAR_NAME`-style references inside sections that
// talk about populating a .env file and turns each into an existence check.
func parseEnvChecks(content string) []Check {
	var checks []Check
	inEnvSection := false

	for _, line := range strings.Split(content, "\n") {
		lower := strings.ToLower(strings.TrimSpace(line))
		if strings.Contains(lower, ".env") && containsAny(lower, "populate", "create", "variable", "environment", "config") {
			inEnvSection = true
			continue
		}
		if inEnvSection && strings.HasPrefix(strings.TrimSpace(line), "#") {
			inEnvSection = false
		}
		if inEnvSection {
			for _, match := range envVarPattern.FindAllStringSubmatch(line, -1) {
				varName := match[1]
				checks = append(checks, Check{
					Name:           "env_" + strings.ToLower(varName),
					CheckType:      CheckTypeEnv,
					Command:        "env_check:" + varName,
					ExpectedOutput: "set",
				})
			}
		}
	}

	return checks
}

func splitCells(row string) []string {
	raw := strings.Split(row, "|")
	var cells []string
	for _, c := range raw {
		if trimmed := strings.TrimSpace(c); trimmed != "" {
			cells = append(cells, trimmed)
		}
	}
	return cells
}

func stripMarkdown(text string) string {
	text = strings.Trim(text, "`")
	text = strings.ReplaceAll(text, "**", "")
	return strings.TrimSpace(text)
}

func deriveCheckName(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "credential_check"
	}
	parts := strings.Split(fields[0], "/")
	return "credential_" + parts[len(parts)-1]
}

func containsAll(haystack []string, needles ...string) bool {
	for _, n := range needles {
		found := false
		for _, h := range haystack {
			if h == n {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
