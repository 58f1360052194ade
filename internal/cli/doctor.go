package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/urfave/cli/v3"
)

// DoctorCommand returns the CLI command definition for the 'doctor' subcommand.
// This command runs diagnostic checks to verify trace-flamegraph is properly configured.
func DoctorCommand(version string) *cli.Command {
	return &cli.Command{
		Name:  "doctor",
		Usage: "Diagnose common setup and configuration issues",
		Description: `Run checks to verify trace-flamegraph is properly configured.

This command checks:
  - Binary location
  - Config files (global, project, --config) parse and validate
  - The trace backend answers at backend_url
  - MCP agent configuration (optional)

Exit codes:
  0 - All critical checks passed
  1 - One or more issues found`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to a JSON or YAML config file",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runDoctor(ctx, version, cmd.String("config"), &realEnv{}, os.Stdout)
		},
	}
}

type checkResult struct {
	Name       string
	Status     string // "pass", "warn", "fail"
	Message    string
	Suggestion string
	IsCritical bool
}

// doctorEnv is everything the checks touch outside the process.
type doctorEnv interface {
	Executable() (string, error)
	Stat(name string) (os.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	UserHomeDir() (string, error)
	Getwd() (string, error)
	LoadConfig(path string) (*Config, error)
	Probe(ctx context.Context, url string) (int, error)
}

type realEnv struct{}

func (r *realEnv) Executable() (string, error)             { return os.Executable() }
func (r *realEnv) Stat(name string) (os.FileInfo, error)   { return os.Stat(name) }
func (r *realEnv) ReadFile(name string) ([]byte, error)    { return os.ReadFile(name) }
func (r *realEnv) UserHomeDir() (string, error)            { return os.UserHomeDir() }
func (r *realEnv) Getwd() (string, error)                  { return os.Getwd() }
func (r *realEnv) LoadConfig(path string) (*Config, error) { return LoadEffectiveConfig(path) }

func (r *realEnv) Probe(ctx context.Context, url string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// doctor runs checks in order; later checks may use what earlier ones found.
type doctor struct {
	env        doctorEnv
	configPath string
	config     *Config
}

func runDoctor(ctx context.Context, version, configPath string, env doctorEnv, out io.Writer) error {
	fmt.Fprintf(out, "🔍 trace-flamegraph doctor v%s\n\n", version)

	d := &doctor{env: env, configPath: configPath}
	checks := []func(ctx context.Context) checkResult{
		d.checkBinaryLocation,
		d.checkConfig,
		d.checkBackend,
		d.checkMCPConfig,
	}

	results := make([]checkResult, 0, len(checks))
	for _, check := range checks {
		result := check(ctx)
		results = append(results, result)
		printCheckResult(out, result)
	}

	fmt.Fprintln(out)
	summary := summarizeResults(results)
	printSummary(out, summary)

	if summary.FailCount > 0 {
		return fmt.Errorf("found %d issues that need attention", summary.FailCount)
	}

	return nil
}

func printCheckResult(out io.Writer, result checkResult) {
	var icon string
	switch result.Status {
	case "pass":
		icon = "✓"
	case "warn":
		icon = "⚠"
	case "fail":
		icon = "✗"
	}

	fmt.Fprintf(out, "%s %s\n", icon, result.Message)

	if result.Suggestion != "" {
		fmt.Fprintf(out, "  %s\n", result.Suggestion)
	}
}

type resultSummary struct {
	PassCount int
	WarnCount int
	FailCount int
}

func summarizeResults(results []checkResult) resultSummary {
	var summary resultSummary
	for _, r := range results {
		switch r.Status {
		case "pass":
			summary.PassCount++
		case "warn":
			summary.WarnCount++
		case "fail":
			summary.FailCount++
		}
	}
	return summary
}

func printSummary(out io.Writer, summary resultSummary) {
	if summary.FailCount > 0 {
		fmt.Fprintf(out, "❌ Found %d issue(s) that need attention\n", summary.FailCount)
		if summary.WarnCount > 0 {
			fmt.Fprintf(out, "⚠️  %d warning(s)\n", summary.WarnCount)
		}
		return
	}
	if summary.WarnCount > 0 {
		fmt.Fprintf(out, "✅ All critical checks passed!\n")
		fmt.Fprintf(out, "⚠️  %d optional warning(s)\n", summary.WarnCount)
	} else {
		fmt.Fprintf(out, "✅ All checks passed!\n")
	}
	fmt.Fprintf(out, "💡 Run 'trace-flamegraph view <trace-id>' to draw a flame graph\n")
}

// Check 1: Binary location
func (d *doctor) checkBinaryLocation(ctx context.Context) checkResult {
	executable, err := d.env.Executable()
	if err != nil {
		return checkResult{
			Name:       "binary_location",
			Status:     "fail",
			Message:    "Could not determine binary location",
			Suggestion: fmt.Sprintf("Error: %v", err),
			IsCritical: true,
		}
	}

	absPath, err := filepath.Abs(executable)
	if err != nil {
		absPath = executable
	}

	return checkResult{
		Name:    "binary_location",
		Status:  "pass",
		Message: fmt.Sprintf("Binary location: %s", absPath),
	}
}

// Check 2: Config files load and validate
func (d *doctor) checkConfig(ctx context.Context) checkResult {
	cfg, err := d.env.LoadConfig(d.configPath)
	if err != nil {
		return checkResult{
			Name:       "config",
			Status:     "fail",
			Message:    "Config could not be loaded",
			Suggestion: fmt.Sprintf("Error: %v", err),
			IsCritical: true,
		}
	}
	if err := cfg.Validate(); err != nil {
		return checkResult{
			Name:       "config",
			Status:     "fail",
			Message:    "Config is invalid",
			Suggestion: fmt.Sprintf("Error: %v", err),
			IsCritical: true,
		}
	}

	d.config = cfg
	return checkResult{
		Name:    "config",
		Status:  "pass",
		Message: fmt.Sprintf("Config OK (backend %s, timeout %s)", cfg.BackendURL, cfg.Timeout),
	}
}

// Check 3: Backend answers
func (d *doctor) checkBackend(ctx context.Context) checkResult {
	if d.config == nil {
		return checkResult{
			Name:    "backend",
			Status:  "warn",
			Message: "Backend not checked (no valid config)",
		}
	}

	status, err := d.env.Probe(ctx, d.config.BackendURL)
	if err != nil {
		return checkResult{
			Name:       "backend",
			Status:     "fail",
			Message:    fmt.Sprintf("Backend unreachable at %s", d.config.BackendURL),
			Suggestion: fmt.Sprintf("Error: %v\n  Set backend_url in config or pass --backend-url", err),
			IsCritical: true,
		}
	}
	if status >= 500 {
		return checkResult{
			Name:    "backend",
			Status:  "warn",
			Message: fmt.Sprintf("Backend at %s answered %d", d.config.BackendURL, status),
		}
	}

	return checkResult{
		Name:    "backend",
		Status:  "pass",
		Message: fmt.Sprintf("Backend reachable at %s", d.config.BackendURL),
	}
}

// Check 4: MCP configuration (optional)
func (d *doctor) checkMCPConfig(ctx context.Context) checkResult {
	paths := getMCPConfigPaths(d.env)
	configPath := ""
	for _, p := range paths {
		if _, err := d.env.Stat(p); err == nil {
			configPath = p
			break
		}
	}

	if configPath == "" {
		executable, _ := d.env.Executable()
		absPath, _ := filepath.Abs(executable)
		return checkResult{
			Name:    "mcp_config",
			Status:  "warn",
			Message: "Optional: no MCP agent config found",
			Suggestion: fmt.Sprintf(`To use trace-flamegraph from an agent, add:
  "mcpServers": { "trace-flamegraph": { "command": "%s", "args": ["mcp"] } }`, absPath),
		}
	}

	data, err := d.env.ReadFile(configPath)
	if err != nil {
		return checkResult{
			Name:       "mcp_config",
			Status:     "warn",
			Message:    "Could not read MCP config",
			Suggestion: fmt.Sprintf("Error reading %s: %v", configPath, err),
		}
	}

	var config struct {
		MCPServers map[string]json.RawMessage `json:"mcpServers"`
	}
	if err := json.Unmarshal(data, &config); err != nil {
		return checkResult{
			Name:       "mcp_config",
			Status:     "fail",
			Message:    "MCP config is not valid JSON",
			Suggestion: fmt.Sprintf("Error parsing %s: %v", configPath, err),
			IsCritical: true,
		}
	}

	if _, ok := config.MCPServers["trace-flamegraph"]; !ok {
		return checkResult{
			Name:       "mcp_config",
			Status:     "warn",
			Message:    fmt.Sprintf("MCP config found: %s", configPath),
			Suggestion: "Config has no 'trace-flamegraph' server entry",
		}
	}

	return checkResult{
		Name:    "mcp_config",
		Status:  "pass",
		Message: fmt.Sprintf("MCP config found: %s", configPath),
	}
}

// getMCPConfigPaths returns possible MCP config file paths, project level first.
func getMCPConfigPaths(env doctorEnv) []string {
	homeDir, err := env.UserHomeDir()
	if err != nil {
		return nil
	}

	var paths []string
	if cwd, _ := env.Getwd(); cwd != "" {
		paths = append(paths,
			filepath.Join(cwd, ".gemini", "settings.json"),
			filepath.Join(cwd, ".claude", "settings.json"),
			filepath.Join(cwd, ".mcp.json"),
		)
	}

	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(homeDir, "AppData", "Roaming")
		}
		paths = append(paths, filepath.Join(appData, "Claude Code", "mcp_settings.json"))
	default:
		paths = append(paths, filepath.Join(homeDir, ".config", "claude-code", "mcp_settings.json"))
	}

	return paths
}
