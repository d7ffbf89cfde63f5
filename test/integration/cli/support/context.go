package support

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/textdet/internal/testutil"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	LastCommand   string
	LastOutput    string
	LastStderr    string
	LastError     error
	LastExitCode  int
	LastStartTime time.Time
	LastDuration  time.Duration

	WorkingDir string
	TempDir    string
	BinaryPath string
	EnvVars    []string

	// Files maps scenario names (e.g. "two_lines.png") to their paths.
	Files map[string]string
}

// NewTestContext creates a scratch directory and locates the CLI binary.
func NewTestContext() (*TestContext, error) {
	root, err := testutil.GetProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to find project root: %w", err)
	}

	tempDir, err := os.MkdirTemp("", "textdet-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	bin := os.Getenv("TEXTDET_BIN")
	if bin == "" {
		bin = filepath.Join(root, "bin", "textdet")
	}

	return &TestContext{
		WorkingDir: tempDir,
		TempDir:    tempDir,
		BinaryPath: bin,
		// Keep user and system config files out of the scenario.
		EnvVars: []string{
			"HOME=" + tempDir,
			"XDG_CONFIG_HOME=" + filepath.Join(tempDir, ".config"),
		},
		Files: map[string]string{},
	}, nil
}

// Cleanup removes the scratch directory.
func (testCtx *TestContext) Cleanup() error {
	if err := os.RemoveAll(testCtx.TempDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err)
	}
	return nil
}

// AddEnvVar adds an environment variable for command execution.
func (testCtx *TestContext) AddEnvVar(name, value string) {
	testCtx.EnvVars = append(testCtx.EnvVars, fmt.Sprintf("%s=%s", name, value))
}

// Path returns the absolute path of a file inside the scratch directory.
func (testCtx *TestContext) Path(name string) string {
	if p, ok := testCtx.Files[name]; ok {
		return p
	}
	return filepath.Join(testCtx.TempDir, name)
}

// substitute expands {tmp} and {file:name} placeholders and resolves the
// leading "textdet" to the built binary.
func (testCtx *TestContext) substitute(command string) string {
	command = strings.ReplaceAll(command, "{tmp}", testCtx.TempDir)
	for name, path := range testCtx.Files {
		command = strings.ReplaceAll(command, "{file:"+name+"}", path)
	}
	if rest, ok := strings.CutPrefix(command, "textdet"); ok {
		command = testCtx.BinaryPath + rest
	}
	return command
}
