package support

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/cucumber/godog"
)

// result mirrors one element of the CLI's JSON output.
type result struct {
	File       string `json:"file"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Detections []struct {
		Polygon [][2]int `json:"polygon"`
		Score   float64  `json:"score"`
	} `json:"detections"`
}

// iRunCommand executes a command line. The exit code is recorded, not
// returned, so failure scenarios can assert on it.
func (testCtx *TestContext) iRunCommand(command string) error {
	command = testCtx.substitute(command)
	testCtx.LastCommand = command
	testCtx.LastStartTime = time.Now()

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return errors.New("empty command")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Dir = testCtx.WorkingDir
	cmd.Env = append(os.Environ(), testCtx.EnvVars...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	testCtx.LastOutput = stdout.String()
	testCtx.LastStderr = stderr.String()
	testCtx.LastError = err
	testCtx.LastDuration = time.Since(testCtx.LastStartTime)

	testCtx.LastExitCode = 0
	if err != nil {
		exitError := &exec.ExitError{}
		if errors.As(err, &exitError) {
			testCtx.LastExitCode = exitError.ExitCode()
		} else {
			testCtx.LastExitCode = -1
		}
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastExitCode != 0 {
		return fmt.Errorf("command failed with exit code %d: %w\nstdout: %s\nstderr: %s",
			testCtx.LastExitCode, testCtx.LastError, testCtx.LastOutput, testCtx.LastStderr)
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("command succeeded when it should have failed\nOutput: %s", testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldContain(expected string) error {
	if !strings.Contains(testCtx.LastOutput, expected) {
		return fmt.Errorf("output does not contain '%s'\nActual output: %s", expected, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldNotContain(unexpected string) error {
	if strings.Contains(testCtx.LastOutput, unexpected) {
		return fmt.Errorf("output contains '%s'\nActual output: %s", unexpected, testCtx.LastOutput)
	}
	return nil
}

// theErrorShouldMention matches case-insensitively against stderr.
func (testCtx *TestContext) theErrorShouldMention(text string) error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("no error occurred, but expected error containing '%s'", text)
	}
	if !strings.Contains(strings.ToLower(testCtx.LastStderr), strings.ToLower(text)) {
		return fmt.Errorf("error does not contain '%s'\nActual error: %s", text, testCtx.LastStderr)
	}
	return nil
}

func (testCtx *TestContext) results() ([]result, error) {
	var res []result
	if err := json.Unmarshal([]byte(testCtx.LastOutput), &res); err != nil {
		return nil, fmt.Errorf("output is not a JSON result list: %w\nOutput: %s", err, testCtx.LastOutput)
	}
	return res, nil
}

func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	_, err := testCtx.results()
	return err
}

func (testCtx *TestContext) theJSONOutputShouldHaveResults(n int) error {
	res, err := testCtx.results()
	if err != nil {
		return err
	}
	if len(res) != n {
		return fmt.Errorf("expected %d results, got %d", n, len(res))
	}
	return nil
}

func (testCtx *TestContext) resultShouldHaveDetections(index, n int) error {
	res, err := testCtx.results()
	if err != nil {
		return err
	}
	if index < 1 || index > len(res) {
		return fmt.Errorf("result %d out of range (have %d)", index, len(res))
	}
	if got := len(res[index-1].Detections); got != n {
		return fmt.Errorf("result %d: expected %d detections, got %d", index, n, got)
	}
	return nil
}

func (testCtx *TestContext) resultShouldMeasure(index, width, height int) error {
	res, err := testCtx.results()
	if err != nil {
		return err
	}
	if index < 1 || index > len(res) {
		return fmt.Errorf("result %d out of range (have %d)", index, len(res))
	}
	r := res[index-1]
	if r.Width != width || r.Height != height {
		return fmt.Errorf("result %d: expected %dx%d, got %dx%d", index, width, height, r.Width, r.Height)
	}
	return nil
}

// everyPolygonShouldLieWithin checks that all vertices are inside the
// result's image bounds.
func (testCtx *TestContext) everyPolygonShouldLieWithin() error {
	res, err := testCtx.results()
	if err != nil {
		return err
	}
	for _, r := range res {
		for i, d := range r.Detections {
			for _, p := range d.Polygon {
				if p[0] < 0 || p[1] < 0 || p[0] >= r.Width || p[1] >= r.Height {
					return fmt.Errorf("%s detection %d: vertex %v outside %dx%d", r.File, i, p, r.Width, r.Height)
				}
			}
		}
	}
	return nil
}

func (testCtx *TestContext) theFileShouldExist(name string) error {
	if _, err := os.Stat(testCtx.Path(name)); err != nil {
		return fmt.Errorf("expected file %s: %w", name, err)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldContain(name, text string) error {
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return err
	}
	if !strings.Contains(string(data), text) {
		return fmt.Errorf("file %s does not contain '%s'\nContent: %s", name, text, data)
	}
	return nil
}

func (testCtx *TestContext) theEnvironmentVariableIsSetTo(name, value string) error {
	testCtx.AddEnvVar(name, value)
	return nil
}

// RegisterCommonSteps registers command execution and output steps.
func (testCtx *TestContext) RegisterCommonSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I run "([^"]*)"$`, testCtx.iRunCommand)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)

	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)

	sc.Step(`^the JSON output should have (\d+) results?$`, testCtx.theJSONOutputShouldHaveResults)
	sc.Step(`^result (\d+) should have (\d+) detections?$`, testCtx.resultShouldHaveDetections)
	sc.Step(`^result (\d+) should measure (\d+)x(\d+)$`, testCtx.resultShouldMeasure)
	sc.Step(`^every polygon should lie within its image$`, testCtx.everyPolygonShouldLieWithin)

	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the file "([^"]*)" should contain "([^"]*)"$`, testCtx.theFileShouldContain)
	sc.Step(`^the environment variable "([^"]*)" is set to "([^"]*)"$`, testCtx.theEnvironmentVariableIsSetTo)
}
