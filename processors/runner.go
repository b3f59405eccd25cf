package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
)

// Result is the captured outcome of one external tool invocation.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Success reports whether the tool exited with status zero.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// Output returns the diagnostic output of the invocation, preferring stderr.
func (r *Result) Output() string {
	if out := strings.TrimSpace(string(r.Stderr)); out != "" {
		return out
	}
	return strings.TrimSpace(string(r.Stdout))
}

// Runner runs an external tool synchronously and captures its output. A
// non-zero exit status is reported in the Result, not as an error; the error
// is reserved for failing to run the tool at all.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (*Result, error)
}

// ExecRunner runs tools as child processes.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return nil, &ToolNotFoundError{Tool: name}
	}
	return nil, fmt.Errorf("error running %s: %w", name, err)
}

// ToolsConfig names the external binaries to invoke.
type ToolsConfig struct {
	FFmpeg  string `mapstructure:"ffmpeg"`
	FFprobe string `mapstructure:"ffprobe"`
}

func (c ToolsConfig) ffmpeg() string {
	if c.FFmpeg == "" {
		return "ffmpeg"
	}
	return c.FFmpeg
}

func (c ToolsConfig) ffprobe() string {
	if c.FFprobe == "" {
		return "ffprobe"
	}
	return c.FFprobe
}

// ToolNotFoundError is returned when an external binary cannot be located.
type ToolNotFoundError struct {
	Tool string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("%s not found: please install it and make sure it is on PATH", e.Tool)
}

// ToolError wraps a non-zero exit of an external tool.
type ToolError struct {
	Tool     string
	ExitCode int
	Output   string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Tool, e.ExitCode)
}

// VerboseError includes the captured tool output.
func (e *ToolError) VerboseError() string {
	return fmt.Sprintf("%s\n\n%s", e.Error(), e.Output)
}

// CheckTools verifies that ffmpeg can be run.
func CheckTools(ctx context.Context, runner Runner, tools ToolsConfig) error {
	name := tools.ffmpeg()
	result, err := runner.Run(ctx, name, "-version")
	if err != nil {
		return err
	}
	if !result.Success() {
		return &ToolError{Tool: name, ExitCode: result.ExitCode, Output: result.Output()}
	}
	return nil
}
