package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// CLIEngine runs the tesseract executable, reading the image from stdin and
// the text from stdout.
type CLIEngine struct {
	path string
}

// NewCLIEngine returns an engine that runs the executable at path. A bare name
// is resolved through PATH.
func NewCLIEngine(path string) *CLIEngine {
	return &CLIEngine{path: path}
}

func (e *CLIEngine) Name() string { return "tesseract-cli" }

// Recognize runs one tesseract pass. Every failure of the executable itself is
// reported as ErrUnavailable.
func (e *CLIEngine) Recognize(ctx context.Context, in Input) (string, error) {
	bin, err := exec.LookPath(e.path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	args := []string{"stdin", "stdout"}
	if len(in.Languages) > 0 {
		args = append(args, "-l", strings.Join(in.Languages, "+"))
	}
	if in.PageSegMode > 0 {
		args = append(args, "--psm", strconv.Itoa(in.PageSegMode))
	}
	if in.EngineMode > 0 {
		args = append(args, "--oem", strconv.Itoa(in.EngineMode))
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdin = bytes.NewReader(in.Image)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("%w: %s", ErrUnavailable, msg)
	}
	return stdout.String(), nil
}
