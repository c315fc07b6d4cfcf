package pdf

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultResolution is the render resolution in DPI.
	DefaultResolution = 150
	// DefaultTimeout bounds a single conversion.
	DefaultTimeout = 60 * time.Second
)

// Converter renders the first page of a PDF to PNG with poppler's pdftoppm.
type Converter struct {
	Binary     string
	Resolution int
	Timeout    time.Duration
}

// NewConverter returns a Converter using binary, or "pdftoppm" from PATH when empty.
func NewConverter(binary string) *Converter {
	if binary == "" {
		binary = "pdftoppm"
	}
	return &Converter{Binary: binary, Resolution: DefaultResolution, Timeout: DefaultTimeout}
}

// Convert returns the PNG rendering of the first page of data.
func (c *Converter) Convert(ctx context.Context, data []byte) ([]byte, error) {
	binary, err := exec.LookPath(c.Binary)
	if err != nil {
		return nil, &ConversionError{
			Message: fmt.Sprintf("%s not found. Please install poppler-utils", c.Binary),
			Cause:   err,
		}
	}

	workDir, err := os.MkdirTemp("", "pdf-convert-*")
	if err != nil {
		return nil, &ConversionError{Message: "failed to create temporary working directory", Cause: err}
	}
	defer os.RemoveAll(workDir)

	input := filepath.Join(workDir, "input.pdf")
	if err := os.WriteFile(input, data, 0o644); err != nil {
		return nil, &ConversionError{Message: "failed to write PDF to working directory", Cause: err}
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	resolution := c.Resolution
	if resolution <= 0 {
		resolution = DefaultResolution
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prefix := filepath.Join(workDir, "page")
	cmd := exec.CommandContext(ctx, binary,
		"-png", "-r", strconv.Itoa(resolution), "-f", "1", "-l", "1", "-singlefile",
		input, prefix)

	var output strings.Builder
	cmd.Stdout = &output
	cmd.Stderr = &output
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &ConversionError{Message: "conversion timed out", Output: output.String(), Cause: ctx.Err()}
		}
		return nil, &ConversionError{Message: "pdftoppm failed", Output: output.String(), Cause: err}
	}

	image, err := os.ReadFile(prefix + ".png")
	if err != nil || len(image) == 0 {
		return nil, ErrNoImage
	}
	return image, nil
}
