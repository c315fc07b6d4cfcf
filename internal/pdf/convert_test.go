package pdf

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBinary writes an executable shell script standing in for pdftoppm.
// The last argument pdftoppm receives is the output prefix.
func fakeBinary(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), "pdftoppm")
	script := "#!/bin/sh\nfor a in \"$@\"; do prefix=\"$a\"; done\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestConvert_Success(t *testing.T) {
	bin := fakeBinary(t, `printf 'PNGDATA' > "$prefix.png"`)

	image, err := NewConverter(bin).Convert(context.Background(), buildPDF("x"))
	require.NoError(t, err)
	assert.Equal(t, []byte("PNGDATA"), image)
}

func TestConvert_CommandFails(t *testing.T) {
	bin := fakeBinary(t, `echo "Syntax Error: Couldn't read xref table" >&2; exit 1`)

	_, err := NewConverter(bin).Convert(context.Background(), []byte("%PDF-broken"))
	require.Error(t, err)

	var convErr *ConversionError
	require.True(t, errors.As(err, &convErr))
	assert.Contains(t, convErr.Output, "Couldn't read xref table")
	assert.Contains(t, err.Error(), "Error: Failed to convert PDF")
}

func TestConvert_NoImage(t *testing.T) {
	bin := fakeBinary(t, `exit 0`)

	_, err := NewConverter(bin).Convert(context.Background(), buildPDF("x"))
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestConvert_MissingBinary(t *testing.T) {
	c := NewConverter(filepath.Join(t.TempDir(), "does-not-exist"))

	_, err := c.Convert(context.Background(), buildPDF("x"))
	var convErr *ConversionError
	require.True(t, errors.As(err, &convErr))
	assert.Contains(t, convErr.Message, "not found")
}

func TestConvert_Timeout(t *testing.T) {
	bin := fakeBinary(t, `exec sleep 5`)
	c := NewConverter(bin)
	c.Timeout = 100 * time.Millisecond

	start := time.Now()
	_, err := c.Convert(context.Background(), buildPDF("x"))
	require.Error(t, err)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestConvert_RealPdftoppm(t *testing.T) {
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		t.Skip("pdftoppm not available, skipping conversion test")
	}

	image, err := NewConverter("").Convert(context.Background(), buildPDF("Hello"))
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), image[:4])
}
