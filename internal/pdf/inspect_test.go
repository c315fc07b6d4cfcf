package pdf

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF assembles a one-page PDF with a correct cross-reference table.
func buildPDF(text string) []byte {
	content := fmt.Sprintf("BT /F1 24 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestInspect_ValidPDF(t *testing.T) {
	info, err := Inspect(buildPDF("Hello Resume"))
	require.NoError(t, err)

	assert.Equal(t, MIMEType, info.MIME)
	assert.Equal(t, 1, info.Pages)
}

func TestInspect_NotPDF(t *testing.T) {
	_, err := Inspect([]byte("just some text, not a document"))
	assert.ErrorIs(t, err, ErrNotPDF)

	_, err = Inspect(nil)
	assert.ErrorIs(t, err, ErrNotPDF)
}

func TestInspect_Truncated(t *testing.T) {
	data := buildPDF("Hello")
	_, err := Inspect(data[:40])
	assert.Error(t, err)
}
