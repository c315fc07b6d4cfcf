package observability

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/resumind/internal/types"
)

func TestPrintFeedback(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	resume := &types.Resume{
		CompanyName: "Acme Corp",
		JobTitle:    "Senior Engineer",
		Feedback: &types.Feedback{
			OverallScore: 82,
			ATS: types.Category{Score: 64, Tips: []types.Tip{
				{Type: "good", Tip: "Standard headings"},
				{Type: "improve", Tip: "Add keywords"},
			}},
			Skills: types.Category{Score: 40},
		},
	}

	p.PrintFeedback(resume)
	output := buf.String()

	assert.Contains(t, output, "RESUME REVIEW")
	assert.Contains(t, output, "Acme Corp")
	assert.Contains(t, output, "Senior Engineer")
	assert.Contains(t, output, "Overall:  82/100 (Strong)")
	assert.Contains(t, output, "ATS:      64/100")
	assert.Contains(t, output, "✓ Standard headings")
	assert.Contains(t, output, "! Add keywords")
	assert.Contains(t, output, "Needs Work")
}

func TestPrintFeedback_Nil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintFeedback(nil)

	assert.Empty(t, buf.String())
}

func TestPrintFeedback_PendingAndRaw(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintFeedback(&types.Resume{})
	assert.Contains(t, buf.String(), "Analysis pending")

	buf.Reset()
	p.PrintFeedback(&types.Resume{Feedback: &types.Feedback{Raw: "not json"}})
	assert.Contains(t, buf.String(), "not json")
}

func TestPrintFeedback_TruncatesTips(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	tips := make([]types.Tip, 8)
	for i := range tips {
		tips[i] = types.Tip{Type: "improve", Tip: "tip"}
	}
	p.PrintFeedback(&types.Resume{Feedback: &types.Feedback{ATS: types.Category{Tips: tips}}})

	assert.Contains(t, buf.String(), "... and 3 more")
}

func TestPrintFiles(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintFiles("u1", []types.FSItem{
		{Name: "resume.pdf", Size: 2048},
		{Name: "resume.png", Size: 1024},
	})
	output := buf.String()

	assert.Contains(t, output, "STORED FILES")
	assert.Contains(t, output, "resume.pdf")
	assert.Contains(t, output, "2 KB")
	assert.Contains(t, output, "2 file(s), 3 KB")

	buf.Reset()
	p.PrintFiles("u1", nil)
	assert.Contains(t, buf.String(), "No files found.")
}

func TestPrintWipe(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintWipe("u1", 3, []string{"u1/a.pdf"})
	output := buf.String()

	assert.Contains(t, output, "Files deleted: 3")
	assert.Contains(t, output, "Failed:        1")
	assert.Contains(t, output, "u1/a.pdf")
}

func TestPrintProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintProgress("Uploading the file...", false)
	p.PrintProgress("Failed to Analyse resume", true)

	assert.Equal(t, "• Uploading the file...\n✗ Failed to Analyse resume\n", buf.String())
}

func TestPrintBox_AlignsMultibyteLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("TITLE", "Résumé – ünïcode\n"+strings.Repeat("x", 100))

	for _, line := range strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n") {
		assert.Equal(t, boxWidth, utf8.RuneCountInString(line), line)
	}
}
