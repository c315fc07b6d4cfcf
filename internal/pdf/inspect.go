// Package pdf inspects uploaded resumes and renders their first page to an image.
package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

// MIMEType is the only accepted upload type.
const MIMEType = "application/pdf"

// Info describes an inspected PDF.
type Info struct {
	MIME  string
	Pages int
	// Text is the extracted plain text. It is best effort and may be empty for scanned resumes.
	Text string
}

// Inspect checks that data is a PDF and extracts its page count and text.
func Inspect(data []byte) (info *Info, err error) {
	mime := mimetype.Detect(data)
	if !mime.Is(MIMEType) {
		return nil, fmt.Errorf("%w: detected %s", ErrNotPDF, mime.String())
	}

	// The parser panics on some malformed documents.
	defer func() {
		if r := recover(); r != nil {
			info, err = nil, fmt.Errorf("failed to parse PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse PDF: %w", err)
	}

	info = &Info{MIME: MIMEType, Pages: reader.NumPage()}
	info.Text = extractText(reader)
	return info, nil
}

func extractText(reader *pdf.Reader) string {
	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}
