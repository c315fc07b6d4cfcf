package pdf

import (
	"errors"
	"fmt"
)

// ErrNotPDF is returned when the data is not a PDF document.
var ErrNotPDF = errors.New("file is not a PDF")

// ErrNoImage is returned when the converter finished without writing an image.
var ErrNoImage = errors.New("no image file produced from PDF")

// ConversionError represents a pdftoppm failure
type ConversionError struct {
	Message string
	Output  string
	Cause   error
}

func (e *ConversionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("Error: Failed to convert PDF: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("Error: Failed to convert PDF: %s", e.Message)
}

func (e *ConversionError) Unwrap() error {
	return e.Cause
}
