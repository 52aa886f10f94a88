package merge

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// renderPlaceholder builds a one-page PDF that stands in for merged output.
func renderPlaceholder(fileCount int, now time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Merged document", false)
	pdf.SetAuthor("fusiondoc", false)
	pdf.SetCreationDate(now)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Merged document")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.MultiCell(0, 6, "Document merging is not available yet. This file is a placeholder.", "", "L", false)
	pdf.Ln(4)
	pdf.Cell(0, 6, fmt.Sprintf("Files requested: %d", fileCount))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", now.UTC().Format("2006-01-02 15:04 MST")))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write placeholder pdf: %w", err)
	}
	return buf.Bytes(), nil
}
