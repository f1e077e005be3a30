package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// QuestionSheet is the printable form of a recovery assignment.
type QuestionSheet struct {
	Title     string
	Subject   string
	DueDate   time.Time
	Questions []string
}

// PDFExporter renders question sheets.
type PDFExporter struct{}

func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render lays out the sheet on A4 with one numbered block per question.
func (e *PDFExporter) Render(sheet QuestionSheet) ([]byte, error) {
	if len(sheet.Questions) == 0 {
		return nil, fmt.Errorf("question sheet has no questions")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, tr(sheet.Title), "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	if sheet.Subject != "" {
		pdf.CellFormat(0, 6, tr("Subject: "+sheet.Subject), "", 1, "", false, 0, "")
	}
	if !sheet.DueDate.IsZero() {
		pdf.CellFormat(0, 6, "Due: "+sheet.DueDate.Format("2006-01-02"), "", 1, "", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 11)
	for i, q := range sheet.Questions {
		pdf.MultiCell(0, 6, tr(fmt.Sprintf("%d. %s", i+1, q)), "", "", false)
		pdf.Ln(2)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
