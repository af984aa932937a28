package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// ReceiptLine is one label/value row printed on a receipt.
type ReceiptLine struct {
	Label string
	Value string
}

// Receipt describes a booking confirmation document.
type Receipt struct {
	Title     string
	Reference string
	Lines     []ReceiptLine
	Footer    string
	// QRContent is encoded as a QR code next to the details when set.
	QRContent string
}

// PDFExporter renders receipts into single page PDFs.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// RenderReceipt creates the receipt document.
func (e *PDFExporter) RenderReceipt(r Receipt) ([]byte, error) {
	if r.Reference == "" {
		return nil, fmt.Errorf("receipt requires a reference")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr(r.Title), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 6, tr("Réf. "+r.Reference), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	for _, line := range r.Lines {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(45, 8, tr(line.Label), "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(80, 8, tr(line.Value), "", 1, "L", false, 0, "")
	}

	if r.QRContent != "" {
		png, err := qrcode.Encode(r.QRContent, qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("encode receipt qr: %w", err)
		}
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(png))
		pdf.ImageOptions("qr", 145, 35, 45, 45, false, opts, 0, "")
	}

	if r.Footer != "" {
		pdf.Ln(10)
		pdf.SetFont("Arial", "I", 9)
		pdf.MultiCell(0, 5, tr(r.Footer), "", "L", false)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
