package sheet

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
	"qrgen/internal/engine/history"
)

const (
	columns   = 3
	cellWidth = 60.0
	imageSize = 50.0
	rowHeight = 72.0
)

// Resolver maps a ledger filename to the stored image on disk.
type Resolver func(filename string) (string, error)

// Render writes a printable A4 sheet with one tile per entry: the QR image,
// its filename, the encoded link and the generation time.
func Render(w io.Writer, title string, entries []history.Entry, resolve Resolver) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetAuthor("qrgen", false)
	pdf.SetCreator("qrgen", false)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(false, 15)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	addTitle(pdf, tr(title), len(entries))

	if len(entries) == 0 {
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, "No QR codes generated yet.", "", "L", false)
	}

	_, pageHeight := pdf.GetPageSize()
	left, top, _, bottom := pdf.GetMargins()
	y := pdf.GetY()

	for i, entry := range entries {
		col := i % columns
		if col == 0 && i > 0 {
			y += rowHeight
		}
		if col == 0 && y+rowHeight > pageHeight-bottom {
			pdf.AddPage()
			y = top
		}
		addTile(pdf, tr, left+float64(col)*cellWidth, y, entry, resolve)
	}

	if pdf.Err() {
		return pdf.Error()
	}
	return pdf.Output(w)
}

func addTitle(pdf *gofpdf.Fpdf, title string, count int) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, title)
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("%d code(s), printed %s", count, time.Now().UTC().Format("2006-01-02 15:04 UTC")))
	pdf.Ln(10)
}

func addTile(pdf *gofpdf.Fpdf, tr func(string) string, x, y float64, entry history.Entry, resolve Resolver) {
	imgX := x + (cellWidth-imageSize)/2

	if path, err := resolve(entry.Filename); err == nil {
		pdf.ImageOptions(path, imgX, y, imageSize, imageSize, false,
			gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	} else {
		pdf.SetDrawColor(200, 200, 200)
		pdf.Rect(imgX, y, imageSize, imageSize, "D")
		pdf.SetXY(imgX, y+imageSize/2-3)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(imageSize, 6, "image missing", "", 0, "C", false, 0, "")
	}

	pdf.SetXY(x, y+imageSize+2)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(cellWidth, 5, tr(truncate(entry.Filename, 34)), "", 2, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(cellWidth, 4, tr(truncate(entry.Link, 48)), "", 2, "C", false, 0, "")
	pdf.CellFormat(cellWidth, 4, time.Unix(entry.Timestamp, 0).UTC().Format("2006-01-02 15:04 UTC"), "", 0, "C", false, 0, "")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
