package export

import (
	"bytes"
	"fmt"
	"image/color"

	"github.com/go-pdf/fpdf"

	"MarketThermo/internal/domain/models"
	domsvc "MarketThermo/internal/domain/service"
)

const (
	pdfMargin = 15.0
	pdfWidth  = 180.0
	pdfFamily = "thermo"
)

// PDFRenderer lays the report card out on one A4 page. Scale is ignored
// because the output is vector.
type PDFRenderer struct {
	fonts *fontSet
}

// NewPDFRenderer embeds the font at fontPath as a UTF-8 font when set and
// uses Helvetica otherwise.
func NewPDFRenderer(fontPath string) (*PDFRenderer, error) {
	fs, err := loadFonts(fontPath)
	if err != nil {
		return nil, err
	}
	return &PDFRenderer{fonts: fs}, nil
}

func (r *PDFRenderer) ContentType() string { return "application/pdf" }
func (r *PDFRenderer) Extension() string   { return "pdf" }

func (r *PDFRenderer) Render(report *models.MarketReport, _ int) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("nil report")
	}
	c := newCard(report, r.fonts.cjk)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	family := "Helvetica"
	if r.fonts.path != "" {
		pdf.AddUTF8Font(pdfFamily, "", r.fonts.path)
		pdf.AddUTF8Font(pdfFamily, "B", r.fonts.path)
		family = pdfFamily
	}
	pdf.SetTitle(c.labels.Title, true)
	pdf.SetCreator("MarketThermo", false)
	pdf.AddPage()

	w := &pdfWriter{pdf: pdf, family: family}

	w.font("B", 18)
	pdf.CellFormat(pdfWidth, 10, c.labels.Title, "", 1, "L", false, 0, "")
	w.font("", 10)
	w.textColor(colMuted)
	pdf.CellFormat(pdfWidth, 6, c.statusLine(), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if c.estimated {
		w.fillColor(colBanner)
		w.textColor(colDark)
		w.font("B", 10)
		pdf.CellFormat(pdfWidth, 7, c.labels.Estimate, "", 1, "C", true, 0, "")
		pdf.Ln(2)
	}

	half := (pdfWidth - 4) / 2
	top := pdf.GetY()
	w.metric(pdfMargin, top, half, c.labels.PELabel, c.ratio, c.valuation, c.valColor)
	w.metric(pdfMargin+half+4, top, half, c.labels.VIXLabel, c.vol, c.sentiment, c.sentColor)
	pdf.SetXY(pdfMargin, top+28)

	accent := hint(c.cell.Color)
	top = pdf.GetY()
	w.fillColor(colPanel)
	pdf.Rect(pdfMargin, top, pdfWidth, 30, "F")
	w.fillColor(accent)
	pdf.Rect(pdfMargin, top, 1.5, 30, "F")
	pdf.SetXY(pdfMargin+5, top+2)
	w.font("", 9)
	w.textColor(colMuted)
	pdf.CellFormat(pdfWidth-5, 5, c.labels.PlanLabel, "", 2, "L", false, 0, "")
	w.font("B", 16)
	w.textColor(colText)
	pdf.CellFormat(pdfWidth-5, 9, c.plan.Title, "", 2, "L", false, 0, "")
	w.font("", 10)
	pdf.CellFormat(pdfWidth-5, 6, c.plan.Subtitle, "", 2, "L", false, 0, "")
	w.textColor(accent)
	pdf.CellFormat(pdfWidth-5, 6, c.actionLine(), "", 1, "L", false, 0, "")
	pdf.SetXY(pdfMargin, top+34)

	if c.narrative != "" {
		w.font("", 10)
		w.textColor(colDark)
		pdf.MultiCell(pdfWidth, 5, c.narrative, "", "L", false)
		pdf.Ln(3)
	}

	w.font("B", 12)
	w.textColor(colDark)
	pdf.CellFormat(pdfWidth, 8, c.matrix.Title, "", 1, "L", false, 0, "")
	w.matrix(c)
	pdf.Ln(4)

	w.font("B", 10)
	w.textColor(colDark)
	pdf.CellFormat(pdfWidth, 6, c.labels.Sources, "", 1, "L", false, 0, "")
	w.font("", 9)
	for _, s := range c.sources {
		w.textColor(palette["blue"])
		pdf.CellFormat(pdfWidth, 5, s.Label, "", 1, "L", false, 0, s.Link)
	}
	pdf.Ln(2)
	w.font("", 8)
	w.textColor(palette["gray"])
	pdf.MultiCell(pdfWidth, 4, c.labels.Disclaimer, "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

type pdfWriter struct {
	pdf    *fpdf.Fpdf
	family string
}

func (w *pdfWriter) font(style string, size float64) { w.pdf.SetFont(w.family, style, size) }

func (w *pdfWriter) fillColor(c color.RGBA) { w.pdf.SetFillColor(int(c.R), int(c.G), int(c.B)) }

func (w *pdfWriter) textColor(c color.RGBA) { w.pdf.SetTextColor(int(c.R), int(c.G), int(c.B)) }

func (w *pdfWriter) metric(x, y, width float64, label, value, status string, badge color.RGBA) {
	w.fillColor(colPanel)
	w.pdf.Rect(x, y, width, 24, "F")
	w.pdf.SetXY(x+3, y+2)
	w.font("", 9)
	w.textColor(colMuted)
	w.pdf.CellFormat(width-6, 5, label, "", 2, "L", false, 0, "")
	w.font("B", 18)
	w.textColor(colText)
	w.pdf.CellFormat(width-6, 9, value, "", 2, "L", false, 0, "")
	w.font("B", 8)
	w.fillColor(badge)
	w.pdf.CellFormat(w.pdf.GetStringWidth(status)+4, 5, status, "", 0, "C", true, 0, "")
}

func (w *pdfWriter) matrix(c card) {
	const cellH = 12.0
	cw := pdfWidth / 5
	top := w.pdf.GetY()
	left := pdfMargin

	box := func(col, row int, fill color.RGBA, line1, line2 string, bold bool) {
		x := left + float64(col)*cw
		y := top + float64(row)*cellH
		w.fillColor(fill)
		w.pdf.Rect(x+0.3, y+0.3, cw-0.6, cellH-0.6, "F")
		w.textColor(colText)
		style := ""
		if bold {
			style = "B"
		}
		w.font(style, 9)
		w.pdf.SetXY(x, y+1)
		w.pdf.CellFormat(cw, 5, line1, "", 0, "C", false, 0, "")
		w.font("", 7)
		w.pdf.SetXY(x, y+6)
		w.pdf.CellFormat(cw, 5, line2, "", 0, "C", false, 0, "")
	}

	box(0, 0, colHeader, c.matrix.Corner.Label, c.matrix.Corner.Sub, true)
	for j, h := range c.matrix.Columns {
		box(j+1, 0, colHeader, h.Label, h.Sub, true)
	}
	for i, h := range c.matrix.Rows {
		box(0, i+1, colHeader, h.Label, h.Sub, true)
		for j, cell := range c.matrix.Cells[i] {
			active := i == c.activeRow && j == c.activeCol
			fill := mix(hint(cell.Color), parseHex("#ffffff"), 0.45)
			if active {
				fill = hint(cell.Color)
			}
			box(j+1, i+1, fill, cell.Action.In(c.lang), cell.Description.In(c.lang), active)
			if active {
				w.pdf.SetDrawColor(int(colDark.R), int(colDark.G), int(colDark.B))
				w.pdf.SetLineWidth(0.8)
				w.pdf.Rect(left+float64(j+1)*cw+0.3, top+float64(i+1)*cellH+0.3, cw-0.6, cellH-0.6, "D")
				w.pdf.SetLineWidth(0.2)
			}
		}
	}
	w.pdf.SetXY(pdfMargin, top+5*cellH)
}

var _ domsvc.ReportRenderer = (*PDFRenderer)(nil)
