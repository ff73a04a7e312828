package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"MarketThermo/internal/domain/models"
	domsvc "MarketThermo/internal/domain/service"
	"MarketThermo/pkg/util"
)

// Logical layout, multiplied by the pixel density at draw time.
const (
	cardWidth  = 420
	margin     = 16
	innerWidth = cardWidth - 2*margin
	cellHeight = 36
)

var (
	colBackground = parseHex("#0f172a")
	colPanel      = parseHex("#1e293b")
	colHeader     = parseHex("#334155")
	colText       = parseHex("#f8fafc")
	colMuted      = parseHex("#94a3b8")
	colBanner     = parseHex("#f59e0b")
	colDark       = parseHex("#111827")
)

// PNGRenderer draws the report card onto an RGBA canvas.
type PNGRenderer struct {
	fonts *fontSet
}

// NewPNGRenderer uses the font at fontPath when set, the built-in bitmap face otherwise.
func NewPNGRenderer(fontPath string) (*PNGRenderer, error) {
	fs, err := loadFonts(fontPath)
	if err != nil {
		return nil, err
	}
	return &PNGRenderer{fonts: fs}, nil
}

func (r *PNGRenderer) ContentType() string { return "image/png" }
func (r *PNGRenderer) Extension() string   { return "png" }

// Render encodes report at the given pixel density, clamped to 1..4.
func (r *PNGRenderer) Render(report *models.MarketReport, scale int) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("nil report")
	}
	scale = util.Clamp(scale, MinScale, MaxScale)

	faces := newFaceCache(r.fonts)
	defer faces.close()
	cv := &canvas{scale: scale, faces: faces}

	c := newCard(report, r.fonts.cjk)
	narrative := wrap(c.narrative, innerWidth-16, func(s string) int { return cv.measure(s, 12) })
	disclaimer := wrap(c.labels.Disclaimer, innerWidth, func(s string) int { return cv.measure(s, 9) })

	height := 16 + 28 + 20 + 88 + 96 + 20 + 5*cellHeight + 12 + 16 + 14*len(c.sources) + 6 + 12*len(disclaimer) + margin
	if c.estimated {
		height += 28
	}
	if len(narrative) > 0 {
		height += 16*len(narrative) + 20
	}

	cv.img = image.NewRGBA(image.Rect(0, 0, cardWidth*scale, height*scale))
	cv.fill(image.Rect(0, 0, cardWidth, height), colBackground)

	y := margin
	cv.text(margin, y, c.labels.Title, 20, colText)
	y += 28
	cv.text(margin, y, c.statusLine(), 11, colMuted)
	y += 20

	if c.estimated {
		banner := image.Rect(margin, y, cardWidth-margin, y+20)
		cv.fill(banner, colBanner)
		cv.textCenter(banner, c.labels.Estimate, 11, colDark)
		y += 28
	}

	half := (innerWidth - 8) / 2
	cv.metric(image.Rect(margin, y, margin+half, y+76), c.labels.PELabel, c.ratio, c.valuation, c.valColor)
	cv.metric(image.Rect(cardWidth-margin-half, y, cardWidth-margin, y+76), c.labels.VIXLabel, c.vol, c.sentiment, c.sentColor)
	y += 88

	accent := hint(c.cell.Color)
	cv.fill(image.Rect(margin, y, cardWidth-margin, y+84), colPanel)
	cv.fill(image.Rect(margin, y, margin+4, y+84), accent)
	cv.text(margin+12, y+8, c.labels.PlanLabel, 11, colMuted)
	cv.text(margin+12, y+24, c.plan.Title, 22, colText)
	cv.text(margin+12, y+52, c.plan.Subtitle, 12, colText)
	cv.text(margin+12, y+68, c.actionLine(), 11, accent)
	y += 96

	if len(narrative) > 0 {
		box := image.Rect(margin, y, cardWidth-margin, y+16*len(narrative)+12)
		cv.fill(box, colPanel)
		for i, line := range narrative {
			cv.text(margin+8, y+6+16*i, line, 12, colText)
		}
		y = box.Max.Y + 8
	}

	cv.text(margin, y, c.matrix.Title, 13, colText)
	y += 20
	y = cv.matrix(y, c)
	y += 12

	cv.text(margin, y, c.labels.Sources, 11, colMuted)
	y += 16
	for _, s := range c.sources {
		cv.text(margin, y, s.Label, 10, colText)
		y += 14
	}
	y += 6
	for _, line := range disclaimer {
		cv.text(margin, y, line, 9, colMuted)
		y += 12
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, cv.img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// canvas draws in logical coordinates onto a scaled RGBA image.
type canvas struct {
	img   *image.RGBA
	scale int
	faces *faceCache
}

func (cv *canvas) px(r image.Rectangle) image.Rectangle {
	return image.Rect(r.Min.X*cv.scale, r.Min.Y*cv.scale, r.Max.X*cv.scale, r.Max.Y*cv.scale)
}

func (cv *canvas) fill(r image.Rectangle, col color.Color) {
	xdraw.Draw(cv.img, cv.px(r), image.NewUniform(col), image.Point{}, xdraw.Src)
}

func (cv *canvas) stroke(r image.Rectangle, col color.Color, w int) {
	cv.fill(image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+w), col)
	cv.fill(image.Rect(r.Min.X, r.Max.Y-w, r.Max.X, r.Max.Y), col)
	cv.fill(image.Rect(r.Min.X, r.Min.Y, r.Min.X+w, r.Max.Y), col)
	cv.fill(image.Rect(r.Max.X-w, r.Min.Y, r.Max.X, r.Max.Y), col)
}

// measure returns the logical width of s at size.
func (cv *canvas) measure(s string, size float64) int {
	face, mag := cv.faces.face(size * float64(cv.scale))
	return font.MeasureString(face, s).Ceil() * mag / cv.scale
}

// text draws s with its top-left corner at (x, y).
func (cv *canvas) text(x, y int, s string, size float64, col color.Color) {
	if s == "" {
		return
	}
	face, mag := cv.faces.face(size * float64(cv.scale))
	ascent := face.Metrics().Ascent.Ceil()
	if mag == 1 {
		d := font.Drawer{
			Dst:  cv.img,
			Src:  image.NewUniform(col),
			Face: face,
			Dot:  fixed.P(x*cv.scale, y*cv.scale+ascent),
		}
		d.DrawString(s)
		return
	}

	// Bitmap faces are drawn at native size and magnified.
	w := font.MeasureString(face, s).Ceil()
	h := face.Metrics().Height.Ceil()
	tmp := image.NewRGBA(image.Rect(0, 0, w, h))
	d := font.Drawer{Dst: tmp, Src: image.NewUniform(col), Face: face, Dot: fixed.P(0, ascent)}
	d.DrawString(s)
	dst := image.Rect(x*cv.scale, y*cv.scale, x*cv.scale+w*mag, y*cv.scale+h*mag)
	xdraw.NearestNeighbor.Scale(cv.img, dst, tmp, tmp.Bounds(), xdraw.Over, nil)
}

func (cv *canvas) textCenter(r image.Rectangle, s string, size float64, col color.Color) {
	w := cv.measure(s, size)
	cv.text(r.Min.X+(r.Dx()-w)/2, r.Min.Y+(r.Dy()-int(size))/2, s, size, col)
}

func (cv *canvas) metric(r image.Rectangle, label, value, status string, badge color.RGBA) {
	cv.fill(r, colPanel)
	cv.text(r.Min.X+10, r.Min.Y+8, label, 11, colMuted)
	cv.text(r.Min.X+10, r.Min.Y+24, value, 26, colText)
	bw := cv.measure(status, 10) + 12
	b := image.Rect(r.Min.X+10, r.Min.Y+56, r.Min.X+10+bw, r.Min.Y+70)
	cv.fill(b, badge)
	cv.textCenter(b, status, 10, colText)
}

// matrix draws the 5x5 grid starting at y and returns the y below it.
func (cv *canvas) matrix(y int, c card) int {
	cw := innerWidth / 5
	at := func(row, col int) image.Rectangle {
		x0 := margin + col*cw
		y0 := y + row*cellHeight
		return image.Rect(x0+1, y0+1, x0+cw-1, y0+cellHeight-1)
	}
	header := func(r image.Rectangle, label, sub string) {
		cv.fill(r, colHeader)
		cv.textCenter(image.Rect(r.Min.X, r.Min.Y+2, r.Max.X, r.Min.Y+cellHeight/2), label, 10, colText)
		cv.textCenter(image.Rect(r.Min.X, r.Min.Y+cellHeight/2-2, r.Max.X, r.Max.Y-2), sub, 9, colMuted)
	}

	header(at(0, 0), c.matrix.Corner.Label, c.matrix.Corner.Sub)
	for j, h := range c.matrix.Columns {
		header(at(0, j+1), h.Label, h.Sub)
	}
	for i, h := range c.matrix.Rows {
		header(at(i+1, 0), h.Label, h.Sub)
		for j, cell := range c.matrix.Cells[i] {
			r := at(i+1, j+1)
			base := hint(cell.Color)
			active := i == c.activeRow && j == c.activeCol
			fill := mix(base, colBackground, 0.65)
			if active {
				fill = base
			}
			cv.fill(r, fill)
			if active {
				cv.stroke(r, colText, 2)
			}
			cv.textCenter(image.Rect(r.Min.X, r.Min.Y+2, r.Max.X, r.Min.Y+cellHeight/2), cell.Action.In(c.lang), 11, colText)
			cv.textCenter(image.Rect(r.Min.X, r.Min.Y+cellHeight/2-2, r.Max.X, r.Max.Y-2), cell.Description.In(c.lang), 9, colText)
		}
	}
	return y + 5*cellHeight
}

var _ domsvc.ReportRenderer = (*PNGRenderer)(nil)
