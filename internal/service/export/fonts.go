package export

import (
	"fmt"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// fontSet is either the built-in 7x13 bitmap face or a parsed TrueType or
// OpenType font.
type fontSet struct {
	path string
	otf  *opentype.Font
	cjk  bool
}

func loadFonts(path string) (*fontSet, error) {
	if path == "" {
		return &fontSet{}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	f, err := opentype.Parse(b)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	var buf sfnt.Buffer
	idx, err := f.GlyphIndex(&buf, '中')
	return &fontSet{path: path, otf: f, cjk: err == nil && idx != 0}, nil
}

// faceCache hands out faces for one render; opentype faces are not safe for
// concurrent use.
type faceCache struct {
	fonts *fontSet
	faces map[float64]font.Face
}

func newFaceCache(fs *fontSet) *faceCache {
	return &faceCache{fonts: fs, faces: make(map[float64]font.Face)}
}

// face returns the face for a pixel size and the bitmap magnification to apply
// when drawing it. Vector faces are built at the exact size with mag 1.
func (fc *faceCache) face(px float64) (font.Face, int) {
	if fc.fonts.otf == nil {
		mag := int(math.Round(px / float64(basicfont.Face7x13.Height)))
		if mag < 1 {
			mag = 1
		}
		return basicfont.Face7x13, mag
	}
	if f, ok := fc.faces[px]; ok {
		return f, 1
	}
	f, err := opentype.NewFace(fc.fonts.otf, &opentype.FaceOptions{
		Size:    px,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return basicfont.Face7x13, 1
	}
	fc.faces[px] = f
	return f, 1
}

func (fc *faceCache) close() {
	for _, f := range fc.faces {
		_ = f.Close()
	}
}
