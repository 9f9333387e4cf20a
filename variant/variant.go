package variant

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"sort"

	"github.com/disintegration/imaging"

	"imgshrink/intake"
)

// DefaultJPEGQuality is the fixed quality used when re-encoding lossy
// sources.
const DefaultJPEGQuality = 92

// Ratio is a target byte-size fraction expressed as a linear-dimension
// multiplier: halving each dimension quarters the pixel area, so the
// linear factor for a 1/N byte-size target is 1/sqrt(N).
type Ratio struct {
	Num    int
	Den    int
	Factor float64
}

var (
	Half    = Ratio{Num: 1, Den: 2, Factor: 1 / math.Sqrt2}
	Quarter = Ratio{Num: 1, Den: 4, Factor: 0.5}
	Eighth  = Ratio{Num: 1, Den: 8, Factor: 1 / math.Sqrt(8)}
)

// Ratios lists the supported byte-size targets.
var Ratios = []Ratio{Half, Quarter, Eighth}

// RatioFromToken resolves a "1/2", "1/4" or "1/8" token.
func RatioFromToken(token string) (Ratio, bool) {
	for _, r := range Ratios {
		if r.Token() == token {
			return r, true
		}
	}
	return Ratio{}, false
}

// Token returns the human-readable byte-size fraction, e.g. "1/4".
func (r Ratio) Token() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// slug is the filename-safe form of the token.
func (r Ratio) slug() string {
	return fmt.Sprintf("%d-%d", r.Num, r.Den)
}

// Selection is one generation request: a single width-scale factor and a
// duplicate-free set of size ratios.
type Selection struct {
	WidthScale float64
	Ratios     []Ratio
}

// NewSelection validates a width-scale and resolves ratio tokens,
// dropping duplicates. The width-scale must be in (0, 1].
func NewSelection(widthScale float64, tokens []string) (Selection, error) {
	if widthScale <= 0 || widthScale > 1 {
		return Selection{}, fmt.Errorf("width scale %v out of range (0, 1]", widthScale)
	}

	seen := make(map[string]bool, len(tokens))
	ratios := make([]Ratio, 0, len(tokens))
	for _, tok := range tokens {
		if seen[tok] {
			continue
		}
		r, ok := RatioFromToken(tok)
		if !ok {
			return Selection{}, fmt.Errorf("unknown size ratio %q", tok)
		}
		seen[tok] = true
		ratios = append(ratios, r)
	}

	return Selection{WidthScale: widthScale, Ratios: ratios}, nil
}

// Variant is one resampled, re-encoded output. Created fresh on each
// generation run and never mutated afterwards.
type Variant struct {
	Label  string
	Width  int
	Height int
	Scale  float64
	MIME   string
	Ext    string
	Data   []byte
}

// EstimatedBytes is the exact length of the encoded payload.
func (v *Variant) EstimatedBytes() int {
	return len(v.Data)
}

// DataURL returns the payload as an inline data URL for previewing.
func (v *Variant) DataURL() string {
	return "data:" + v.MIME + ";base64," + base64.StdEncoding.EncodeToString(v.Data)
}

// Generator resamples and re-encodes variants from a decoded source.
type Generator struct {
	Quality int // JPEG quality; DefaultJPEGQuality when zero
}

// Generate produces one variant per selected ratio, in descending order
// of linear factor, each resampled with a Lanczos filter and re-encoded
// (PNG stays PNG, everything else becomes JPEG). Variants within a run
// are computed strictly sequentially. An empty ratio set yields nil.
//
// Target dimensions are rounded per axis independently, which can drift
// the aspect ratio by a sub-pixel amount at non-integral scale factors.
func (g *Generator) Generate(src *intake.SourceImage, sel Selection) ([]*Variant, error) {
	if len(sel.Ratios) == 0 {
		return nil, nil
	}

	quality := g.Quality
	if quality == 0 {
		quality = DefaultJPEGQuality
	}

	ratios := make([]Ratio, len(sel.Ratios))
	copy(ratios, sel.Ratios)
	sort.Slice(ratios, func(i, j int) bool {
		return ratios[i].Factor > ratios[j].Factor
	})

	variants := make([]*Variant, 0, len(ratios))
	for _, r := range ratios {
		combined := sel.WidthScale * r.Factor
		width := roundDim(float64(src.Width) * combined)
		height := roundDim(float64(src.Height) * combined)

		resized := imaging.Resize(src.Bitmap, width, height, imaging.Lanczos)

		var buf bytes.Buffer
		var err error
		mime, ext := "image/jpeg", "jpg"
		if src.Lossless() {
			mime, ext = "image/png", "png"
			err = imaging.Encode(&buf, resized, imaging.PNG)
		} else {
			err = imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(quality))
		}
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s variant: %w", r.Token(), err)
		}

		variants = append(variants, &Variant{
			Label:  Label(sel.WidthScale, r),
			Width:  width,
			Height: height,
			Scale:  combined,
			MIME:   mime,
			Ext:    ext,
			Data:   buf.Bytes(),
		})
	}

	return variants, nil
}

// Label identifies a (width-scale, ratio) pair, filename-safe, e.g.
// "80pct_1-4".
func Label(widthScale float64, r Ratio) string {
	return fmt.Sprintf("%dpct_%s", int(math.Round(widthScale*100)), r.slug())
}

func roundDim(v float64) int {
	d := int(math.Round(v))
	if d < 1 {
		return 1
	}
	return d
}
