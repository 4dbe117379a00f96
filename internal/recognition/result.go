// Package recognition holds the normalized output of an OCR pass and the
// interface OCR sources implement.
package recognition

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/google/uuid"
)

// Point is a pixel coordinate in the source image.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Quad is a detected text box: top-left, top-right, bottom-right, bottom-left.
type Quad [4]Point

// Bounds returns the axis-aligned rectangle enclosing the quad as min and max corners.
func (q Quad) Bounds() (lo, hi Point) {
	lo = Point{X: math.Inf(1), Y: math.Inf(1)}
	hi = Point{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, p := range q {
		lo.X = math.Min(lo.X, p.X)
		lo.Y = math.Min(lo.Y, p.Y)
		hi.X = math.Max(hi.X, p.X)
		hi.Y = math.Max(hi.Y, p.Y)
	}
	return lo, hi
}

// RectQuad builds an axis-aligned quad from a rectangle.
func RectQuad(x0, y0, x1, y1 float64) Quad {
	return Quad{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
}

// Region is one detected text box.
type Region struct {
	Quad       Quad    `json:"quad" yaml:"quad"`
	Text       string  `json:"text" yaml:"text"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Result is the immutable output of one recognition pass over one image.
// Regions keep the recognizer's detection order.
type Result struct {
	id      string
	source  string
	engine  string
	regions []Region
}

// NewResult copies regions into a new Result. Confidence is clamped to [0,1].
func NewResult(source, engine string, regions []Region) *Result {
	rs := make([]Region, len(regions))
	copy(rs, regions)
	for i := range rs {
		rs[i].Confidence = clamp01(rs[i].Confidence)
	}
	return &Result{
		id:      uuid.New().String(),
		source:  source,
		engine:  engine,
		regions: rs,
	}
}

func clamp01(f float64) float64 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// ID uniquely identifies this pass.
func (r *Result) ID() string { return r.id }

// Source is the path of the recognized image.
func (r *Result) Source() string { return r.source }

// Engine names the recognizer that produced the result.
func (r *Result) Engine() string { return r.engine }

// Len returns the number of regions.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.regions)
}

// Empty reports whether no regions were detected.
func (r *Result) Empty() bool { return r.Len() == 0 }

// Region returns the region at index i. It panics if i is out of range,
// like a slice index.
func (r *Result) Region(i int) Region { return r.regions[i] }

// Regions returns a copy of all regions.
func (r *Result) Regions() []Region {
	if r == nil {
		return nil
	}
	out := make([]Region, len(r.regions))
	copy(out, r.regions)
	return out
}

// Transcript returns the initial editable transcript: each region's text
// followed by a newline.
func (r *Result) Transcript() string {
	var b strings.Builder
	for _, reg := range r.regions {
		b.WriteString(reg.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

type resultView struct {
	ID      string   `json:"id" yaml:"id"`
	Source  string   `json:"source" yaml:"source"`
	Engine  string   `json:"engine,omitempty" yaml:"engine,omitempty"`
	Regions []Region `json:"regions" yaml:"regions"`
}

func (r *Result) view() resultView {
	return resultView{ID: r.id, Source: r.source, Engine: r.engine, Regions: r.Regions()}
}

// MarshalJSON encodes the result for CLI output.
func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.view())
}

// MarshalYAML encodes the result for CLI output.
func (r *Result) MarshalYAML() (any, error) {
	return r.view(), nil
}
