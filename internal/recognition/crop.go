package recognition

import (
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	// Extra scan formats beyond what imaging registers.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// CropName is the file name of the n-th (1-based) region crop.
func CropName(n int) string {
	return fmt.Sprintf("cropped_serial_%d.jpg", n)
}

// CropRegions cuts every region's bounding box out of the source image and
// saves it as dir/cropped_serial_<n>.jpg, n starting at 1. It returns the
// written paths in region order. Boxes are clipped to the image; a box with
// no area still produces a 1x1 crop so paths stay aligned with regions.
func CropRegions(res *Result, dir string) ([]string, error) {
	if res.Empty() {
		return nil, nil
	}
	img, err := imaging.Open(res.Source())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", res.Source(), err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create crop directory: %w", err)
	}

	paths := make([]string, 0, res.Len())
	for i, reg := range res.regions {
		rect := cropRect(reg.Quad, img.Bounds())
		path := filepath.Join(dir, CropName(i+1))
		if err := imaging.Save(imaging.Crop(img, rect), path, imaging.JPEGQuality(90)); err != nil {
			return paths, fmt.Errorf("failed to save crop %d: %w", i+1, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func cropRect(q Quad, bounds image.Rectangle) image.Rectangle {
	lo, hi := q.Bounds()
	r := image.Rect(
		int(math.Floor(lo.X)), int(math.Floor(lo.Y)),
		int(math.Ceil(hi.X)), int(math.Ceil(hi.Y)),
	).Intersect(bounds)
	if r.Empty() {
		p := bounds.Min
		if lo.X >= float64(bounds.Min.X) && lo.X < float64(bounds.Max.X) {
			p.X = int(lo.X)
		}
		if lo.Y >= float64(bounds.Min.Y) && lo.Y < float64(bounds.Max.Y) {
			p.Y = int(lo.Y)
		}
		r = image.Rect(p.X, p.Y, p.X+1, p.Y+1)
	}
	return r
}
