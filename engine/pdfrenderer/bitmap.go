package pdfrenderer

import (
	"bytes"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/drummonds/bookview/render"
)

// pointsPerInch is the PDF user-space unit; scale 1 renders at this DPI.
const pointsPerInch = 72.0

func dpiForScale(scale float64) float64 {
	if scale <= 0 {
		scale = 1
	}
	return pointsPerInch * scale
}

// scaledViewport converts a page size in points to pixels at scale.
func scaledViewport(widthPt, heightPt, scale float64) render.Viewport {
	return render.Viewport{
		Scale:  scale,
		Width:  int(math.Round(widthPt * scale)),
		Height: int(math.Round(heightPt * scale)),
	}
}

// encodeBitmap fits img inside the viewport bounds, if any, and encodes it as PNG.
func encodeBitmap(page int, img image.Image, vp render.Viewport) (render.Bitmap, error) {
	if vp.MaxWidth > 0 || vp.MaxHeight > 0 {
		w, h := vp.MaxWidth, vp.MaxHeight
		if w == 0 {
			w = img.Bounds().Dx()
		}
		if h == 0 {
			h = img.Bounds().Dy()
		}
		img = imaging.Fit(img, w, h, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return render.Bitmap{}, fmt.Errorf("unable to encode page %d: %w", page, err)
	}
	bounds := img.Bounds()
	return render.Bitmap{
		Page:        page,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		ContentType: "image/png",
		Data:        buf.Bytes(),
	}, nil
}
