package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/nfnt/resize"

	"ecosort_service/internal/domain/model"
)

// Decode parses encoded jpeg/png bytes into an image.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Letterbox scales the image to fit a size x size square, preserving aspect
// ratio, and centers it on a black canvas. This matches what the inference
// model expects as input.
func Letterbox(img image.Image, size int) *image.RGBA {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	var scaledW, scaledH uint
	if w >= h {
		scaledW = uint(size)
	} else {
		scaledH = uint(size)
	}
	scaled := resize.Resize(scaledW, scaledH, img, resize.Bilinear)

	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(canvas, canvas.Bounds(), image.Black, image.Point{}, draw.Src)

	sb := scaled.Bounds()
	offset := image.Pt((size-sb.Dx())/2, (size-sb.Dy())/2)
	draw.Draw(canvas, sb.Add(offset), scaled, sb.Min, draw.Over)

	return canvas
}

// EncodeJPEG encodes an image to jpeg bytes.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeDataURL encodes an image as a base64 jpeg data URL for the web UI.
func EncodeDataURL(img image.Image) (string, error) {
	data, err := EncodeJPEG(img)
	if err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data), nil
}

// DecodeDataURL strips an optional data URL prefix and returns the raw
// image bytes.
func DecodeDataURL(s string) ([]byte, error) {
	if idx := strings.Index(s, ","); idx >= 0 {
		s = s[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode base64 frame: %w", err)
	}
	return data, nil
}

// Annotate draws category-colored bounding boxes for every detection on a
// copy of the image.
func Annotate(img image.Image, detections []model.Detection) *image.RGBA {
	canvas := toRGBA(img)
	for _, d := range detections {
		drawRect(canvas, d.Box.X1, d.Box.Y1, d.Box.X2, d.Box.Y2, categoryColor(d.Category))
	}
	return canvas
}

func toRGBA(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, img, bounds.Min, draw.Src)
	return canvas
}

func categoryColor(c model.Category) color.RGBA {
	if c == model.CategoryOrganic {
		return color.RGBA{255, 102, 0, 255}
	}
	return color.RGBA{0, 255, 0, 255}
}

func drawRect(img *image.RGBA, x1, y1, x2, y2 int, col color.Color) {
	thickness := 2
	bounds := img.Bounds()

	setPixel := func(x, y int) {
		if x >= bounds.Min.X && x < bounds.Max.X && y >= bounds.Min.Y && y < bounds.Max.Y {
			img.Set(x, y, col)
		}
	}

	for t := 0; t < thickness; t++ {
		for x := x1; x <= x2; x++ {
			setPixel(x, y1+t)
			setPixel(x, y2-t)
		}
		for y := y1; y <= y2; y++ {
			setPixel(x1+t, y)
			setPixel(x2-t, y)
		}
	}
}
