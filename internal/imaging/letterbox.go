// Package imaging performs the letterboxed resize applied to saved images:
// scale preserving aspect ratio, center on a white canvas of the requested
// size.
package imaging

import (
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"golang.org/x/image/draw"
)

// ErrUnsupported signals a codec the resizer cannot process.
var ErrUnsupported = errors.New("IMAGE NOT SUPPORTED")

// Letterbox scales src to fit destW x destH preserving aspect ratio and
// centers it on a white canvas of exactly those dimensions. Sources smaller
// than the target on both axes are not upscaled.
func Letterbox(src image.Image, destW, destH int) *image.RGBA {
	srcW := src.Bounds().Dx()
	srcH := src.Bounds().Dy()

	widthDiff := float64(destW) / float64(srcW)
	heightDiff := float64(destH) / float64(srcH)

	var nextW, nextH int
	if widthDiff > 1 && heightDiff > 1 {
		nextW = srcW
		nextH = srcH
	} else if widthDiff > heightDiff {
		nextH = destH
		nextW = srcW * nextH / srcH
	} else {
		nextW = destW
		nextH = srcH * nextW / srcW
	}

	borderW := (destW - nextW) / 2
	borderH := (destH - nextH) / 2

	dst := image.NewRGBA(image.Rect(0, 0, destW, destH))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	target := image.Rect(borderW, borderH, borderW+nextW, borderH+nextH)
	draw.BiLinear.Scale(dst, target, src, src.Bounds(), draw.Over, nil)

	return dst
}

// Decode reads an image, reporting its format. Unknown codecs yield
// ErrUnsupported.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", ErrUnsupported
	}
	switch format {
	case "jpeg", "png", "gif":
		return img, format, nil
	default:
		return nil, "", ErrUnsupported
	}
}

// Encode writes img in the given format.
func Encode(w io.Writer, img image.Image, format string) error {
	switch format {
	case "jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 100})
	case "png":
		return png.Encode(w, img)
	case "gif":
		return gif.Encode(w, img, nil)
	default:
		return ErrUnsupported
	}
}

// ResizeFile letterboxes the image at path in place, keeping its codec. The
// file is left untouched when the codec is not supported.
func ResizeFile(path string, destW, destH int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}

	img, format, err := Decode(f)
	f.Close()
	if err != nil {
		return err
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	return Encode(out, Letterbox(img, destW, destH), format)
}
