package processor

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/chai2010/webp"
)

// ImageProcessor decodes accepted uploads so a corrupt payload is rejected
// before any store call.
type ImageProcessor struct {
	img image.Image
}

func (i *ImageProcessor) Load(r io.Reader, ext string) error {
	switch ext {
	case ".png":
		return i.LoadPNG(r)
	case ".jpg", ".jpeg":
		return i.LoadJPEG(r)
	case ".webp":
		return i.LoadWEBP(r)
	case ".gif":
		return i.LoadGIF(r)
	default:
		return fmt.Errorf("unsupported image extension: %s", ext)
	}
}

func (i *ImageProcessor) LoadPNG(r io.Reader) error {
	img, err := png.Decode(r)
	i.img = img
	return err
}

func (i *ImageProcessor) LoadJPEG(r io.Reader) error {
	img, err := jpeg.Decode(r)
	i.img = img
	return err
}

func (i *ImageProcessor) LoadWEBP(r io.Reader) error {
	img, err := webp.Decode(r)
	i.img = img
	return err
}

func (i *ImageProcessor) LoadGIF(r io.Reader) error {
	img, err := gif.Decode(r)
	i.img = img
	return err
}

func (i *ImageProcessor) GetBounds() (int, int) {
	return i.img.Bounds().Size().X, i.img.Bounds().Size().Y
}
