package video

import (
	"image"
	"io"

	"golang.org/x/image/draw"
)

// writeRawRGBA writes img as tightly packed RGBA of buf's size. Frames that
// already match are written directly; others are copied or scaled into buf.
func writeRawRGBA(w io.Writer, img image.Image, buf *image.RGBA) error {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	// Проверяем, является ли изображение уже RGBA нужного размера со стандартным шагом (stride)
	if ok && bounds == buf.Rect && rgba.Stride == bounds.Dx()*4 {
		_, err := w.Write(rgba.Pix)
		return err
	}

	if bounds.Dx() == buf.Rect.Dx() && bounds.Dy() == buf.Rect.Dy() {
		draw.Draw(buf, buf.Rect, img, bounds.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(buf, buf.Rect, img, bounds, draw.Src, nil)
	}
	_, err := w.Write(buf.Pix)
	return err
}
