package texture

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/MobRulesGames/memory"
	"github.com/runningwild/glop/imgmanip"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Decodes an image and copies it into a pooled pixel block, rebased to the
// origin. Images with no colour are stored as gray+alpha at half the size.
// The returned block must be handed back with memory.FreeBlock.
func decode(r io.Reader) (image.Image, []byte, error) {
	im, _, err := image.Decode(r)
	if err != nil {
		return nil, nil, fmt.Errorf("couldn't decode image: %w", err)
	}
	bounds := im.Bounds()
	dx := bounds.Dx()
	dy := bounds.Dy()
	if dx == 0 || dy == 0 {
		return nil, nil, fmt.Errorf("image is empty (%dx%d)", dx, dy)
	}

	rect := image.Rect(0, 0, dx, dy)
	var canvas draw.Image
	var pix []byte
	if isGray(im) {
		pix = memory.GetBlock(2 * dx * dy)
		ga := imgmanip.NewGrayAlpha(rect)
		ga.Pix = pix
		canvas = ga
	} else {
		pix = memory.GetBlock(4 * dx * dy)
		canvas = &image.RGBA{
			Pix:    pix,
			Stride: 4 * dx,
			Rect:   rect,
		}
	}
	draw.Draw(canvas, rect, im, bounds.Min, draw.Src)
	return canvas, pix, nil
}

func isGray(im image.Image) bool {
	bounds := im.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := im.At(x, y).RGBA()
			if r != g || g != b {
				return false
			}
		}
	}
	return true
}
