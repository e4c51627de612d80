package assets

import "image"

// TileRegion is where to draw a tile or character from: a rectangle of the
// named image, plus the image itself once it has loaded.
type TileRegion struct {
	ImageRef  ImageName
	SrcX      int
	SrcY      int
	SrcWidth  int
	SrcHeight int

	// Nil until the image has loaded successfully.
	Image image.Image
}

func (r TileRegion) Rect() image.Rectangle {
	return image.Rect(r.SrcX, r.SrcY, r.SrcX+r.SrcWidth, r.SrcY+r.SrcHeight)
}

func (r TileRegion) Loaded() bool {
	return r.Image != nil
}

// ImageSource hands out loaded images by name. The second result is false
// when the image is unknown, still loading, or failed to load.
type ImageSource interface {
	GetImage(name ImageName) (image.Image, bool)
}

type TileResolver interface {
	ResolveTile(layer LayerName, token TileToken) (TileRegion, error)
}

type CharacterResolver interface {
	ResolveCharacter(id CharacterID, facing Facing) (TileRegion, error)
}
