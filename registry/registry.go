// Package registry ties an asset config file to the images it declares: it
// builds the lookup tables, a texture manager for the images, and keeps the
// two in step when the file changes.
package registry

import (
	"context"

	"github.com/MobRulesGames/mapasset/assets"
	"github.com/MobRulesGames/mapasset/base"
	"github.com/MobRulesGames/mapasset/logging"
	"github.com/MobRulesGames/mapasset/texture"
)

// Set is everything loaded from one asset config. Assets resolves regions
// with images from Images attached.
type Set struct {
	Assets *assets.Registry
	Images *texture.Manager
	Path   base.Path
}

// Reads and validates the config at path. No images are loaded until
// LoadAll is called.
func Open(path string, fetcher texture.Fetcher, opts ...texture.Option) (*Set, error) {
	cfg, err := assets.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	reg, err := assets.NewRegistry(cfg)
	if err != nil {
		return nil, err
	}
	mgr := texture.NewManager(reg.Images(), fetcher, opts...)
	logging.Debug("opened asset config", "path", path, "images", len(cfg.Images), "layers", len(cfg.LayerMap), "characters", len(cfg.Characters))
	return &Set{
		Assets: reg.WithImages(mgr),
		Images: mgr,
		Path:   base.Path(path),
	}, nil
}

func (s *Set) LoadAll(ctx context.Context) bool {
	return s.Images.LoadAll(ctx)
}

func (s *Set) ResolveTile(layer assets.LayerName, token assets.TileToken) (assets.TileRegion, error) {
	return s.Assets.ResolveTile(layer, token)
}

func (s *Set) ResolveCharacter(id assets.CharacterID, facing assets.Facing) (assets.TileRegion, error) {
	return s.Assets.ResolveCharacter(id, facing)
}

func (s *Set) Layers() []assets.LayerName {
	return s.Assets.Layers()
}

// Releases the images. The lookup tables stay usable but no longer carry
// images.
func (s *Set) Close() {
	s.Images.Release()
}
