package assets

import "errors"

// Registry is the validated, read-only form of a Config. Every TileRef it
// holds points at a declared image, so resolution can only fail on unknown
// identifiers.
type Registry struct {
	images     map[ImageName]ImageDescriptor
	order      []ImageDescriptor
	layers     LayerMap
	characters CharacterMap
	idx        *index

	// Optional; when set, resolved regions carry the loaded image.
	source ImageSource
}

func NewRegistry(cfg *Config) (*Registry, error) {
	if cfg == nil {
		return nil, &ConfigError{Err: errors.New("no asset config supplied")}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	reg := &Registry{
		images:     make(map[ImageName]ImageDescriptor, len(cfg.Images)),
		order:      make([]ImageDescriptor, len(cfg.Images)),
		layers:     make(LayerMap, len(cfg.LayerMap)),
		characters: make(CharacterMap, len(cfg.Characters)),
	}
	copy(reg.order, cfg.Images)
	for _, img := range cfg.Images {
		reg.images[img.Name] = img
	}
	for layer, tokens := range cfg.LayerMap {
		table := make(map[TileToken]TileRef, len(tokens))
		for token, ref := range tokens {
			table[token] = ref
		}
		reg.layers[layer] = table
	}
	for id, facings := range cfg.Characters {
		table := make(map[Facing]TileRef, len(facings))
		for facing, ref := range facings {
			table[facing] = ref
		}
		reg.characters[id] = table
	}
	reg.idx = buildIndex(reg.order, reg.layers, reg.characters)
	return reg, nil
}

// Returns a registry sharing this one's tables whose resolved regions carry
// images from src. The receiver is unchanged.
func (r *Registry) WithImages(src ImageSource) *Registry {
	view := *r
	view.source = src
	return &view
}

// Images returns the declared images in declaration order.
func (r *Registry) Images() []ImageDescriptor {
	ret := make([]ImageDescriptor, len(r.order))
	copy(ret, r.order)
	return ret
}

func (r *Registry) Image(name ImageName) (ImageDescriptor, bool) {
	img, ok := r.images[name]
	return img, ok
}

func (r *Registry) ResolveTile(layer LayerName, token TileToken) (TileRegion, error) {
	tokens, ok := r.layers[layer]
	if !ok {
		return TileRegion{}, &LookupError{Kind: UnknownLayer, Key: string(layer)}
	}
	ref, ok := tokens[token]
	if !ok {
		return TileRegion{}, &LookupError{Kind: UnknownToken, Key: string(token), Scope: string(layer)}
	}
	return r.region(ref)
}

// Mirrors ResolveTile over the character table. A facing is only valid for
// the characters that declare it.
func (r *Registry) ResolveCharacter(id CharacterID, facing Facing) (TileRegion, error) {
	facings, ok := r.characters[id]
	if !ok {
		return TileRegion{}, &LookupError{Kind: UnknownCharacter, Key: string(id)}
	}
	ref, ok := facings[facing]
	if !ok {
		return TileRegion{}, &LookupError{Kind: UnknownFacing, Key: string(facing), Scope: string(id)}
	}
	return r.region(ref)
}

func (r *Registry) region(ref TileRef) (TileRegion, error) {
	img, ok := r.images[ref.Image]
	if !ok {
		// Validate rules this out; reaching it means the tables were
		// built from an unvalidated config.
		return TileRegion{}, &LookupError{Kind: UnknownImage, Key: string(ref.Image)}
	}
	region := TileRegion{
		ImageRef:  img.Name,
		SrcX:      ref.Col * img.GridWidth,
		SrcY:      ref.Row * img.GridHeight,
		SrcWidth:  img.GridWidth,
		SrcHeight: img.GridHeight,
	}
	if r.source != nil {
		if handle, ok := r.source.GetImage(img.Name); ok {
			region.Image = handle
		}
	}
	return region, nil
}

func (r *Registry) ImageNames() []ImageName {
	return keys(r.idx.images)
}

func (r *Registry) Layers() []LayerName {
	return keys(r.idx.layers)
}

func (r *Registry) Tokens(layer LayerName) ([]TileToken, error) {
	tree, ok := r.idx.layers.Get(layer)
	if !ok {
		return nil, &LookupError{Kind: UnknownLayer, Key: string(layer)}
	}
	return keys(tree), nil
}

func (r *Registry) Characters() []CharacterID {
	return keys(r.idx.characters)
}

func (r *Registry) Facings(id CharacterID) ([]Facing, error) {
	tree, ok := r.idx.characters.Get(id)
	if !ok {
		return nil, &LookupError{Kind: UnknownCharacter, Key: string(id)}
	}
	return keys(tree), nil
}
