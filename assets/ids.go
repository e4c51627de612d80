package assets

// Distinct identifier types so that, for example, a CharacterID can't be
// passed where a LayerName is expected.
type (
	ImageName   string
	LayerName   string
	TileToken   string
	CharacterID string
	Facing      string
)

func (n ImageName) String() string   { return string(n) }
func (n LayerName) String() string   { return string(n) }
func (t TileToken) String() string   { return string(t) }
func (c CharacterID) String() string { return string(c) }
func (f Facing) String() string      { return string(f) }
