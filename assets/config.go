package assets

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/MobRulesGames/mapasset/base"
	"github.com/zyedidia/generic/mapset"
)

// ImageDescriptor is one spritesheet and the pixel size of a single grid cell
// within it.
type ImageDescriptor struct {
	Name       ImageName `json:"name"`
	URL        string    `json:"url"`
	GridWidth  int       `json:"gridWidth"`
	GridHeight int       `json:"gridHeight"`
}

// TileRef names one grid cell of a declared image. In json it is written as
// the array [imageName, col, row].
type TileRef struct {
	Image ImageName
	Col   int
	Row   int
}

func (r TileRef) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{r.Image, r.Col, r.Row})
}

func (r *TileRef) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("tile ref must be [image, col, row]: %w", err)
	}
	if len(parts) != 3 {
		return fmt.Errorf("tile ref must be [image, col, row], got %d elements", len(parts))
	}
	var ref TileRef
	if err := json.Unmarshal(parts[0], &ref.Image); err != nil {
		return fmt.Errorf("tile ref image: %w", err)
	}
	if err := json.Unmarshal(parts[1], &ref.Col); err != nil {
		return fmt.Errorf("tile ref column: %w", err)
	}
	if err := json.Unmarshal(parts[2], &ref.Row); err != nil {
		return fmt.Errorf("tile ref row: %w", err)
	}
	*r = ref
	return nil
}

type LayerMap map[LayerName]map[TileToken]TileRef

type CharacterMap map[CharacterID]map[Facing]TileRef

// Config is the declarative asset document. It is never modified once
// parsed.
type Config struct {
	Images     []ImageDescriptor `json:"images"`
	LayerMap   LayerMap          `json:"layerMap"`
	Characters CharacterMap      `json:"characters,omitempty"`
}

// Reads and validates the asset config at path.
func LoadConfig(path string) (*Config, error) {
	data, err := base.LoadBytes(path)
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("couldn't read %q: %w", path, err)}
	}
	return ParseConfig(data)
}

// Decodes and validates an asset config document. Tile refs are decoded one
// at a time so that a malformed entry is reported with its location.
func ParseConfig(data []byte) (*Config, error) {
	var raw struct {
		Images     []ImageDescriptor                           `json:"images"`
		LayerMap   map[LayerName]map[TileToken]json.RawMessage `json:"layerMap"`
		Characters map[CharacterID]map[Facing]json.RawMessage  `json:"characters"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("couldn't decode json: %w", err)}
	}
	if raw.Images == nil {
		return nil, configErrorf("images", "missing required field")
	}
	if raw.LayerMap == nil {
		return nil, configErrorf("layerMap", "missing required field")
	}

	var problems []error
	cfg := &Config{
		Images:     raw.Images,
		LayerMap:   make(LayerMap, len(raw.LayerMap)),
		Characters: make(CharacterMap, len(raw.Characters)),
	}
	for _, layer := range sortedKeys(raw.LayerMap) {
		tokens := raw.LayerMap[layer]
		table := make(map[TileToken]TileRef, len(tokens))
		for _, token := range sortedKeys(tokens) {
			var ref TileRef
			if err := json.Unmarshal(tokens[token], &ref); err != nil {
				problems = append(problems, &ConfigError{Path: fmt.Sprintf("layerMap.%s.%s", layer, token), Err: err})
				continue
			}
			table[token] = ref
		}
		cfg.LayerMap[layer] = table
	}
	for _, id := range sortedKeys(raw.Characters) {
		facings := raw.Characters[id]
		table := make(map[Facing]TileRef, len(facings))
		for _, facing := range sortedKeys(facings) {
			var ref TileRef
			if err := json.Unmarshal(facings[facing], &ref); err != nil {
				problems = append(problems, &ConfigError{Path: fmt.Sprintf("characters.%s.%s", id, facing), Err: err})
				continue
			}
			table[facing] = ref
		}
		cfg.Characters[id] = table
	}
	if len(problems) > 0 {
		return nil, joinProblems(problems)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Checks every structural invariant of the document: required fields, unique
// image names, positive grid sizes, and that every tile ref points at a
// declared image with non-negative coordinates whose pixel rectangle fits in
// an int. The result is always a *ConfigError; several problems are joined
// under one with an empty Path.
func (c *Config) Validate() error {
	if c == nil {
		return &ConfigError{Err: errors.New("no asset config supplied")}
	}
	if c.Images == nil {
		return configErrorf("images", "missing required field")
	}
	if c.LayerMap == nil {
		return configErrorf("layerMap", "missing required field")
	}

	var problems []error
	declared := mapset.New[ImageName]()
	descs := make(map[ImageName]ImageDescriptor, len(c.Images))
	for i, img := range c.Images {
		path := fmt.Sprintf("images[%d]", i)
		switch {
		case img.Name == "":
			problems = append(problems, configErrorf(path+".name", "image name must not be empty"))
		case declared.Has(img.Name):
			problems = append(problems, configErrorf(path+".name", "duplicate image name %q", img.Name))
		default:
			declared.Put(img.Name)
			descs[img.Name] = img
		}
		if img.GridWidth <= 0 {
			problems = append(problems, configErrorf(path+".gridWidth", "must be positive, got %d", img.GridWidth))
		}
		if img.GridHeight <= 0 {
			problems = append(problems, configErrorf(path+".gridHeight", "must be positive, got %d", img.GridHeight))
		}
	}

	for _, layer := range sortedKeys(c.LayerMap) {
		tokens := c.LayerMap[layer]
		for _, token := range sortedKeys(tokens) {
			path := fmt.Sprintf("layerMap.%s.%s", layer, token)
			problems = append(problems, checkRef(path, tokens[token], descs)...)
		}
	}
	for _, id := range sortedKeys(c.Characters) {
		facings := c.Characters[id]
		for _, facing := range sortedKeys(facings) {
			path := fmt.Sprintf("characters.%s.%s", id, facing)
			problems = append(problems, checkRef(path, facings[facing], descs)...)
		}
	}

	return joinProblems(problems)
}

func joinProblems(problems []error) error {
	switch len(problems) {
	case 0:
		return nil
	case 1:
		return problems[0]
	}
	return &ConfigError{Err: errors.Join(problems...)}
}

func checkRef(path string, ref TileRef, descs map[ImageName]ImageDescriptor) []error {
	var problems []error
	img, found := descs[ref.Image]
	if !found {
		problems = append(problems, configErrorf(path, "references undeclared image %q", ref.Image))
	}
	if ref.Col < 0 || ref.Row < 0 {
		problems = append(problems, configErrorf(path, "grid position (%d, %d) must be non-negative", ref.Col, ref.Row))
		return problems
	}
	if !found {
		return problems
	}
	// The far edge, (col+1)*gridWidth, has to fit as well.
	if img.GridWidth > 0 && ref.Col > math.MaxInt/img.GridWidth-1 {
		problems = append(problems, configErrorf(path, "column %d is out of range for gridWidth %d", ref.Col, img.GridWidth))
	}
	if img.GridHeight > 0 && ref.Row > math.MaxInt/img.GridHeight-1 {
		problems = append(problems, configErrorf(path, "row %d is out of range for gridHeight %d", ref.Row, img.GridHeight))
	}
	return problems
}

func sortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	return slices.Sorted(maps.Keys(m))
}
