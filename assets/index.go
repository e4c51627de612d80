package assets

import (
	g "github.com/zyedidia/generic"
	"github.com/zyedidia/generic/avl"
)

// Ordered views of the registry's tables, for listing. Lookups go through the
// hash maps on Registry; these trees only exist so that listings come out
// sorted without re-sorting on every call.
type index struct {
	images     *avl.Tree[ImageName, int]
	layers     *avl.Tree[LayerName, *avl.Tree[TileToken, struct{}]]
	characters *avl.Tree[CharacterID, *avl.Tree[Facing, struct{}]]
}

func buildIndex(images []ImageDescriptor, layers LayerMap, characters CharacterMap) *index {
	idx := &index{
		images:     avl.New[ImageName, int](g.Less[ImageName]),
		layers:     avl.New[LayerName, *avl.Tree[TileToken, struct{}]](g.Less[LayerName]),
		characters: avl.New[CharacterID, *avl.Tree[Facing, struct{}]](g.Less[CharacterID]),
	}
	for i, img := range images {
		idx.images.Put(img.Name, i)
	}
	for layer, tokens := range layers {
		tree := avl.New[TileToken, struct{}](g.Less[TileToken])
		for token := range tokens {
			tree.Put(token, struct{}{})
		}
		idx.layers.Put(layer, tree)
	}
	for id, facings := range characters {
		tree := avl.New[Facing, struct{}](g.Less[Facing])
		for facing := range facings {
			tree.Put(facing, struct{}{})
		}
		idx.characters.Put(id, tree)
	}
	return idx
}

func keys[K, V any](tree *avl.Tree[K, V]) []K {
	ret := make([]K, 0, tree.Size())
	tree.Each(func(key K, _ V) {
		ret = append(ret, key)
	})
	return ret
}
