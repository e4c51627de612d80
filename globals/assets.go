package globals

import (
	"fmt"
	"sync/atomic"

	"github.com/MobRulesGames/mapasset/registry"
)

var assets atomic.Pointer[registry.Set]

// Publishes s as the current asset set and returns the one it replaces, if
// any. The caller owns the returned set and should Close it once nothing
// refers to it.
func SetAssets(s *registry.Set) *registry.Set {
	return assets.Swap(s)
}

func Assets() *registry.Set {
	s := assets.Load()
	if s == nil {
		panic(fmt.Errorf("Need to call SetAssets before Assets()"))
	}
	return s
}

// Like Assets but reports false instead of panicking when nothing has been
// published yet.
func TryAssets() (*registry.Set, bool) {
	s := assets.Load()
	return s, s != nil
}
