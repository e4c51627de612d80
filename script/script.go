// Package script exposes tile and character resolution to Lua map scripts
// through a global Assets table:
//
//	Assets.Tile(layer, token)       -> region | nil, err
//	Assets.Character(id, facing)    -> region | nil, err
//	Assets.Layers()                 -> { layer, ... }
//
// A region is a table with imageRef, srcX, srcY, srcWidth, srcHeight and
// loaded fields.
package script

import (
	"fmt"
	"strings"

	"github.com/MobRulesGames/golua/lua"
	"github.com/MobRulesGames/mapasset/assets"
	"github.com/MobRulesGames/mapasset/logging"
)

// Lookup is everything a script can ask about the current assets.
type Lookup interface {
	assets.TileResolver
	assets.CharacterResolver
	Layers() []assets.LayerName
}

// Instructions a single DoString may run before it is aborted.
const executionLimit = 25000

// Makes a state with the standard libraries and the Assets table. current
// is called on every lookup, so scripts see whichever assets are current at
// the time.
func NewState(current func() Lookup) *lua.State {
	L := lua.NewState()
	L.OpenLibs()
	L.SetExecutionLimit(executionLimit)
	Bind(L, current)
	registerUtilityFunctions(L)
	return L
}

func Bind(L *lua.State, current func() Lookup) {
	L.NewTable()
	pushFunctionTable(L, functionTable{
		"Tile":      tileFunc(current),
		"Character": characterFunc(current),
		"Layers":    layersFunc(current),
	})
	L.SetGlobal("Assets")
}

type functionTable map[string]lua.LuaGoFunction

// Sets each function as a field of the table on top of the stack.
func pushFunctionTable(L *lua.State, table functionTable) {
	for name, fn := range table {
		L.PushString(name)
		L.PushGoFunction(fn)
		L.SetTable(-3)
	}
}

// Checks that the call got exactly len(want) string arguments. On failure it
// pushes nil and a message, ready to be returned to the script.
func checkStringParams(L *lua.State, name string, want ...string) bool {
	if L.GetTop() != len(want) {
		pushFailure(L, fmt.Errorf("%s expects %d arguments (%s), got %d", name, len(want), strings.Join(want, ", "), L.GetTop()))
		return false
	}
	for i := range want {
		if !L.IsString(i + 1) {
			pushFailure(L, fmt.Errorf("%s: argument %d (%s) must be a string", name, i+1, want[i]))
			return false
		}
	}
	return true
}

func pushFailure(L *lua.State, err error) {
	logging.Debug("script lookup failed", "err", err)
	L.PushNil()
	L.PushString(err.Error())
}

func pushRegion(L *lua.State, region assets.TileRegion) {
	L.NewTable()
	L.PushString("imageRef")
	L.PushString(string(region.ImageRef))
	L.SetTable(-3)
	for _, field := range []struct {
		key string
		val int
	}{
		{"srcX", region.SrcX},
		{"srcY", region.SrcY},
		{"srcWidth", region.SrcWidth},
		{"srcHeight", region.SrcHeight},
	} {
		L.PushString(field.key)
		L.PushInteger(int64(field.val))
		L.SetTable(-3)
	}
	L.PushString("loaded")
	L.PushBoolean(region.Loaded())
	L.SetTable(-3)
}

func tileFunc(current func() Lookup) lua.LuaGoFunction {
	return func(L *lua.State) int {
		if !checkStringParams(L, "Assets.Tile", "layer", "token") {
			return 2
		}
		layer := assets.LayerName(L.ToString(1))
		token := assets.TileToken(L.ToString(2))
		region, err := current().ResolveTile(layer, token)
		if err != nil {
			pushFailure(L, err)
			return 2
		}
		pushRegion(L, region)
		return 1
	}
}

func characterFunc(current func() Lookup) lua.LuaGoFunction {
	return func(L *lua.State) int {
		if !checkStringParams(L, "Assets.Character", "id", "facing") {
			return 2
		}
		id := assets.CharacterID(L.ToString(1))
		facing := assets.Facing(L.ToString(2))
		region, err := current().ResolveCharacter(id, facing)
		if err != nil {
			pushFailure(L, err)
			return 2
		}
		pushRegion(L, region)
		return 1
	}
}

func layersFunc(current func() Lookup) lua.LuaGoFunction {
	return func(L *lua.State) int {
		L.NewTable()
		for i, layer := range current().Layers() {
			L.PushInteger(int64(i) + 1)
			L.PushString(string(layer))
			L.SetTable(-3)
		}
		return 1
	}
}

func stringifyParam(L *lua.State, index int) string {
	switch {
	case L.IsNil(index):
		return "nil"
	case L.IsBoolean(index):
		return fmt.Sprint(L.ToBoolean(index))
	case L.IsString(index):
		return L.ToString(index)
	}
	return L.LTypename(index)
}

func registerUtilityFunctions(L *lua.State) {
	L.Register("print", func(L *lua.State) int {
		n := L.GetTop()
		parts := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			parts = append(parts, stringifyParam(L, i))
		}
		logging.Info("script print", "msg", strings.Join(parts, " "))
		return 0
	})
}
