package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/MobRulesGames/mapasset/assets"
	"github.com/MobRulesGames/mapasset/base"
	"github.com/MobRulesGames/mapasset/cmd/gen"
	"github.com/MobRulesGames/mapasset/globals"
	"github.com/MobRulesGames/mapasset/logging"
	"github.com/MobRulesGames/mapasset/registry"
	"github.com/MobRulesGames/mapasset/script"
	"github.com/MobRulesGames/mapasset/texture"
)

func (e *environment) openOrReport() (*registry.Set, error) {
	set, err := e.open()
	if err != nil {
		e.out.Printf("%s %s\n", e.out.style(colorFailed, "FAIL"), e.cfg.configFile())
		for _, line := range strings.Split(err.Error(), "\n") {
			e.out.Printf("  %s\n", line)
		}
		return nil, errReported
	}
	return set, nil
}

func (e *environment) loadAll(ctx context.Context, set *registry.Set) bool {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.LoadTimeout)
	defer cancel()
	return set.LoadAll(ctx)
}

type checkReport struct {
	Config     base.Path `json:"config"`
	Images     int       `json:"images"`
	Layers     int       `json:"layers"`
	Tokens     int       `json:"tokens"`
	Characters int       `json:"characters"`
}

func runCheck(ctx context.Context, e *environment, args []string) error {
	fs := e.flagSet("check")
	asJSON := fs.Bool("json", false, "print the summary as json")
	if err := fs.Parse(args); err != nil {
		return err
	}

	set, err := e.openOrReport()
	if err != nil {
		return err
	}
	defer set.Close()

	report := checkReport{
		Config:     set.Path,
		Images:     len(set.Assets.Images()),
		Layers:     len(set.Assets.Layers()),
		Characters: len(set.Assets.Characters()),
	}
	for _, layer := range set.Assets.Layers() {
		tokens, err := set.Assets.Tokens(layer)
		if err != nil {
			return err
		}
		report.Tokens += len(tokens)
	}

	if *asJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		e.out.Printf("%s\n", data)
		return nil
	}
	e.out.Printf("%s %s: %d images, %d layers (%d tokens), %d characters\n",
		e.out.style(colorOk, "ok"), report.Config.Rel(), report.Images, report.Layers, report.Tokens, report.Characters)
	return nil
}

type regionReport struct {
	ImageRef  assets.ImageName `json:"imageRef"`
	SrcX      int              `json:"srcX"`
	SrcY      int              `json:"srcY"`
	SrcWidth  int              `json:"srcWidth"`
	SrcHeight int              `json:"srcHeight"`
	Loaded    bool             `json:"loaded"`
}

func runResolve(ctx context.Context, e *environment, args []string) error {
	fs := e.flagSet("resolve")
	load := fs.Bool("load", false, "load images before resolving")
	asJSON := fs.Bool("json", false, "print the region as json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 3 {
		return usagef("expected 'tile <layer> <token>' or 'character <id> <facing>'")
	}

	set, err := e.openOrReport()
	if err != nil {
		return err
	}
	defer set.Close()
	if *load && !e.loadAll(ctx, set) {
		logging.Warn("some images failed to load")
	}

	var region assets.TileRegion
	switch rest[0] {
	case "tile":
		region, err = set.ResolveTile(assets.LayerName(rest[1]), assets.TileToken(rest[2]))
	case "character":
		region, err = set.ResolveCharacter(assets.CharacterID(rest[1]), assets.Facing(rest[2]))
	default:
		return usagef("can't resolve a %q; expected tile or character", rest[0])
	}
	if err != nil {
		if errors.Is(err, assets.ErrLookup) {
			e.out.Printf("%s %v\n", e.out.style(colorFailed, "FAIL"), err)
			return errReported
		}
		return err
	}

	report := regionReport{
		ImageRef:  region.ImageRef,
		SrcX:      region.SrcX,
		SrcY:      region.SrcY,
		SrcWidth:  region.SrcWidth,
		SrcHeight: region.SrcHeight,
		Loaded:    region.Loaded(),
	}
	if *asJSON {
		data, err := json.Marshal(report)
		if err != nil {
			return err
		}
		e.out.Printf("%s\n", data)
		return nil
	}
	loaded := e.out.style(colorPending, "not loaded")
	if report.Loaded {
		loaded = e.out.style(colorOk, "loaded")
	}
	e.out.Printf("%s/%s -> %s (%d,%d) %dx%d [%s]\n",
		rest[1], rest[2], e.out.style(colorName, "%s", report.ImageRef),
		report.SrcX, report.SrcY, report.SrcWidth, report.SrcHeight, loaded)
	return nil
}

func runLoad(ctx context.Context, e *environment, args []string) error {
	fs := e.flagSet("load")
	trace := fs.Bool("trace", false, "log every step of the load")
	if err := fs.Parse(args); err != nil {
		return err
	}

	set, err := e.openOrReport()
	if err != nil {
		return err
	}
	defer set.Close()

	var ok bool
	if *trace {
		logging.TraceBracket(func() {
			ok = e.loadAll(ctx, set)
		})
	} else {
		ok = e.loadAll(ctx, set)
	}
	for _, img := range set.Assets.Images() {
		state, _ := set.Images.State(img.Name)
		switch state {
		case texture.Loaded:
			dx, dy, _ := set.Images.Size(img.Name)
			e.out.Printf("%s %s %dx%d\n", e.out.style(colorOk, "ok    "), e.out.style(colorName, "%s", img.Name), dx, dy)
		case texture.Failed:
			e.out.Printf("%s %s %v\n", e.out.style(colorFailed, "FAIL  "), e.out.style(colorName, "%s", img.Name), set.Images.Err(img.Name))
		default:
			e.out.Printf("%s %s %s\n", e.out.style(colorPending, "%-6s", state), e.out.style(colorName, "%s", img.Name), img.URL)
		}
	}
	if !ok {
		return errReported
	}
	return nil
}

func runList(ctx context.Context, e *environment, args []string) error {
	fs := e.flagSet("list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	set, err := e.openOrReport()
	if err != nil {
		return err
	}
	defer set.Close()
	reg := set.Assets

	e.out.Println("images:")
	for _, img := range reg.Images() {
		e.out.Printf("  %s %s %s\n", e.out.style(colorName, "%s", img.Name), img.URL, e.out.style(colorSubtle, "%dx%d", img.GridWidth, img.GridHeight))
	}
	e.out.Println("layers:")
	for _, layer := range reg.Layers() {
		tokens, err := reg.Tokens(layer)
		if err != nil {
			return err
		}
		names := make([]string, len(tokens))
		for i, token := range tokens {
			names[i] = token.String()
		}
		e.out.Printf("  %s: %s\n", e.out.style(colorName, "%s", layer), strings.Join(names, " "))
	}
	e.out.Println("characters:")
	for _, id := range reg.Characters() {
		facings, err := reg.Facings(id)
		if err != nil {
			return err
		}
		names := make([]string, len(facings))
		for i, facing := range facings {
			names[i] = facing.String()
		}
		e.out.Printf("  %s: %s\n", e.out.style(colorName, "%s", id), strings.Join(names, " "))
	}
	return nil
}

func runWatch(ctx context.Context, e *environment, args []string) error {
	fs := e.flagSet("watch")
	if err := fs.Parse(args); err != nil {
		return err
	}

	set, err := e.openOrReport()
	if err != nil {
		return err
	}
	e.loadAll(ctx, set)
	publish(set)
	defer func() {
		if last := globals.SetAssets(nil); last != nil {
			last.Close()
		}
	}()
	e.out.Printf("%s watching %s\n", e.out.style(colorOk, "ok"), e.cfg.configFile())

	return registry.Watch(ctx, e.cfg.configFile(), e.fetcher(), func(next *registry.Set) {
		e.loadAll(ctx, next)
		publish(next)
		e.out.Printf("%s reloaded %s\n", e.out.style(colorOk, "ok"), next.Path.Rel())
	}, texture.WithWorkers(e.cfg.Workers))
}

// Makes set the current asset set and releases the one it replaces.
func publish(set *registry.Set) {
	if prev := globals.SetAssets(set); prev != nil {
		prev.Close()
	}
}

func runScript(ctx context.Context, e *environment, args []string) error {
	fs := e.flagSet("script")
	load := fs.Bool("load", false, "load images before running the script")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usagef("expected exactly one script file")
	}
	path := fs.Arg(0)
	base.CheckPathCasing(path)
	prog, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("couldn't read script: %w", err)
	}

	set, err := e.openOrReport()
	if err != nil {
		return err
	}
	if *load && !e.loadAll(ctx, set) {
		logging.Warn("some images failed to load")
	}
	prev := globals.SetAssets(set)
	defer func() {
		globals.SetAssets(prev)
		set.Close()
	}()

	L := script.NewState(func() script.Lookup {
		return globals.Assets()
	})
	defer L.Close()
	if err := L.DoString(string(prog)); err != nil {
		return fmt.Errorf("script %q failed: %w", path, err)
	}
	return nil
}

func runVersion(ctx context.Context, e *environment, args []string) error {
	e.out.Println(gen.Version())
	return nil
}
