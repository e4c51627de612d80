package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/MobRulesGames/mapasset/assets"
	"github.com/MobRulesGames/mapasset/base"
	"github.com/MobRulesGames/mapasset/logging"
)

type FmterType int

const (
	IgnoreFmter FmterType = iota
	JsonFmter
	LuaFmter
)

var extensionToFmter = map[string]FmterType{
	"":      IgnoreFmter,
	".bmp":  IgnoreFmter,
	".gif":  IgnoreFmter,
	".jpeg": IgnoreFmter,
	".jpg":  IgnoreFmter,
	".log":  IgnoreFmter,
	".png":  IgnoreFmter,
	".webp": IgnoreFmter,

	".json": JsonFmter,
	".lua":  LuaFmter,
}

func getCheckFlag(args []string, flagname string) ([]string, bool) {
	for idx, arg := range args {
		if arg == flagname {
			rest := append([]string{}, args[:idx]...)
			return append(rest, args[idx+1:]...), true
		}
	}
	return args, false
}

// Returns an error if something went wrong. Returns true if the formatter
// suggests/has-applied changes.
type Fmter func(string) (bool, error)

func nopfmter(string) (bool, error) {
	return false, nil
}

// An asset config is any json document with both an "images" and a
// "layerMap" key at the top level.
func isAssetConfig(v any) bool {
	doc, ok := v.(map[string]any)
	if !ok {
		return false
	}
	_, hasImages := doc["images"]
	_, hasLayerMap := doc["layerMap"]
	return hasImages && hasLayerMap
}

func jsonfmt(readOnly bool) Fmter {
	return func(path string) (bool, error) {
		f, err := os.Open(path)
		if err != nil {
			return false, fmt.Errorf("couldn't os.Open %q: %w", path, err)
		}
		defer f.Close()

		contents, err := io.ReadAll(f)
		if err != nil {
			return false, fmt.Errorf("couldn't io.ReadAll %q: %w", path, err)
		}

		var v any
		if err := json.Unmarshal(contents, &v); err != nil {
			return false, fmt.Errorf("couldn't json.Unmarshal %q: %w", path, err)
		}
		if isAssetConfig(v) {
			if _, err := assets.ParseConfig(contents); err != nil {
				return false, fmt.Errorf("invalid asset config %q: %w", path, err)
			}
		}

		formatted, err := json.MarshalIndent(v, "", "    ")
		if err != nil {
			return false, fmt.Errorf("couldn't json.MarshalIndent %q: %w", path, err)
		}
		// make sure there's a trailing newline
		formatted = append(formatted, '\n')

		diff := !bytes.Equal(contents, formatted)
		if readOnly || !diff {
			// If we shouldn't change anything or if there's nothing to change, we're
			// done.
			return diff, nil
		}

		// Otherwise, rewrite the input file with the indented version.
		if err := base.SaveJson(path, v); err != nil {
			return diff, fmt.Errorf("couldn't rewrite %q: %w", path, err)
		}
		return diff, nil
	}
}

func luafmt(readOnly bool) Fmter {
	return func(path string) (bool, error) {
		args := []string{}
		if readOnly {
			args = append(args, "--check")
		}
		args = append(args, path)

		cmd := exec.Command("stylua", args...)
		err := cmd.Run()

		// We passed '--check' and got a non-zero return so fmt it!
		if readOnly && err != nil {
			return true, nil
		}

		return false, err
	}
}

func getfmter(tp FmterType, readOnly bool) Fmter {
	switch tp {
	case IgnoreFmter:
		return nopfmter
	case JsonFmter:
		return jsonfmt(readOnly)
	case LuaFmter:
		return luafmt(readOnly)
	default:
		panic(fmt.Errorf("unknown FmterType: %v", tp))
	}
}

// like 'go fmt' but for things under 'data/'; asset configs are validated
// along the way. Directories are walked recursively.
func main() {
	args, readOnly := getCheckFlag(os.Args[1:], "--check")

	ok := true
	for _, arg := range args {
		ok = processPath(arg, readOnly) && ok
	}

	if !ok {
		os.Exit(1)
	}
}

func processPath(targetPath string, readOnly bool) bool {
	info, err := os.Stat(targetPath)
	if err != nil {
		logging.Error("couldn't stat", "path", targetPath, "err", err)
		return false
	}
	if !info.IsDir() {
		return processFile(targetPath, readOnly)
	}

	ok := true
	err = base.WalkDataFiles(targetPath, "", func(path string) error {
		ok = processFile(path, readOnly) && ok
		return nil
	})
	if err != nil {
		logging.Error("couldn't walk", "path", targetPath, "err", err)
		return false
	}
	return ok
}

func processFile(targetPath string, readOnly bool) bool {
	ext := filepath.Ext(targetPath)
	fmterType, found := extensionToFmter[ext]
	if !found {
		logging.Warn("unknown extension; skipping", "ext", ext, "path", targetPath)
		return true
	}

	if fmterType == IgnoreFmter {
		return true
	}

	// get and run a formatter for that extension
	fmter := getfmter(fmterType, readOnly)

	changeWanted, err := fmter(targetPath)
	if err != nil {
		logging.Error("formatting failed", "path", targetPath, "err", err)
		return false
	}

	if changeWanted {
		fmt.Printf("%s\n", targetPath)

		if readOnly {
			return false
		}
	}

	return true
}
