package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `{
  "images": [
    {"name": "base", "url": "/static/base.png", "gridWidth": 16, "gridHeight": 16},
    {"name": "characters", "url": "/static/characters.png", "gridWidth": 32, "gridHeight": 32}
  ],
  "layerMap": {
    "ground": {"ground1": ["base", 3, 0], "ground2": ["base", 2, 5]},
    "object": {"bar0": ["base", 1, 4]}
  },
  "characters": {
    "char1": {"L": ["characters", 2, 0], "R": ["characters", 2, 1]}
  }
}
`

func writeTestPNG(t *testing.T, path string, dx, dy int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, dx, dy))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

// Lays out a datadir holding testConfig and, if withImages, both images.
func givenDatadir(t *testing.T, withImages bool) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets.json"), []byte(testConfig), 0o644))
	if withImages {
		writeTestPNG(t, filepath.Join(dir, "static", "base.png"), 64, 96)
		writeTestPNG(t, filepath.Join(dir, "static", "characters.png"), 96, 64)
	}
	return dir
}

func clearEnv(t *testing.T) {
	for _, name := range []string{
		"MAPASSET_DATADIR", "MAPASSET_CONFIG", "MAPASSET_BASE_URL", "MAPASSET_WORKERS",
		"MAPASSET_LOG_LEVEL", "MAPASSET_DEVEL", "MAPASSET_LOAD_TIMEOUT",
	} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

type result struct {
	code   int
	stdout string
	stderr string
}

func runArgs(args ...string) result {
	var stdout, stderr bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	code := run(ctx, append([]string{"mapasset"}, args...), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func TestParseConfigReadsEnvAndFlags(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAPASSET_DATADIR", "/env/data")
	t.Setenv("MAPASSET_WORKERS", "7")
	t.Setenv("MAPASSET_LOAD_TIMEOUT", "2s")

	var stderr bytes.Buffer
	cfg, rest, err := parseConfig([]string{"-workers", "2", "-config", "world.json", "check", "-json"}, &stderr)
	require.NoError(t, err)

	assert.Equal(t, "/env/data", cfg.Datadir)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "world.json", cfg.ConfigPath)
	assert.Equal(t, 2*time.Second, cfg.LoadTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, []string{"check", "-json"}, rest)
	assert.Equal(t, filepath.Join("/env/data", "world.json"), cfg.configFile())
}

func TestParseConfigRejectsBadWorkers(t *testing.T) {
	clearEnv(t)
	var stderr bytes.Buffer
	_, _, err := parseConfig([]string{"-workers", "0", "check"}, &stderr)
	assert.Error(t, err)

	t.Setenv("MAPASSET_WORKERS", "lots")
	_, _, err = parseConfig([]string{"check"}, &stderr)
	assert.Error(t, err)
}

func TestAbsoluteConfigPathIgnoresDatadir(t *testing.T) {
	cfg := Config{Datadir: "/data", ConfigPath: "/elsewhere/assets.json"}
	assert.Equal(t, "/elsewhere/assets.json", cfg.configFile())
}

func TestCommands(t *testing.T) {
	clearEnv(t)

	Convey("mapasset", t, func() {
		Convey("with a complete datadir", func() {
			dir := givenDatadir(t, true)

			Convey("check summarizes the config", func() {
				res := runArgs("-datadir", dir, "check")
				So(res.code, ShouldEqual, 0)
				So(res.stdout, ShouldContainSubstring, "assets.json: 2 images, 2 layers (3 tokens), 1 characters")
			})

			Convey("check -json reports the config path relative to the datadir", func() {
				res := runArgs("-datadir", dir, "check", "-json")
				So(res.code, ShouldEqual, 0)

				var report map[string]interface{}
				So(json.Unmarshal([]byte(res.stdout), &report), ShouldBeNil)
				So(report["config"], ShouldEqual, "assets.json")
				So(report["tokens"], ShouldEqual, 3.0)
			})

			Convey("resolve tile prints the region", func() {
				res := runArgs("-datadir", dir, "resolve", "-json", "tile", "ground", "ground1")
				So(res.code, ShouldEqual, 0)

				var region regionReport
				So(json.Unmarshal([]byte(res.stdout), &region), ShouldBeNil)
				So(region, ShouldResemble, regionReport{
					ImageRef:  "base",
					SrcX:      48,
					SrcY:      0,
					SrcWidth:  16,
					SrcHeight: 16,
				})
			})

			Convey("resolve -load attaches the image", func() {
				res := runArgs("-datadir", dir, "resolve", "-load", "-json", "character", "char1", "R")
				So(res.code, ShouldEqual, 0)

				var region regionReport
				So(json.Unmarshal([]byte(res.stdout), &region), ShouldBeNil)
				So(region.SrcX, ShouldEqual, 64)
				So(region.SrcY, ShouldEqual, 32)
				So(region.Loaded, ShouldBeTrue)
			})

			Convey("resolve fails on unknown identifiers", func() {
				res := runArgs("-datadir", dir, "resolve", "tile", "nonexistent_layer", "x")
				So(res.code, ShouldEqual, 1)
				So(res.stdout, ShouldContainSubstring, `unknown layer "nonexistent_layer"`)
			})

			Convey("resolve wants three arguments", func() {
				res := runArgs("-datadir", dir, "resolve", "tile", "ground")
				So(res.code, ShouldEqual, 2)
			})

			Convey("load loads everything", func() {
				res := runArgs("-datadir", dir, "-workers", "1", "load")
				So(res.code, ShouldEqual, 0)
				So(res.stdout, ShouldContainSubstring, "base 64x96")
				So(res.stdout, ShouldContainSubstring, "characters 96x64")
			})

			Convey("load -trace logs each request", func() {
				res := runArgs("-datadir", dir, "load", "-trace")
				So(res.code, ShouldEqual, 0)
				So(res.stderr, ShouldContainSubstring, "handleLoadRequest")
			})

			Convey("load without -trace stays quiet", func() {
				res := runArgs("-datadir", dir, "load")
				So(res.code, ShouldEqual, 0)
				So(res.stderr, ShouldNotContainSubstring, "handleLoadRequest")
			})

			Convey("the log level applies to the whole command", func() {
				scriptPath := filepath.Join(dir, "quiet.lua")
				So(os.WriteFile(scriptPath, []byte(`print("chatter")`), 0o644), ShouldBeNil)

				res := runArgs("-datadir", dir, "-log-level", "warn", "script", scriptPath)
				So(res.code, ShouldEqual, 0)
				So(res.stderr, ShouldNotContainSubstring, "chatter")

				res = runArgs("-datadir", dir, "script", scriptPath)
				So(res.code, ShouldEqual, 0)
				So(res.stderr, ShouldContainSubstring, "chatter")
			})

			Convey("list shows tokens and facings in order", func() {
				res := runArgs("-datadir", dir, "list")
				So(res.code, ShouldEqual, 0)
				So(res.stdout, ShouldContainSubstring, "ground: ground1 ground2")
				So(res.stdout, ShouldContainSubstring, "object: bar0")
				So(res.stdout, ShouldContainSubstring, "char1: L R")
			})

			Convey("script runs lua against the assets", func() {
				scriptPath := filepath.Join(dir, "probe.lua")
				So(os.WriteFile(scriptPath, []byte(`
					local t = Assets.Tile("ground", "ground2")
					print("region", t.imageRef, t.srcX, t.srcY)
				`), 0o644), ShouldBeNil)

				res := runArgs("-datadir", dir, "script", scriptPath)
				So(res.code, ShouldEqual, 0)
				So(res.stderr, ShouldContainSubstring, "region base 32 80")
			})

			Convey("script reports lua errors", func() {
				scriptPath := filepath.Join(dir, "broken.lua")
				So(os.WriteFile(scriptPath, []byte(`this is not lua`), 0o644), ShouldBeNil)

				res := runArgs("-datadir", dir, "script", scriptPath)
				So(res.code, ShouldEqual, 1)
			})
		})

		Convey("with a missing image", func() {
			dir := givenDatadir(t, false)
			writeTestPNG(t, filepath.Join(dir, "static", "base.png"), 64, 96)

			Convey("load reports the failure", func() {
				res := runArgs("-datadir", dir, "load")
				So(res.code, ShouldEqual, 1)
				So(res.stdout, ShouldContainSubstring, "base 64x96")
				So(res.stdout, ShouldContainSubstring, "FAIL")
				So(res.stdout, ShouldContainSubstring, "characters.png")
			})

			Convey("resolve still works", func() {
				res := runArgs("-datadir", dir, "resolve", "-load", "tile", "ground", "ground1")
				So(res.code, ShouldEqual, 0)
				So(res.stdout, ShouldContainSubstring, "ground/ground1 -> base (48,0) 16x16 [loaded]")
			})
		})

		Convey("with an invalid config", func() {
			dir := t.TempDir()
			So(os.WriteFile(filepath.Join(dir, "assets.json"), []byte(`{"images": [], "layerMap": {"g": {"t": ["nope", 0, 0]}}}`), 0o644), ShouldBeNil)

			res := runArgs("-datadir", dir, "check")
			So(res.code, ShouldEqual, 1)
			So(res.stdout, ShouldContainSubstring, "FAIL")
			So(res.stdout, ShouldContainSubstring, "layerMap.g.t")
		})

		Convey("without a command", func() {
			res := runArgs()
			So(res.code, ShouldEqual, 2)
			So(res.stderr, ShouldContainSubstring, "usage")
		})

		Convey("with an unknown command", func() {
			res := runArgs("frobnicate")
			So(res.code, ShouldEqual, 2)
			So(res.stderr, ShouldContainSubstring, `unknown command "frobnicate"`)
		})

		Convey("version prints the build version", func() {
			res := runArgs("version")
			So(res.code, ShouldEqual, 0)
			So(res.stdout, ShouldNotBeEmpty)
		})
	})
}
