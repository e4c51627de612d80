package base

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/MobRulesGames/mapasset/logging"
)

var (
	datadir string
	devel   bool
	mutex   sync.RWMutex
)

// Sets the directory that relative Paths and source locators are resolved
// against. Returns the previous value.
func SetDatadir(_datadir string) string {
	mutex.Lock()
	defer mutex.Unlock()
	prev := datadir
	datadir = _datadir
	return prev
}

func GetDataDir() string {
	mutex.RLock()
	defer mutex.RUnlock()
	return datadir
}

// In devel mode paths are checked for casing mistakes that would only show up
// on case-sensitive filesystems.
func SetDevel(on bool) {
	mutex.Lock()
	defer mutex.Unlock()
	devel = on
}

func IsDevel() bool {
	mutex.RLock()
	defer mutex.RUnlock()
	return devel
}

// Returns target relative to base if possible, otherwise target unchanged.
func TryRelative(base, target string) string {
	if base == "" {
		return target
	}
	rel, err := filepath.Rel(base, target)
	if err != nil || strings.HasPrefix(rel, "..") {
		return target
	}
	return rel
}

// A Path is a string that is intended to store a path.  When it is encoded
// with json it will convert itself to a relative path relative to datadir.
// When it is decoded from json it will convert itself to an absolute path
// based on datadir.
type Path string

func (p Path) String() string {
	return string(p)
}

// Relative form of the path, as it would be written to json.
func (p Path) Rel() string {
	return filepath.ToSlash(TryRelative(GetDataDir(), string(p)))
}

func (p Path) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Rel())
}

func (p *Path) UnmarshalJSON(data []byte) error {
	var rel string
	if err := json.Unmarshal(data, &rel); err != nil {
		return fmt.Errorf("couldn't decode path: %w", err)
	}
	if filepath.IsAbs(rel) {
		*p = Path(rel)
		return nil
	}
	*p = Path(filepath.Join(GetDataDir(), filepath.FromSlash(rel)))
	return nil
}

func CheckPathCasing(path string) {
	if !IsDevel() {
		return
	}
	base := GetDataDir()
	rel, err := filepath.Rel(base, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	parts := strings.Split(rel, string(filepath.Separator))
	running := base
	for _, part := range parts {
		names, err := readDirNames(running)
		if err != nil {
			logging.Error("couldn't list directory", "path", running, "err", err)
			return
		}
		found := false
		for _, name := range names {
			if name == part {
				found = true
				break
			}
		}
		if !found {
			final := filepath.Join(running, part)
			if _, err := os.Stat(final); err != nil {
				logging.Error("os.Stat(final) failed", "final", final, "err", err)
				return
			}
			logging.Error("bad casing", "given", running, "should-end-with", part)
			return
		}
		running = filepath.Join(running, part)
	}
}

func readDirNames(dir string) ([]string, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Readdirnames(-1)
}

// Reads the whole file at path, checking its casing first in devel mode.
func LoadBytes(path string) ([]byte, error) {
	CheckPathCasing(path)
	return os.ReadFile(path)
}

func SaveJson(path string, source interface{}) error {
	data, err := json.MarshalIndent(source, "", "    ")
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(data, '\n'))
	return err
}
