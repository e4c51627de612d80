package base

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/MobRulesGames/mapasset/logging"
)

// Walks recursively through dir and calls fn on every file whose name ends
// with suffix. Files and directories beginning with '.' are skipped. An error
// from fn doesn't stop the walk; all of them are returned together.
func WalkDataFiles(dir, suffix string, fn func(path string) error) error {
	logging.Debug("walking directory", "dir", dir, "suffix", suffix)
	var errs []error
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), suffix) {
			return nil
		}
		if err := fn(path); err != nil {
			logging.Error("error processing file", "path", path, "err", err)
			errs = append(errs, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	logging.Debug("completed directory", "dir", dir)
	return errors.Join(errs...)
}
