package configutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// LocalPath returns the path of the override file that sits next to path,
// "placescout.json5" becomes "placescout.local.json5".
func LocalPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

func decodeFile[T any](path string, out *T) (bool, error) {
	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(contents) == 0 {
		return false, nil
	}
	err = json5.Unmarshal(contents, out)
	if err != nil {
		return false, fmt.Errorf("failed to parse '%s': %w", path, err)
	}
	return true, nil
}

// ReadConfig decodes the json5 document at path and merges the values of
// its local override file on top of it. it returns os.ErrNotExist only when
// neither file exists.
func ReadConfig[T any](path string) (T, error) {
	var out T
	found, err := decodeFile(path, &out)
	if err != nil {
		return out, err
	}

	local := LocalPath(path)
	var override T
	foundLocal, err := decodeFile(local, &override)
	if err != nil {
		return out, err
	}
	if foundLocal {
		err = mergo.Merge(&out, override, mergo.WithOverride)
		if err != nil {
			return out, err
		}
		slog.Info("merging config with local overrides", "local", local)
	}

	if !found && !foundLocal {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadWithDefaults is ReadConfig where every field the files leave at its
// zero value is taken from defaults. a missing config is not an error.
// pointer fields are only taken from defaults when nil, so a *bool set to
// false survives.
func ReadWithDefaults[T any](path string, defaults T) (T, error) {
	out, err := ReadConfig[T](path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return out, err
	}
	err = mergo.Merge(&out, defaults, mergo.WithoutDereference)
	if err != nil {
		return out, err
	}
	return out, nil
}

// ReadRecursively looks for name in dir and then in every parent of dir
// up to the root, the first match is read with ReadConfig.
func ReadRecursively[T any](dir, name string) (T, error) {
	var out T
	current, err := filepath.Abs(dir)
	if err != nil {
		return out, err
	}
	for {
		out, err = ReadConfig[T](filepath.Join(current, name))
		if !errors.Is(err, os.ErrNotExist) {
			return out, err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return out, os.ErrNotExist
		}
		current = parent
	}
}
