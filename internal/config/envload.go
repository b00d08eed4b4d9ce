package config

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	loadOnce   sync.Once
	loadedPath string
	loadErr    error
)

// EnsureDotEnv loads the first .env file found from the current working
// directory up to the filesystem root. Subsequent calls are no-ops.
// Variables already set in the environment win over the file.
func EnsureDotEnv() error {
	loadOnce.Do(func() {
		path, err := findDotEnv()
		if err != nil {
			loadErr = err
			zap.S().Debugf("search .env failed: %v", err)
			return
		}
		if path == "" {
			return
		}
		if err := godotenv.Load(path); err != nil {
			loadErr = errors.Wrapf(err, "load %s", path)
			return
		}
		loadedPath = path
	})
	return loadErr
}

// LoadedDotEnv returns the resolved .env path if one was loaded, otherwise "".
func LoadedDotEnv() string {
	return loadedPath
}

func findDotEnv() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(wd, ".env")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(wd)
		if parent == wd {
			return "", nil
		}
		wd = parent
	}
}
