package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type prefixPathCache struct {
	PrefixPath string `toml:"prefix_path"`
}

func cachePath(rootBinaryDir string) string {
	return filepath.Join(rootBinaryDir, "_cmakex", PrefixPathCacheFile)
}

func readCachedPrefixPath(rootBinaryDir string) (string, error) {
	data, err := os.ReadFile(cachePath(rootBinaryDir))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	var c prefixPathCache
	if _, err := toml.Decode(string(data), &c); err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", PrefixPathCacheFile, err)
	}
	return c.PrefixPath, nil
}

func writeCachedPrefixPath(rootBinaryDir, value string) error {
	dir := filepath.Dir(cachePath(rootBinaryDir))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp := cachePath(rootBinaryDir) + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := toml.NewEncoder(f)
	if err := enc.Encode(prefixPathCache{PrefixPath: value}); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, cachePath(rootBinaryDir))
}
