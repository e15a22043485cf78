package gridmap

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultFile is where the map is kept when no path is configured.
const DefaultFile = "room_map.json"

// Load reads a grid from path. A missing file is the first-run case and
// yields a fresh zero grid of the given size with a nil error.
func Load(path string, width, height int) (*Grid, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(width, height), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read map file: %w", err)
	}

	g := new(Grid)
	if err := json.Unmarshal(data, g); err != nil {
		return nil, fmt.Errorf("parse map file: %w", err)
	}
	return g, nil
}

// Save writes g to path, replacing any existing file. The data goes to a
// temporary file in the same directory first and is renamed into place.
func Save(g *Grid, path string) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode map: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp map file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write map file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close map file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod map file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace map file: %w", err)
	}
	return nil
}
