package manifest

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Target is a directory whose matching files are listed in its index.json
type Target struct {
	Dir     string `toml:"dir"`
	Pattern string `toml:"pattern"`
}

// DefaultTargets returns the asset directories of the game tree, in the
// order they are generated.
func DefaultTargets() []Target {
	return []Target{
		{Dir: "src/structure", Pattern: "*.json"},
		{Dir: "src/entity/behaviour", Pattern: "*.yaml"},
		{Dir: "src/entity/trait", Pattern: "*.yaml"},
		{Dir: "src/entity/enemy", Pattern: "*.yaml"},
		{Dir: "src/entity/friend", Pattern: "*.yaml"},
		{Dir: "src/entity/misc", Pattern: "*.yaml"},
		{Dir: "src/particle", Pattern: "*.yaml"},
	}
}

type targetsFile struct {
	Targets []Target `toml:"target"`
}

// LoadTargets decodes a TOML list of [[target]] tables
func LoadTargets(input io.Reader) ([]Target, error) {
	var file targetsFile
	decoder := toml.NewDecoder(input)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&file); err != nil {
		return nil, err
	}

	if len(file.Targets) == 0 {
		return nil, errors.New("no targets defined")
	}
	for i, t := range file.Targets {
		if t.Dir == "" {
			return nil, fmt.Errorf("target %d: dir is required", i+1)
		}
		if err := ValidatePattern(t.Pattern); err != nil {
			return nil, fmt.Errorf("target %d (%s): %w", i+1, t.Dir, err)
		}
	}
	return file.Targets, nil
}

// LoadTargetsFile reads targets from the TOML file at path
func LoadTargetsFile(path string) ([]Target, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open targets file: %w", err)
	}
	defer file.Close()

	targets, err := LoadTargets(file)
	if err != nil {
		return nil, fmt.Errorf("failed to load targets from %s: %w", path, err)
	}
	return targets, nil
}

// Run generates the index of every target under root, in order. It stops
// at the first failure and does not touch the remaining targets. A nil
// logger disables per-target output.
func Run(root string, targets []Target, logger *log.Logger) error {
	for _, t := range targets {
		dir := t.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}

		m, err := generate(dir, t.Pattern)
		if err != nil {
			return fmt.Errorf("generate %s: %w", t.Dir, err)
		}
		if logger != nil {
			logger.Printf("wrote %s (%d files)", filepath.Join(dir, IndexName), len(m.Files))
		}
	}
	return nil
}
