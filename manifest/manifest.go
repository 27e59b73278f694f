// Package manifest handles builtingen.toml generator configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/chazu/builtingen/graph"
	"github.com/chazu/builtingen/meta"
)

// FileName is the manifest file looked up in a project directory.
const FileName = "builtingen.toml"

// Manifest represents a builtingen.toml configuration.
type Manifest struct {
	Input Input `toml:"input"`
	// Options is the active configuration bag; options not listed are
	// unknown.
	Options map[string]bool `toml:"options"`
	Profile meta.Profile    `toml:"profile"`
	Output  Output          `toml:"output"`

	// Dir is the directory containing the builtingen.toml file (set at load time).
	Dir string `toml:"-"`
}

// Input configures the metadata documents.
type Input struct {
	Base     string   `toml:"base"`
	Overlays []string `toml:"overlays"`
	// SkipSchema disables schema validation of the metadata files.
	SkipSchema bool `toml:"skip-schema"`
}

// Output configures what is generated and where.
type Output struct {
	Dir        string   `toml:"dir"`
	Targets    []string `toml:"targets"`
	ByteOrders []string `toml:"byte-orders"`
	Lightfuncs bool     `toml:"lightfuncs"`
	// Dump is an optional metadata dump path; the extension selects JSON
	// or CBOR.
	Dump string `toml:"dump"`
	// Report is an optional SQLite database recording each run.
	Report string `toml:"report"`
}

// Load parses a builtingen.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m := Manifest{Profile: meta.DefaultProfile()}
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if m.Output.Dir == "" {
		m.Output.Dir = "build"
	}
	if len(m.Output.Targets) == 0 {
		m.Output.Targets = []string{string(graph.TargetPacked)}
	}
	if len(m.Output.ByteOrders) == 0 {
		for _, o := range meta.ByteOrders {
			m.Output.ByteOrders = append(m.Output.ByteOrders, string(o))
		}
	}

	if m.Input.Base == "" {
		return nil, fmt.Errorf("%s: [input] base is required", path)
	}
	if err := m.Profile.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if _, err := m.TargetList(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if _, err := m.ByteOrderList(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a builtingen.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

func (m *Manifest) path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// BasePath returns the absolute path of the base metadata document.
func (m *Manifest) BasePath() string {
	return m.path(m.Input.Base)
}

// OverlayPaths returns absolute paths for the overlays, in apply order.
func (m *Manifest) OverlayPaths() []string {
	var paths []string
	for _, o := range m.Input.Overlays {
		paths = append(paths, m.path(o))
	}
	return paths
}

// OutputDir returns the absolute output directory.
func (m *Manifest) OutputDir() string {
	return m.path(m.Output.Dir)
}

// DumpPath returns the absolute metadata dump path, or "".
func (m *Manifest) DumpPath() string {
	return m.path(m.Output.Dump)
}

// ReportPath returns the absolute report database path, or "".
func (m *Manifest) ReportPath() string {
	return m.path(m.Output.Report)
}

// MetaOptions returns the configuration bag for present_if filtering.
func (m *Manifest) MetaOptions() meta.Options {
	return meta.Options(m.Options)
}

// TargetList parses the configured targets.
func (m *Manifest) TargetList() ([]graph.Target, error) {
	var out []graph.Target
	for _, s := range m.Output.Targets {
		t, err := graph.ParseTarget(s)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// ByteOrderList parses the configured byte orders.
func (m *Manifest) ByteOrderList() ([]meta.ByteOrder, error) {
	var out []meta.ByteOrder
	for _, s := range m.Output.ByteOrders {
		o, err := meta.ParseByteOrder(s)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}
