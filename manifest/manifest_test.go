package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/builtingen/graph"
	"github.com/chazu/builtingen/meta"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[input]
base = "meta/builtins.yaml"
overlays = ["meta/extra.yaml", "/abs/user.yaml"]

[options]
DUK_USE_ES6_PROXY = false
DUK_USE_SYMBOL_BUILTIN = true

[profile]
strtab_buckets = 128
hash_seed = 12345
keywords = ["if", "do"]
strict_keywords = []

[output]
dir = "out"
targets = ["packed", "literal"]
byte-orders = ["little", "big"]
lightfuncs = true
dump = "out/meta.cbor"
report = "out/report.db"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.BasePath() != filepath.Join(m.Dir, "meta/builtins.yaml") {
		t.Errorf("base = %q", m.BasePath())
	}
	overlays := m.OverlayPaths()
	if len(overlays) != 2 || overlays[1] != "/abs/user.yaml" {
		t.Errorf("overlays = %v", overlays)
	}
	if !m.MetaOptions().KnownFalse("DUK_USE_ES6_PROXY") {
		t.Error("DUK_USE_ES6_PROXY should be known false")
	}
	if m.MetaOptions().KnownFalse("DUK_USE_UNLISTED") {
		t.Error("unlisted options are unknown, not false")
	}
	if m.Profile.StrTableBuckets != 128 || m.Profile.HashSeed != 12345 {
		t.Errorf("profile = %+v", m.Profile)
	}
	if m.Profile.Index8Limit != 256 {
		t.Errorf("index8_limit = %d, want default 256", m.Profile.Index8Limit)
	}
	if len(m.Profile.Keywords) != 2 {
		t.Errorf("keywords = %v", m.Profile.Keywords)
	}

	targets, _ := m.TargetList()
	if len(targets) != 2 || targets[1] != graph.TargetLiteral {
		t.Errorf("targets = %v", targets)
	}
	orders, _ := m.ByteOrderList()
	if len(orders) != 2 || orders[0] != meta.LittleEndian {
		t.Errorf("byte orders = %v", orders)
	}
	if !m.Output.Lightfuncs {
		t.Error("lightfuncs = false, want true")
	}
	if m.DumpPath() != filepath.Join(m.Dir, "out/meta.cbor") {
		t.Errorf("dump = %q", m.DumpPath())
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[input]
base = "builtins.yaml"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.OutputDir() != filepath.Join(m.Dir, "build") {
		t.Errorf("output dir = %q", m.OutputDir())
	}
	if len(m.Output.Targets) != 1 || m.Output.Targets[0] != "packed" {
		t.Errorf("targets = %v, want [packed]", m.Output.Targets)
	}
	if len(m.Output.ByteOrders) != 3 {
		t.Errorf("byte orders = %v, want all three", m.Output.ByteOrders)
	}
	if m.Profile.PtrCompFirst != 0xf800 {
		t.Errorf("ptrcomp_first = %#x", m.Profile.PtrCompFirst)
	}
	if m.DumpPath() != "" || m.ReportPath() != "" {
		t.Error("dump and report are off by default")
	}
}

func TestLoadManifestErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing base", `[output]
dir = "x"`},
		{"bad target", `[input]
base = "b.yaml"
[output]
targets = ["rom"]`},
		{"bad byte order", `[input]
base = "b.yaml"
[output]
byte-orders = ["pdp"]`},
		{"bad profile", `[input]
base = "b.yaml"
[profile]
strtab_buckets = 100`},
		{"bad toml", `[input`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeManifest(t, dir, tt.content)
			if _, err := Load(dir); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[input]
base = "builtins.yaml"
`)

	subdir := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(subdir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("expected to find manifest")
	}
	if m.Input.Base != "builtins.yaml" {
		t.Errorf("base = %q", m.Input.Base)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest")
	}
}
