package report

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "report.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndLatest(t *testing.T) {
	s := openStore(t)
	if _, err := s.Latest(); !errors.Is(err, ErrNoRuns) {
		t.Fatalf("empty store: err = %v, want ErrNoRuns", err)
	}

	stats := map[string]int{"objects": 12}
	outputs := []Output{
		{Target: "packed", File: "duk_builtins.c", Bytes: 100},
		{Target: "literal", Order: "little", File: "duk_rom_builtins.c", Bytes: 900},
	}
	id, err := s.Record("builtins.yaml", stats, outputs)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	r, err := s.Latest()
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if r.ID != id || r.Source != "builtins.yaml" {
		t.Errorf("run = %+v", r)
	}
	var back map[string]int
	if err := json.Unmarshal(r.Stats, &back); err != nil || back["objects"] != 12 {
		t.Errorf("stats = %s, %v", r.Stats, err)
	}
	if len(r.Outputs) != 2 || r.Outputs[1].Order != "little" || r.Outputs[1].Bytes != 900 {
		t.Errorf("outputs = %+v", r.Outputs)
	}
}

func TestSizeDelta(t *testing.T) {
	s := openStore(t)
	if _, ok, err := s.SizeDelta("duk_builtins.c"); err != nil || ok {
		t.Fatalf("no runs: ok=%v err=%v", ok, err)
	}
	for _, n := range []int{100, 140} {
		if _, err := s.Record("b.yaml", nil, []Output{{Target: "packed", File: "duk_builtins.c", Bytes: n}}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	d, ok, err := s.SizeDelta("duk_builtins.c")
	if err != nil || !ok || d != 40 {
		t.Errorf("delta = %d, %v, %v; want 40", d, ok, err)
	}
}
