// Package gen runs the whole generator: it loads the metadata once, then
// prepares and encodes every requested target in parallel and writes the
// outputs only after every variant succeeded.
package gen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/builtingen/csrc"
	"github.com/chazu/builtingen/dump"
	"github.com/chazu/builtingen/graph"
	"github.com/chazu/builtingen/literal"
	"github.com/chazu/builtingen/manifest"
	"github.com/chazu/builtingen/meta"
	"github.com/chazu/builtingen/packed"
	"github.com/chazu/builtingen/report"
	"github.com/chazu/builtingen/schema"
	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"
)

var log = commonlog.GetLogger("builtingen.gen")

// Output file names.
const (
	PackedSource  = "duk_builtins.c"
	PackedHeader  = "duk_builtins.h"
	LiteralSource = "duk_rom_builtins.c"
	LiteralHeader = "duk_rom_builtins.h"
)

// Config is one generator invocation.
type Config struct {
	Base     string
	Overlays []string
	Options  meta.Options
	Profile  meta.Profile

	Targets    []graph.Target
	ByteOrders []meta.ByteOrder
	Lightfuncs bool
	SkipSchema bool

	OutputDir  string
	Dump       string
	Report     string
	Visibility csrc.Visibility
}

// FromManifest builds a config from a loaded manifest.
func FromManifest(m *manifest.Manifest) (Config, error) {
	targets, err := m.TargetList()
	if err != nil {
		return Config{}, err
	}
	orders, err := m.ByteOrderList()
	if err != nil {
		return Config{}, err
	}
	return Config{
		Base:       m.BasePath(),
		Overlays:   m.OverlayPaths(),
		Options:    m.MetaOptions(),
		Profile:    m.Profile,
		Targets:    targets,
		ByteOrders: orders,
		Lightfuncs: m.Output.Lightfuncs,
		SkipSchema: m.Input.SkipSchema,
		OutputDir:  m.OutputDir(),
		Dump:       m.DumpPath(),
		Report:     m.ReportPath(),
	}, nil
}

// Report collects the statistics of a run.
type Report struct {
	Meta    *meta.Stats                    `json:"meta"`
	Graphs  map[graph.Target]*graph.Stats  `json:"graphs"`
	Packed  *PackedReport                  `json:"packed,omitempty"`
	Literal map[meta.ByteOrder]LiteralSize `json:"literal,omitempty"`
	Outputs []report.Output                `json:"outputs"`
}

// PackedReport summarizes the packed encoding.
type PackedReport struct {
	StringBytes int                    `json:"string_bytes"`
	ObjectBytes map[meta.ByteOrder]int `json:"object_bytes"`
	Warnings    int                    `json:"warnings"`
}

// LiteralSize summarizes one literal layout.
type LiteralSize struct {
	Strings int `json:"strings"`
	Objects int `json:"objects"`
	Shapes  int `json:"shapes"`
	Ptrs    int `json:"compressed_pointers"`
}

// variant holds the prepared document and encoded results of one target.
type variant struct {
	target  graph.Target
	doc     *meta.Document
	stats   *graph.Stats
	packed  *packed.Result
	literal []*literal.Result
}

// Run executes cfg.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	if cfg.Visibility == nil {
		cfg.Visibility = csrc.DefaultVisibility
	}
	if len(cfg.Targets) == 0 {
		cfg.Targets = []graph.Target{graph.TargetPacked}
	}
	if len(cfg.ByteOrders) == 0 {
		cfg.ByteOrders = meta.ByteOrders
	}
	if err := cfg.Profile.Validate(); err != nil {
		return nil, err
	}

	doc, mstats, err := load(cfg)
	if err != nil {
		return nil, err
	}

	variants := make([]*variant, len(cfg.Targets))
	g, gctx := errgroup.WithContext(ctx)
	for i, target := range cfg.Targets {
		v := &variant{target: target, doc: doc.Clone()}
		variants[i] = v
		g.Go(func() error {
			return v.run(gctx, cfg)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep := &Report{Meta: mstats, Graphs: make(map[graph.Target]*graph.Stats)}
	files := make(map[string]string)
	var names []string
	add := func(target graph.Target, order meta.ByteOrder, name, text string) {
		files[name] = text
		names = append(names, name)
		rep.Outputs = append(rep.Outputs, report.Output{Target: string(target), Order: string(order), File: name, Bytes: len(text)})
	}
	for _, v := range variants {
		rep.Graphs[v.target] = v.stats
		switch v.target {
		case graph.TargetPacked:
			out := packed.Emit(v.packed, cfg.Visibility)
			add(v.target, "", PackedSource, out.Source)
			add(v.target, "", PackedHeader, out.Header)
			pr := &PackedReport{StringBytes: len(v.packed.StringsData), ObjectBytes: make(map[meta.ByteOrder]int), Warnings: v.packed.Warnings}
			for _, o := range v.packed.Orders {
				pr.ObjectBytes[o] = len(v.packed.ObjectsData[o])
			}
			rep.Packed = pr
		case graph.TargetLiteral:
			out := literal.Emit(v.literal, cfg.Visibility)
			add(v.target, "", LiteralSource, out.Source)
			add(v.target, "", LiteralHeader, out.Header)
			rep.Literal = make(map[meta.ByteOrder]LiteralSize)
			for _, r := range v.literal {
				rep.Literal[r.Order] = LiteralSize{Strings: len(r.Strings), Objects: len(r.Objects), Shapes: len(r.Shapes), Ptrs: len(r.Ptrs)}
			}
		}
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, err
	}
	for _, name := range names {
		path := filepath.Join(cfg.OutputDir, name)
		if err := os.WriteFile(path, []byte(files[name]), 0o644); err != nil {
			return nil, err
		}
		log.Infof("wrote %s (%d bytes)", path, len(files[name]))
	}
	if cfg.Dump != "" {
		if err := writeDumps(cfg.Dump, variants); err != nil {
			return nil, err
		}
	}
	if cfg.Report != "" {
		if err := record(cfg, rep); err != nil {
			return nil, err
		}
	}
	return rep, nil
}

func load(cfg Config) (*meta.Document, *meta.Stats, error) {
	var v *schema.Validator
	if !cfg.SkipSchema {
		var err error
		if v, err = schema.New(); err != nil {
			return nil, nil, err
		}
	}
	read := func(path string) (*meta.RawDocument, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		name := filepath.Base(path)
		if v != nil {
			if err := v.Validate(name, data); err != nil {
				return nil, err
			}
		}
		return meta.Parse(name, data)
	}

	base, err := read(cfg.Base)
	if err != nil {
		return nil, nil, err
	}
	var overlays []*meta.RawDocument
	for _, p := range cfg.Overlays {
		raw, err := read(p)
		if err != nil {
			return nil, nil, err
		}
		overlays = append(overlays, raw)
	}
	return meta.Load(base, overlays, cfg.Options)
}

func (v *variant) run(ctx context.Context, cfg Config) error {
	st, err := graph.Prepare(v.doc, graph.Options{Target: v.target, Profile: cfg.Profile, Lightfuncs: cfg.Lightfuncs})
	if err != nil {
		return fmt.Errorf("%s: %w", v.target, err)
	}
	v.stats = st
	if err := ctx.Err(); err != nil {
		return err
	}

	switch v.target {
	case graph.TargetPacked:
		res, err := packed.Encode(v.doc, packed.Options{ByteOrders: cfg.ByteOrders})
		if err != nil {
			return fmt.Errorf("packed: %w", err)
		}
		v.packed = res
	case graph.TargetLiteral:
		v.literal = make([]*literal.Result, len(cfg.ByteOrders))
		g, _ := errgroup.WithContext(ctx)
		for i, order := range cfg.ByteOrders {
			g.Go(func() error {
				res, err := literal.Encode(v.doc, literal.Options{Profile: cfg.Profile, Order: order})
				if err != nil {
					return fmt.Errorf("literal %s: %w", order, err)
				}
				v.literal[i] = res
				return nil
			})
		}
		return g.Wait()
	}
	return nil
}

// writeDumps writes one metadata dump per target. With several targets
// the target name is inserted before the extension.
func writeDumps(path string, variants []*variant) error {
	for _, v := range variants {
		p := path
		if len(variants) > 1 {
			ext := filepath.Ext(path)
			p = strings.TrimSuffix(path, ext) + "." + string(v.target) + ext
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := dump.WriteFile(p, dump.Snapshot(v.doc, string(v.target))); err != nil {
			return fmt.Errorf("dump %s: %w", p, err)
		}
	}
	return nil
}

func record(cfg Config, rep *Report) error {
	if err := os.MkdirAll(filepath.Dir(cfg.Report), 0o755); err != nil {
		return err
	}
	s, err := report.Open(cfg.Report)
	if err != nil {
		return err
	}
	defer s.Close()
	id, err := s.Record(cfg.Base, rep, rep.Outputs)
	if err != nil {
		return err
	}
	for _, o := range rep.Outputs {
		if d, ok, err := s.SizeDelta(o.File); err == nil && ok && d != 0 {
			log.Infof("%s: %+d bytes since previous run", o.File, d)
		}
	}
	log.Debugf("recorded run %d", id)
	return nil
}
