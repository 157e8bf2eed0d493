// Package driver runs the schema compiler over a set of files: load, declare,
// define, services, the reference-type pass and layout. Files are
// independent compilation units and are compiled concurrently.
package driver

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"wirec/internal/diag"
	"wirec/internal/manifest"
	"wirec/internal/observ"
	"wirec/internal/project"
	"wirec/internal/schema"
	"wirec/internal/sema"
	"wirec/internal/source"
	"wirec/internal/trace"
	"wirec/internal/version"
)

// Options control a compile run.
type Options struct {
	// MaxDiagnostics caps the diagnostics kept per file.
	MaxDiagnostics int
	// Jobs bounds the number of files compiled at once; 0 means GOMAXPROCS.
	Jobs int
	// DefaultModule names modules whose schema has no module key.
	DefaultModule string
	// BaseDir is used to render relative paths.
	BaseDir string
	// Cache, when set, stores manifests of clean files.
	Cache *manifest.DiskCache
	// ManifestOnly lets a cache hit skip compilation entirely. The file
	// result then carries a manifest but no module.
	ManifestOnly bool
	// BuildManifests builds a manifest for every clean file even without
	// a cache.
	BuildManifests bool
}

// FileResult is the outcome of compiling one schema file.
type FileResult struct {
	Path     string
	FileID   source.FileID
	Bag      *diag.Bag
	Module   *sema.Module
	Manifest *manifest.Manifest
	Cached   bool
	Timer    *observ.Timer
}

// Failed reports whether the file produced errors.
func (r *FileResult) Failed() bool {
	return r.Bag != nil && r.Bag.HasErrors()
}

// Result collects every file of a run in input order.
type Result struct {
	FileSet *source.FileSet
	Files   []FileResult
	Timer   *observ.Timer
}

// HasErrors reports whether any file failed.
func (r *Result) HasErrors() bool {
	for i := range r.Files {
		if r.Files[i].Failed() {
			return true
		}
	}
	return false
}

// Diagnostics merges the per-file bags into one sorted bag.
func (r *Result) Diagnostics() *diag.Bag {
	out := diag.NewBag(0)
	for i := range r.Files {
		out.Merge(r.Files[i].Bag)
	}
	out.Sort()
	return out
}

// Compile compiles every path. Files are read up front so the FileSet is
// only read by the workers. A file that cannot be read is reported as a
// diagnostic on that file; the returned error is reserved for cancellation.
func Compile(ctx context.Context, paths []string, opts Options) (*Result, error) {
	fs := source.NewFileSetWithBase(opts.BaseDir)
	res := &Result{
		FileSet: fs,
		Files:   make([]FileResult, len(paths)),
		Timer:   observ.NewTimer(),
	}
	if len(paths) == 0 {
		return res, nil
	}
	tracer := trace.FromContext(ctx)
	runSpan := trace.Begin(tracer, trace.ScopeDriver, "compile", trace.CurrentSpan(ctx).SpanID)
	defer func() { runSpan.WithExtra("files", fmt.Sprint(len(paths))).End("") }()

	loadIdx := res.Timer.Begin("load")
	loadErrs := make([]error, len(paths))
	for i, p := range paths {
		id, err := fs.Load(p)
		if err != nil {
			id = fs.AddVirtual(p, nil)
			loadErrs[i] = err
		}
		res.Files[i] = FileResult{Path: p, FileID: id}
	}
	res.Timer.End(loadIdx, fmt.Sprintf("%d files", len(paths)))

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))

	compileIdx := res.Timer.Begin("compile")
	for i := range res.Files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fr := &res.Files[i]
			fr.Bag = diag.NewBag(opts.MaxDiagnostics)
			fr.Timer = observ.NewTimer()
			if loadErrs[i] != nil {
				span := source.Span{File: fr.FileID}
				diag.ReportError(diag.BagReporter{Bag: fr.Bag}, diag.IOLoadFileError, span,
					fmt.Sprintf("failed to read %s: %v", fr.Path, loadErrs[i])).Emit()
				return nil
			}
			compileFile(gctx, fs, fr, opts, runSpan.ID())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	res.Timer.End(compileIdx, "")
	for i := range res.Files {
		res.Timer.Merge(res.Files[i].Path+"/", res.Files[i].Timer)
	}
	return res, nil
}

func compileFile(ctx context.Context, fs *source.FileSet, fr *FileResult, opts Options, parent uint64) {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeModule, "file:"+fr.Path, parent)
	detail := "ok"
	defer func() { span.End(detail) }()

	f := fs.Get(fr.FileID)
	var key project.Digest
	if opts.Cache != nil {
		key = manifest.Key(f.Content, version.Version)
		if opts.ManifestOnly {
			if man, ok, err := opts.Cache.Get(key); err == nil && ok {
				man.Source = fr.Path
				fr.Manifest = man
				fr.Cached = true
				detail = "cached"
				return
			}
		}
	}

	reporter := diag.NewDedupReporter(diag.BagReporter{Bag: fr.Bag})
	p := &passRunner{tracer: tracer, timer: fr.Timer, parent: span.ID(), bag: fr.Bag}

	var file *schema.File
	p.run("parse", func() { file = schema.LoadYAML(fs, fr.FileID, reporter) })
	if file == nil || p.failed() {
		detail = "parse failed"
		return
	}

	m := sema.NewModule(sema.Options{
		Reporter:    reporter,
		Strings:     source.NewInterner(),
		DefaultName: opts.DefaultModule,
	})
	fr.Module = m

	p.run("declare", func() { m.DeclarePass(file) })
	p.run("define", func() { m.DefinePass() })
	p.run("services", func() { m.ServicePass() })
	if m.Failed() {
		detail = "resolution failed"
		return
	}
	var refErr error
	p.run("reference-pass", func() { _, refErr = m.ReferenceTypePass() })
	if refErr != nil || m.Failed() {
		detail = "reference pass failed"
		return
	}
	p.run("layout", func() { m.LayoutPass() })
	if m.Failed() {
		detail = "layout failed"
		return
	}
	if tracer.Enabled() {
		for _, d := range m.Decls() {
			if d.Generic {
				continue
			}
			if l, err := m.Layouts.WireLayout(d.Type); err == nil {
				trace.Point(tracer, trace.ScopeNode, "decl:"+d.Name, l.String(), span.ID())
			}
		}
	}

	if opts.Cache == nil && !opts.BuildManifests {
		return
	}
	p.run("manifest", func() {
		man, err := manifest.Build(m, fr.Path)
		if err != nil {
			return
		}
		fr.Manifest = man
		if opts.Cache != nil {
			if err := opts.Cache.Put(key, man); err != nil {
				trace.Point(tracer, trace.ScopePass, "cache-put", err.Error(), span.ID())
			}
		}
	})
}

// passRunner wraps each pass in a trace span and a timer phase.
type passRunner struct {
	tracer trace.Tracer
	timer  *observ.Timer
	parent uint64
	bag    *diag.Bag
}

func (p *passRunner) run(name string, fn func()) {
	before := p.bag.Len()
	span := trace.Begin(p.tracer, trace.ScopePass, name, p.parent)
	idx := p.timer.Begin(name)
	fn()
	note := ""
	if n := p.bag.Len() - before; n > 0 {
		note = fmt.Sprintf("%d diagnostics", n)
	}
	p.timer.End(idx, note)
	span.End(note)
}

func (p *passRunner) failed() bool { return p.bag.HasErrors() }
