package gen

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
)

// Pipeline runs discovery, scaffolding, name sync and generation over one
// directory. Runs are serialised.
type Pipeline struct {
	dir         string
	suffix      string
	pkg         string
	remotesFile string
	lookupFile  string
	sink        Sink
	logger      *slog.Logger

	mu sync.Mutex
}

// Result summarises a run.
type Result struct {
	Resources  []string // resource names in file order
	Scaffolded []string // files that were blank
	Synced     []string // files whose declared name was rewritten
	Written    []string // outputs whose content changed
}

// NewPipeline returns a pipeline over dir writing outputs into dir.
func NewPipeline(dir string) *Pipeline {
	return &Pipeline{
		dir:         dir,
		suffix:      DefaultSuffix,
		remotesFile: DefaultRemotesFile,
		lookupFile:  DefaultLookupFile,
		sink:        NewFileSink(dir),
	}
}

// WithSuffix sets the resource file suffix.
func (p *Pipeline) WithSuffix(suffix string) *Pipeline {
	p.suffix = suffix
	return p
}

// WithPackage sets the package name used for scaffolds and outputs. By
// default it is read from the Go files of the directory, falling back to
// the directory name.
func (p *Pipeline) WithPackage(pkg string) *Pipeline {
	p.pkg = pkg
	return p
}

// WithOutputs sets the output file names.
func (p *Pipeline) WithOutputs(remotesFile, lookupFile string) *Pipeline {
	p.remotesFile = remotesFile
	p.lookupFile = lookupFile
	return p
}

// WithSink replaces the output sink.
func (p *Pipeline) WithSink(s Sink) *Pipeline {
	p.sink = s
	return p
}

func (p *Pipeline) WithLogger(logger *slog.Logger) *Pipeline {
	p.logger = logger
	return p
}

// Dir returns the watched directory.
func (p *Pipeline) Dir() string { return p.dir }

// Suffix returns the resource file suffix.
func (p *Pipeline) Suffix() string { return p.suffix }

func (p *Pipeline) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return slog.Default()
}

// Run scaffolds and syncs every resource file, then regenerates.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	files, err := Discover(p.dir, p.suffix)
	if err != nil {
		return Result{}, err
	}
	var res Result
	if err := p.prepare(files, &res); err != nil {
		return res, err
	}
	return res, p.generate(ctx, files, &res)
}

// Update scaffolds and syncs the given files, skipping ones that no longer
// exist, then regenerates from the full file set.
func (p *Pipeline) Update(ctx context.Context, changed []string) (Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var existing []string
	for _, f := range changed {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	var res Result
	if err := p.prepare(existing, &res); err != nil {
		return res, err
	}
	files, err := Discover(p.dir, p.suffix)
	if err != nil {
		return res, err
	}
	return res, p.generate(ctx, files, &res)
}

func (p *Pipeline) prepare(files []string, res *Result) error {
	for _, f := range files {
		src, err := os.ReadFile(f)
		if err != nil {
			return wrap(f, "read", err)
		}
		if IsBlank(src) {
			out, err := Scaffold(p.packageName(), NameFromFile(f, p.suffix))
			if err != nil {
				return wrap(f, "scaffold", err)
			}
			if err := os.WriteFile(f, out, 0644); err != nil {
				return wrap(f, "write scaffold", err)
			}
			p.log().Info("scaffolded resource file", slog.String("file", f))
			res.Scaffolded = append(res.Scaffolded, f)
			continue
		}
		changed, err := SyncName(f, p.suffix)
		if err != nil {
			return err
		}
		if changed {
			p.log().Info("synced resource name", slog.String("file", f), slog.String("name", NameFromFile(f, p.suffix)))
			res.Synced = append(res.Synced, f)
		}
	}
	return nil
}

func (p *Pipeline) generate(ctx context.Context, files []string, res *Result) error {
	parsed := make([]*ResourceFile, 0, len(files))
	for _, f := range files {
		rf, err := ParseResourceFile(f)
		if err != nil {
			return err
		}
		parsed = append(parsed, rf)
	}

	g := &Generator{
		Package:     p.packageName(),
		Suffix:      p.suffix,
		RemotesFile: p.remotesFile,
		LookupFile:  p.lookupFile,
	}
	outputs, err := g.Generate(parsed)
	if err != nil {
		return err
	}
	for _, rf := range parsed {
		res.Resources = append(res.Resources, NameFromFile(rf.Path, p.suffix))
	}

	// Render everything before writing anything, so a failure above leaves
	// the previous outputs untouched.
	for _, out := range outputs {
		written, err := p.sink.WriteFile(ctx, out.Name, out.Content)
		if err != nil {
			return wrap(out.Name, "write", err)
		}
		if written {
			res.Written = append(res.Written, out.Name)
		}
	}
	p.log().Debug("generated resources",
		slog.Int("resources", len(res.Resources)),
		slog.Any("written", res.Written))
	return nil
}

func (p *Pipeline) packageName() string {
	if p.pkg != "" {
		return p.pkg
	}
	if name := packageName(p.dir); name != "" {
		return name
	}
	return dirPackage(p.dir)
}

// Check reports every problem a run would hit without writing anything:
// unparsable files, declared names that disagree with their filenames, and
// identifier collisions. Blank files are reported as needing a scaffold.
func Check(dir, suffix string) ([]*ResourceFile, error) {
	files, err := Discover(dir, suffix)
	if err != nil {
		return nil, err
	}
	var (
		errs   []error
		parsed []*ResourceFile
	)
	for _, f := range files {
		src, err := os.ReadFile(f)
		if err != nil {
			errs = append(errs, wrap(f, "read", err))
			continue
		}
		if IsBlank(src) {
			errs = append(errs, errorf(f, "blank resource file"))
			continue
		}
		rf, err := parseSource(f, src)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if want := NameFromFile(f, suffix); rf.Name != want {
			errs = append(errs, errorf(f, "declares %q, filename implies %q", rf.Name, want))
		}
		parsed = append(parsed, rf)
	}
	if len(errs) == 0 && len(parsed) > 0 {
		g := &Generator{Package: parsed[0].Package, Suffix: suffix, RemotesFile: DefaultRemotesFile, LookupFile: DefaultLookupFile}
		if _, err := g.Generate(parsed); err != nil {
			errs = append(errs, err)
		}
	}
	return parsed, errors.Join(errs...)
}
