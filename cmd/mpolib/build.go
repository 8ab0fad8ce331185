package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"sigs.k8s.io/yaml"

	"github.com/robert-malhotra/go-mpo/internal/logging"
	"github.com/robert-malhotra/go-mpo/mpo"
)

// buildConfig is a build job. It can be read from a YAML job file; flags
// given on the command line override the file.
type buildConfig struct {
	Geometry   string   `json:"geometry"`
	EnergyMesh string   `json:"energyMesh"`
	Files      []string `json:"files"`
	Output     string   `json:"output"`
	Workers    int      `json:"workers,omitempty"`
	// Burnup names the parameter concentrations are written over. Empty
	// skips the concentration arrays.
	Burnup    string `json:"burnup,omitempty"`
	SaveState string `json:"saveState,omitempty"`
	Reload    string `json:"reload,omitempty"`

	mpo.BuildRequest
}

func defaultBuildConfig() *buildConfig {
	return &buildConfig{
		Output:       ".",
		BuildRequest: mpo.BuildRequest{MaxOrder: 1},
	}
}

type quantityFlag struct {
	q *mpo.Quantity
}

func (f quantityFlag) String() string {
	if f.q == nil {
		return ""
	}
	return f.q.String()
}

func (f quantityFlag) Set(s string) error {
	q, err := mpo.ParseQuantity(s)
	if err != nil {
		return err
	}
	*f.q = q
	return nil
}

func newBuildFlags(cfg *buildConfig, job *string, logOpts *logging.Options) *flag.FlagSet {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: mpolib build [flags] files...")
		fs.PrintDefaults()
	}
	fs.StringVar(job, "job", *job, "YAML job file; flags override its fields")
	fs.StringVar(&cfg.Geometry, "geometry", cfg.Geometry, "geometry name")
	fs.StringVar(&cfg.EnergyMesh, "mesh", cfg.EnergyMesh, "energy mesh name")
	fs.Var((*listFlag)(&cfg.Isotopes), "isotopes", "comma separated isotopes")
	fs.Var((*listFlag)(&cfg.Reactions), "reactions", "comma separated reactions")
	fs.Var((*listFlag)(&cfg.SkipDims), "skip", "comma separated parameters dropped from the output axes")
	fs.Var(quantityFlag{&cfg.Quantity}, "quantity", "micro, macro, flux or reactrate")
	fs.IntVar(&cfg.MaxOrder, "max-order", cfg.MaxOrder, "number of anisotropy orders to keep; 0 keeps all")
	fs.StringVar(&cfg.Output, "out", cfg.Output, "output directory")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "files processed at once; 0 means GOMAXPROCS")
	fs.StringVar(&cfg.Burnup, "burnup", cfg.Burnup, "also write <isotope>_Concentration.bin over this parameter")
	fs.StringVar(&cfg.SaveState, "save-state", cfg.SaveState, "write the merged state to this YAML file")
	fs.StringVar(&cfg.Reload, "reload", cfg.Reload, "rebuild the merged state from this YAML file instead of scanning")
	logOpts.BindFlags(fs)
	return fs
}

// parseBuild reads the job file, if any, then applies the flags over it.
func parseBuild(args []string) (*buildConfig, *logging.Options, error) {
	var job string
	cfg, logOpts := defaultBuildConfig(), &logging.Options{}
	fs := newBuildFlags(cfg, &job, logOpts)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	if job != "" {
		data, err := os.ReadFile(job)
		if err != nil {
			return nil, nil, err
		}
		cfg, logOpts = defaultBuildConfig(), &logging.Options{}
		if err := yaml.UnmarshalStrict(data, cfg); err != nil {
			return nil, nil, fmt.Errorf("job %s: %w", job, err)
		}
		fs = newBuildFlags(cfg, &job, logOpts)
		if err := fs.Parse(args); err != nil {
			return nil, nil, err
		}
	}
	if fs.NArg() > 0 {
		cfg.Files = fs.Args()
	}
	return cfg, logOpts, nil
}

func runBuild(ctx context.Context, args []string) error {
	cfg, logOpts, err := parseBuild(args)
	if err != nil {
		return err
	}
	log, err := logging.New(*logOpts)
	if err != nil {
		return err
	}
	opts := mpo.Options{Workers: cfg.Workers, Logger: log.WithName("mpolib")}

	var m *mpo.Master
	if cfg.Reload != "" {
		m, err = mpo.LoadState(ctx, cfg.Reload, opts)
	} else {
		var files []string
		if files, err = expandFiles(cfg.Files); err != nil {
			return err
		}
		m, err = mpo.Open(ctx, files, cfg.Geometry, cfg.EnergyMesh, opts)
	}
	if err != nil {
		return err
	}
	if cfg.SaveState != "" {
		if err := m.SaveState(cfg.SaveState); err != nil {
			return err
		}
	}

	lib, report, err := m.BuildLibrary(ctx, cfg.BuildRequest)
	if err != nil {
		return err
	}
	paths, err := lib.Save(cfg.Output)
	if err != nil {
		return err
	}

	if cfg.Burnup != "" {
		conc, err := m.Concentrations(ctx, cfg.Isotopes, cfg.Burnup)
		if err != nil {
			return err
		}
		for iso, arr := range conc {
			path := filepath.Join(cfg.Output, iso+"_Concentration.bin")
			if err := arr.Save(path); err != nil {
				return err
			}
			paths = append(paths, path)
		}
	}

	log.Info("wrote library", "run", report.RunID, "arrays", len(paths), "dir", cfg.Output,
		"misses", report.Misses, "overwrites", report.Overwrites)
	return nil
}

// expandFiles expands glob patterns. Patterns without matches are kept as
// given so opening them reports the error.
func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, p := range patterns {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("%w: pattern %q: %v", mpo.ErrInvalidInput, p, err)
		}
		if len(matches) == 0 {
			files = append(files, p)
			continue
		}
		files = append(files, matches...)
	}
	return files, nil
}
