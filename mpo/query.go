package mpo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"
)

// QueryResult lists the names recorded in one MPO file.
type QueryResult struct {
	File         string   `json:"file"`
	Geometries   []string `json:"geometries"`
	EnergyMeshes []string `json:"energyMeshes"`
	Isotopes     []string `json:"isotopes"`
	Reactions    []string `json:"reactions"`
	Parameters   []string `json:"parameters"`
}

// Query reads the name tables of each file, independently of any geometry
// or energy mesh selection.
func Query(ctx context.Context, files []string, opts Options) ([]QueryResult, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: empty file list", ErrInvalidInput)
	}
	opts = opts.withDefaults()

	results := make([]QueryResult, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, name := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := queryFile(name, opts.Opener)
			if err != nil {
				return err
			}
			results[i] = r
			opts.Logger.V(1).Info("queried file", "file", name, "isotopes", len(r.Isotopes), "reactions", len(r.Reactions))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func queryFile(name string, opener Opener) (QueryResult, error) {
	st, err := opener(name)
	if err != nil {
		return QueryResult{}, fmt.Errorf("opening %s: %w", name, err)
	}
	defer st.Close()

	r := QueryResult{File: name}
	tables := []struct {
		path string
		dst  *[]string
	}{
		{geometryNamesPath, &r.Geometries},
		{meshNamesPath, &r.EnergyMeshes},
		{isotopeNamesPath, &r.Isotopes},
		{reactionNamesPath, &r.Reactions},
		{paramNamesPath, &r.Parameters},
	}
	for _, t := range tables {
		values, err := st.ReadStrings(t.path)
		if err != nil {
			return QueryResult{}, fmt.Errorf("%s: %w", name, err)
		}
		*t.dst = values
	}
	for i, p := range r.Parameters {
		r.Parameters[i] = NormalizeName(p)
	}
	return r, nil
}

// Save writes every array of the library as <dir>/<isotope>_<label>.bin and
// returns the written paths, sorted.
func (l Library) Save(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var paths []string
	for iso, labels := range l {
		for label, arr := range labels {
			path := filepath.Join(dir, fmt.Sprintf("%s_%s.bin", iso, label))
			if err := arr.Save(path); err != nil {
				return nil, err
			}
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Labels returns the sorted labels built for an isotope.
func (l Library) Labels(isotope string) []string {
	return sortedKeys(l[isotope])
}
