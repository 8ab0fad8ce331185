package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/robert-malhotra/go-mpo/hdf5"
	"github.com/robert-malhotra/go-mpo/internal/message"
)

func runInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: mpolib inspect [flags] file")
		fs.PrintDefaults()
	}
	limit := fs.Int("values", 0, "print the values of datasets with at most this many elements")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return flag.ErrHelp
	}
	return inspect(os.Stdout, fs.Arg(0), *limit)
}

// inspect prints the group tree of an HDF5 file.
func inspect(w io.Writer, name string, limit int) error {
	f, err := hdf5.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintf(w, "%s (superblock v%d)\n", name, f.Version())
	return hdf5.Walk(f.Root(), func(p string, obj interface{}, err error) error {
		if p == "/" {
			return nil
		}
		indent := strings.Repeat("  ", strings.Count(p, "/"))
		if err != nil {
			fmt.Fprintf(w, "%s%s: %v\n", indent, path.Base(p), err)
			return nil
		}
		switch o := obj.(type) {
		case *hdf5.Group:
			fmt.Fprintf(w, "%s%s/\n", indent, o.Name())
		case *hdf5.Dataset:
			fmt.Fprintf(w, "%s%s %v\n", indent, o.Name(), o.Shape())
			if limit > 0 && o.NumElements() <= uint64(limit) {
				fmt.Fprintf(w, "%s  = %s\n", indent, datasetValues(o))
			}
		}
		return nil
	})
}

func datasetValues(ds *hdf5.Dataset) string {
	var (
		values interface{}
		err    error
	)
	switch ds.DtypeClass() {
	case message.ClassString, message.ClassVarLen:
		values, err = ds.ReadString()
	case message.ClassFixedPoint:
		values, err = ds.ReadInt64()
	default:
		values, err = ds.ReadFloat64()
	}
	if err != nil {
		return "error: " + err.Error()
	}
	return fmt.Sprint(values)
}
