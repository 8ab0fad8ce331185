package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"sigs.k8s.io/yaml"

	"github.com/robert-malhotra/go-mpo/internal/logging"
	"github.com/robert-malhotra/go-mpo/mpo"
)

func runQuery(ctx context.Context, args []string) error {
	var logOpts logging.Options
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: mpolib query [flags] files...")
		fs.PrintDefaults()
	}
	logOpts.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	log, err := logging.New(logOpts)
	if err != nil {
		return err
	}

	files, err := expandFiles(fs.Args())
	if err != nil {
		return err
	}
	results, err := mpo.Query(ctx, files, mpo.Options{Logger: log})
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(results)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}
