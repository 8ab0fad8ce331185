// Command mpolib builds cross-section libraries from MPO files.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
)

const usage = `Usage: mpolib <command> [flags] [files...]

Commands:
  query    list the geometries, energy meshes, isotopes and reactions of files
  build    merge files and write one array per isotope and reaction label
  inspect  print the HDF5 tree of a file
  synth    write a synthetic MPO file

Run "mpolib <command> -h" for the flags of a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	args := os.Args[2:]
	switch os.Args[1] {
	case "query":
		err = runQuery(ctx, args)
	case "build":
		err = runBuild(ctx, args)
	case "inspect":
		err = runInspect(args)
	case "synth":
		err = runSynth(args)
	case "-h", "-help", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "mpolib %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

// listFlag is a comma separated list of names.
type listFlag []string

func (l *listFlag) String() string {
	return strings.Join(*l, ",")
}

func (l *listFlag) Set(s string) error {
	*l = nil
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			*l = append(*l, item)
		}
	}
	return nil
}
