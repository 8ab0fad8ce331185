package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/robert-malhotra/go-mpo/mpo"
	"github.com/robert-malhotra/go-mpo/mpo/mpotest"
)

// paramFlag collects repeated name=v1,v2,... parameter samplings.
type paramFlag []mpo.Param

func (p *paramFlag) String() string {
	parts := make([]string, len(*p))
	for i, param := range *p {
		parts[i] = fmt.Sprintf("%s=%v", param.Name, param.Values)
	}
	return strings.Join(parts, " ")
}

func (p *paramFlag) Set(s string) error {
	name, list, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return fmt.Errorf("want name=v1,v2,..., got %q", s)
	}
	param := mpo.Param{Name: strings.TrimSpace(name)}
	for _, item := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(item), 64)
		if err != nil {
			return fmt.Errorf("parameter %s: %w", param.Name, err)
		}
		param.Values = append(param.Values, v)
	}
	*p = append(*p, param)
	return nil
}

func runSynth(args []string) error {
	var params paramFlag
	fs := flag.NewFlagSet("synth", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: mpolib synth [flags] file")
		fs.PrintDefaults()
	}
	geometry := fs.String("geometry", "GEOM", "geometry name")
	mesh := fs.String("mesh", "", "energy mesh name (default MESH<groups>)")
	zones := fs.Int("zones", 2, "number of zones")
	groups := fs.Int("groups", 2, "number of energy groups")
	offset := fs.Float64("offset", 0, "added to every generated value")
	fs.Var(&params, "param", "state parameter as name=v1,v2,...; repeatable (default burnup=0,500 and tf=900)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return flag.ErrHelp
	}
	if len(params) == 0 {
		params = paramFlag{{Name: "burnup", Values: []float64{0, 500}}, {Name: "tf", Values: []float64{900}}}
	}

	f := mpotest.New(params...)
	f.Geometry = *geometry
	f.EnergyMesh = *mesh
	if f.EnergyMesh == "" {
		f.EnergyMesh = fmt.Sprintf("MESH%d", *groups)
	}
	f.Zones = *zones
	f.Groups = *groups
	f.Profile = mpotest.FullProfile(*groups)
	f.Offset = *offset
	return f.WriteHDF5(fs.Arg(0))
}
