package logging

import (
	"bytes"
	"encoding/json"
	"flag"
	"strings"
	"testing"
)

func TestVerbosity(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Format: "json", Dest: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	log.Info("progress", "source", "a.hdf")
	log.V(1).Info("miss", "isotope", "U235")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines: %q", len(lines), buf.String())
	}
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	if entry["msg"] != "progress" || entry["source"] != "a.hdf" {
		t.Errorf("entry = %v", entry)
	}

	buf.Reset()
	log, err = New(Options{Format: "json", Verbosity: 1, Dest: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	log.V(1).Info("miss", "isotope", "U235")
	if !strings.Contains(buf.String(), `"isotope":"U235"`) {
		t.Errorf("V(1) message not written: %q", buf.String())
	}
}

func TestBindFlags(t *testing.T) {
	var o Options
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	o.BindFlags(fs)
	if err := fs.Parse([]string{"-v=2", "-log-format=json", "-log-devel"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if o.Verbosity != 2 || o.Format != "json" || !o.Development {
		t.Errorf("options = %+v", o)
	}
}

func TestUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Error("expected an error for an unknown format")
	}
}
