package macro

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
)

type invocation struct {
	name string
	raw  string
}

type dispatcherFake struct {
	calls  []invocation
	failOn string
}

func (d *dispatcherFake) Invoke(name, raw string) error {
	if name == d.failOn {
		return fmt.Errorf("command %q: boom", name)
	}
	d.calls = append(d.calls, invocation{name: name, raw: raw})
	return nil
}

func TestRunExecutesLinesInOrder(t *testing.T) {
	script := `
# beam setup
beamFlux 1e4
beamFrequency 50   # trailing comment

scintillator OPSC-100
csvFilename run_a.csv
`
	d := &dispatcherFake{}
	if err := Run(d, strings.NewReader(script), "setup.mac"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []invocation{
		{name: "beamFlux", raw: "1e4"},
		{name: "beamFrequency", raw: "50"},
		{name: "scintillator", raw: "OPSC-100"},
		{name: "csvFilename", raw: "run_a.csv"},
	}
	if len(d.calls) != len(want) {
		t.Fatalf("dispatched %d commands, want %d: %v", len(d.calls), len(want), d.calls)
	}
	for i, got := range d.calls {
		if got != want[i] {
			t.Errorf("call %d = %+v, want %+v", i, got, want[i])
		}
	}
}

func TestRunStopsAtFirstError(t *testing.T) {
	script := "beamFlux 1e4\nbogus 1\nscintillator OPSC-100\n"
	d := &dispatcherFake{failOn: "bogus"}
	err := Run(d, strings.NewReader(script), "run.mac")
	if err == nil {
		t.Fatal("Run succeeded, want error from failing line")
	}
	if !strings.Contains(err.Error(), "run.mac:2") {
		t.Errorf("error = %v, want position run.mac:2", err)
	}
	if len(d.calls) != 1 || d.calls[0].name != "beamFlux" {
		t.Errorf("calls after failure = %v, want only beamFlux", d.calls)
	}
}

func TestRunFileMissing(t *testing.T) {
	d := &dispatcherFake{}
	err := RunFile(d, filepath.Join(t.TempDir(), "absent.mac"))
	if err == nil {
		t.Fatal("RunFile on missing path succeeded, want error")
	}
}

func TestConsoleContinuesPastErrorsAndExits(t *testing.T) {
	in := strings.NewReader("scintillator OPSC-100\nbogus 1\nbeamFlux 2e4\nexit\nbeamFrequency 10\n")
	var out bytes.Buffer
	d := &dispatcherFake{failOn: "bogus"}
	console := &Console{Dispatch: d, In: in, Out: &out}
	if err := console.Run(); err != nil {
		t.Fatalf("Console.Run: %v", err)
	}

	want := []invocation{
		{name: "scintillator", raw: "OPSC-100"},
		{name: "beamFlux", raw: "2e4"},
	}
	if len(d.calls) != len(want) {
		t.Fatalf("dispatched %v, want %v", d.calls, want)
	}
	for i, got := range d.calls {
		if got != want[i] {
			t.Errorf("call %d = %+v, want %+v", i, got, want[i])
		}
	}
	if !strings.Contains(out.String(), `error: command "bogus": boom`) {
		t.Errorf("console output missing dispatch error: %q", out.String())
	}
	if !strings.Contains(out.String(), "sim> ") {
		t.Errorf("console output missing prompt: %q", out.String())
	}
}

func TestConsoleEndsAtEOF(t *testing.T) {
	d := &dispatcherFake{}
	console := &Console{Dispatch: d, In: strings.NewReader("beamWindow 1s\n"), Out: &bytes.Buffer{}}
	if err := console.Run(); err != nil {
		t.Fatalf("Console.Run: %v", err)
	}
	if len(d.calls) != 1 {
		t.Fatalf("dispatched %v, want one call", d.calls)
	}
}

func TestSplitLine(t *testing.T) {
	tests := []struct {
		line     string
		wantName string
		wantRaw  string
		wantOK   bool
	}{
		{"beamFlux 1e4", "beamFlux", "1e4", true},
		{"  beamFlux   1e4  ", "beamFlux", "1e4", true},
		{"help", "help", "", true},
		{"# comment only", "", "", false},
		{"   ", "", "", false},
		{"beamOn 3 # fire", "beamOn", "3", true},
		{"csvFilename out dir.csv", "csvFilename", "out dir.csv", true},
	}
	for _, tc := range tests {
		name, raw, ok := splitLine(tc.line)
		if name != tc.wantName || raw != tc.wantRaw || ok != tc.wantOK {
			t.Errorf("splitLine(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tc.line, name, raw, ok, tc.wantName, tc.wantRaw, tc.wantOK)
		}
	}
}
