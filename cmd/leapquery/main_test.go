// Package main provides tests for the LeapQuery CLI.
package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapquery/internal/cli"
	"github.com/leapstack-labs/leapquery/internal/cli/testutil"
)

func TestVersionCommand(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Errorf("version command error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "LeapQuery") {
		t.Errorf("version output should contain 'LeapQuery', got: %s", output)
	}
}

func TestHelpCommand(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Errorf("help command error = %v", err)
	}

	output := buf.String()
	for _, expected := range []string{"build", "run", "datasource"} {
		if !strings.Contains(output, expected) {
			t.Errorf("help output should contain '%s', got: %s", expected, output)
		}
	}
}

func TestRunCommand(t *testing.T) {
	p := testutil.SetupTestProject(t)

	stdout, _, err := testutil.Execute(t, cli.NewRootCmd(), "", "--config", p.Config, "run", "-f", p.Query, "--format", "csv")
	if err != nil {
		t.Fatalf("run command error = %v", err)
	}
	if !strings.Contains(stdout, "Ada,2") {
		t.Errorf("run output should contain 'Ada,2', got: %s", stdout)
	}
}
