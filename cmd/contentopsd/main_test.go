package main

import (
	"path/filepath"
	"testing"
)

func TestCommandRejectsInvalidConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cmd := newCommand()
	cmd.SetArgs([]string{"--config", filepath.Join("testdata", "missing.toml"), "--log-level", "bogus"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected invalid log level to be rejected")
	}
}

func TestCommandRejectsArguments(t *testing.T) {
	cmd := newCommand()
	cmd.SetArgs([]string{"extra"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected positional arguments to be rejected")
	}
}
