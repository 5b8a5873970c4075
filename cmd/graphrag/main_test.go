package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"
)

func memoryEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GRAPH_STORE", "memory")
	t.Setenv("AI_ADAPTER", "openai")
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("GRAPH_SCHEMA_FILE", "")
	t.Setenv("AWS_BUCKET", "")
	t.Setenv("AWS_ENDPOINT", "")
}

func TestCommandsRequireArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"ingest", []string{"graphrag", "ingest"}},
		{"query", []string{"graphrag", "query"}},
		{"blank query", []string{"graphrag", "query", " "}},
		{"enqueue", []string{"graphrag", "enqueue"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newApp()
			app.ExitErrHandler = func(*cli.Context, error) {}
			err := app.RunContext(context.Background(), tt.args)
			if err == nil {
				t.Fatalf("expected an error")
			}
			if coder, ok := err.(cli.ExitCoder); !ok || coder.ExitCode() != 2 {
				t.Fatalf("expected exit code 2, got %v", err)
			}
		})
	}
}

func TestSetupAgainstMemoryStore(t *testing.T) {
	memoryEnv(t)

	app := newApp()
	if err := app.RunContext(context.Background(), []string{"graphrag", "setup"}); err != nil {
		t.Fatalf("setup: %v", err)
	}
}

func TestIngestMissingPathFails(t *testing.T) {
	memoryEnv(t)

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	err := app.RunContext(context.Background(), []string{"graphrag", "ingest", t.TempDir() + "/missing.txt"})
	if err == nil {
		t.Fatalf("expected error for missing path")
	}
	if strings.Contains(out.String(), "OK") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestUnknownStoreFails(t *testing.T) {
	memoryEnv(t)
	t.Setenv("GRAPH_STORE", "sqlite")

	if err := newApp().RunContext(context.Background(), []string{"graphrag", "setup"}); err == nil {
		t.Fatalf("expected error for unknown store")
	}
}
