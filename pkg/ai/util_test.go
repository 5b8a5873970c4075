package ai

import (
	"testing"
)

func TestUnmarshalFlexible_ObjectVariants(t *testing.T) {
	type person struct {
		Name string `json:"name"`
		Age  int    `json:"age,omitempty"`
	}

	tests := []struct {
		name  string
		input string
		want  person
	}{
		{
			name:  "valid json object",
			input: `{"name":"John"}`,
			want:  person{Name: "John"},
		},
		{
			name:  "fenced json",
			input: "```json\n{\"name\":\"John\",\"age\":3}\n```",
			want:  person{Name: "John", Age: 3},
		},
		{
			name:  "unquoted key and single quotes",
			input: `{name: 'John'}`,
			want:  person{Name: "John"},
		},
		{
			name:  "trailing comma",
			input: `{"name":"John",}`,
			want:  person{Name: "John"},
		},
		{
			name:  "stringified json object",
			input: `"{\"name\": \"John\"}"`,
			want:  person{Name: "John"},
		},
		{
			name:  "duplicate leading brace",
			input: "{\n{\n  \"name\": \"John\"\n}\n",
			want:  person{Name: "John"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got person
			if err := UnmarshalFlexible(tc.input, &got); err != nil {
				t.Fatalf("UnmarshalFlexible() error = %v", err)
			}
			if got != tc.want {
				t.Fatalf("UnmarshalFlexible() got = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestUnmarshalFlexible_Empty(t *testing.T) {
	var out map[string]any
	if err := UnmarshalFlexible("   ", &out); err == nil {
		t.Fatal("expected error for empty output")
	}
}

func TestFitDimensions(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		dim  int
		want []float32
	}{
		{"Exact", []float64{1, 2}, 2, []float32{1, 2}},
		{"Truncate", []float64{1, 2, 3}, 2, []float32{1, 2}},
		{"Pad", []float64{1}, 3, []float32{1, 0, 0}},
		{"ZeroDimKeepsLength", []float64{1, 2}, 0, []float32{1, 2}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FitDimensions(tc.in, tc.dim)
			if len(got) != len(tc.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tc.want))
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("got %v, want %v", got, tc.want)
				}
			}
		})
	}
}

func TestGenerateOptions(t *testing.T) {
	opts := ApplyOptions(
		GenerateOptions{Model: "default", Temperature: 0.3},
		WithModel(""),
		WithTemperature(0),
		WithSystemPrompts("a", "b"),
		nil,
	)
	if opts.Model != "default" {
		t.Fatalf("empty model should keep default, got %q", opts.Model)
	}
	if opts.Temperature != 0 || len(opts.SystemPrompts) != 2 {
		t.Fatalf("unexpected options %+v", opts)
	}
}

func TestMetricsRecorder(t *testing.T) {
	var r MetricsRecorder
	r.Add(ModelMetrics{InputTokens: 10, OutputTokens: 5, TotalTokens: 15, DurationMs: 500})
	r.Add(ModelMetrics{InputTokens: 5, TotalTokens: 5, DurationMs: 500})

	m := r.Snapshot()
	if m.TotalTokens != 20 || m.Requests != 2 || m.DurationMs != 1000 {
		t.Fatalf("unexpected metrics %+v", m)
	}
	if m.TokenPerSecond != 20 {
		t.Fatalf("TokenPerSecond = %v, want 20", m.TokenPerSecond)
	}
	r.Reset()
	if r.Snapshot() != (ModelMetrics{}) {
		t.Fatalf("expected zero metrics after reset")
	}
}
