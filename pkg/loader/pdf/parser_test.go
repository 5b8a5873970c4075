package pdf

import (
	"reflect"
	"testing"
)

func TestSplitPages(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "two pages with trailing break",
			in:   "Page one.\n\f Page two.\n\n\n\nEnd.\n\f",
			want: []string{"Page one.\n", "Page two.\n\nEnd.\n"},
		},
		{
			name: "blank pages dropped",
			in:   "\f\n\fOnly page\f",
			want: []string{"Only page\n"},
		},
		{
			name: "empty output",
			in:   "",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitPages([]byte(tt.in))
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("splitPages(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
