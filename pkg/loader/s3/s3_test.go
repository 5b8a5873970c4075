package s3

import "testing"

func TestParseReference(t *testing.T) {
	tests := []struct {
		name       string
		ref        string
		def        string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{name: "full reference", ref: "s3://docs/reports/q1.pdf", wantBucket: "docs", wantKey: "reports/q1.pdf"},
		{name: "bare key uses default", ref: "/reports/q1.pdf", def: "fallback", wantBucket: "fallback", wantKey: "reports/q1.pdf"},
		{name: "prefix", ref: "s3://docs/reports/", wantBucket: "docs", wantKey: "reports/"},
		{name: "missing bucket", ref: "s3:///key.txt", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, key, err := ParseReference(tt.ref, tt.def)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseReference: %v", err)
			}
			if bucket != tt.wantBucket || key != tt.wantKey {
				t.Fatalf("got (%q, %q), want (%q, %q)", bucket, key, tt.wantBucket, tt.wantKey)
			}
		})
	}
}
