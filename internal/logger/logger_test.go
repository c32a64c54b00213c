package logger

import "testing"

func TestTruncate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		limit  int
		expect string
	}{
		{
			name:   "returns empty when limit non-positive",
			input:  "ranked candidates",
			limit:  0,
			expect: "",
		},
		{
			name:   "shorter than limit",
			input:  "ok",
			limit:  10,
			expect: "ok",
		},
		{
			name:   "truncates and adds ellipsis",
			input:  "<html>gateway</html>",
			limit:  6,
			expect: "<html>...",
		},
		{
			name:   "counts runes not bytes",
			input:  "résumé upload",
			limit:  6,
			expect: "résumé...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Truncate(tt.input, tt.limit); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestNew(t *testing.T) {
	for _, json := range []bool{false, true} {
		l, err := New(json, true)
		if err != nil {
			t.Fatalf("New(json=%v): %v", json, err)
		}
		l.Debug("logger ready")
	}
}
