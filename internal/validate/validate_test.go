package validate

import (
	"strings"
	"testing"
)

type sample struct {
	ID         string `json:"id" validate:"required"`
	Difficulty int    `json:"difficulty" validate:"min=1,max=5"`
	Kind       string `json:"kind" validate:"omitempty,oneof=a b"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name  string
		in    sample
		count int
		want  string
	}{
		{"valid", sample{ID: "x", Difficulty: 3}, 0, ""},
		{"missing id", sample{Difficulty: 3}, 1, "id is required"},
		{"difficulty high", sample{ID: "x", Difficulty: 6}, 1, "difficulty must be <= 5"},
		{"difficulty low", sample{ID: "x", Difficulty: 0}, 1, "difficulty must be >= 1"},
		{"bad kind", sample{ID: "x", Difficulty: 1, Kind: "c"}, 1, "kind must be one of"},
		{"two problems", sample{Difficulty: 9}, 2, "id is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Struct("node", tt.in)
			if len(got) != tt.count {
				t.Fatalf("got %d problems %v, want %d", len(got), got, tt.count)
			}
			if tt.want == "" {
				return
			}
			joined := strings.Join(got, "; ")
			if !strings.Contains(joined, tt.want) {
				t.Errorf("problems %q do not mention %q", joined, tt.want)
			}
			if !strings.HasPrefix(got[0], "node: ") {
				t.Errorf("expected prefix, got %q", got[0])
			}
		})
	}
}
