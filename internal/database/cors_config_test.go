package database

import (
	"testing"
)

func TestAllowedOriginsSlice(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", nil},
		{"single origin", "https://app.planora.app", []string{"https://app.planora.app"}},
		{"multiple origins", "https://app.planora.app, http://localhost:3000", []string{"https://app.planora.app", "http://localhost:3000"}},
		{"duplicates collapse", "http://localhost:3000, http://localhost:3000, https://app.planora.app", []string{"http://localhost:3000", "https://app.planora.app"}},
		{"surrounding whitespace", "  https://app.planora.app  ,  http://localhost:5173  ", []string{"https://app.planora.app", "http://localhost:5173"}},
		{"trailing comma", "https://app.planora.app,", []string{"https://app.planora.app"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt := tt
			t.Parallel()
			got := AllowedOriginsSlice(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("AllowedOriginsSlice(%q) = %v, want %v", tt.raw, got, tt.want)
			}
			for i, w := range tt.want {
				if got[i] != w {
					t.Errorf("AllowedOriginsSlice(%q)[%d] = %q, want %q", tt.raw, i, got[i], w)
				}
			}
		})
	}
}
