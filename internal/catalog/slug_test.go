package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"plain", "Oak Shelf", "oak-shelf"},
		{"diacritics stripped", "Café Tablé", "cafe-table"},
		{"symbols collapse", "Big -- Box!! (v2)", "big-box-v2"},
		{"leading and trailing trimmed", "  ~Lamp~  ", "lamp"},
		{"hangul survives", "나무 상자", "나무-상자"},
		{"digits kept", "Shelf 2.0", "shelf-2-0"},
		{"nothing usable", "!!! ---", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.title))
		})
	}
}
