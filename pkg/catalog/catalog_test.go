package catalog_test

import (
	"testing"

	"github.com/ogero/movie-catalog/pkg/catalog"
	"github.com/stretchr/testify/assert"
)

func TestPosterOrPlaceholder(t *testing.T) {
	placeholder := "https://via.placeholder.com/300x450/10161d/ffffff?text=No+Image"
	tests := []struct {
		poster string
		want   string
	}{
		{"N/A", placeholder},
		{"http://x/p.jpg", "http://x/p.jpg"},
		{"", ""},
		{"n/a", "n/a"},
	}

	for _, tt := range tests {
		t.Run(tt.poster, func(t *testing.T) {
			assert.Equal(t, tt.want, catalog.PosterOrPlaceholder(tt.poster, placeholder))
		})
	}
}
