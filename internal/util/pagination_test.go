package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		page, size int
		offset     int
		limit      int
	}{
		{name: "first page", page: 1, size: 4, offset: 0, limit: 4},
		{name: "second page", page: 2, size: 4, offset: 4, limit: 4},
		{name: "page below one clamps", page: 0, size: 4, offset: 0, limit: 4},
		{name: "zero size defaults", page: 3, size: 0, offset: 2 * PageSize, limit: PageSize},
		{name: "oversized clamps", page: 1, size: 1000, offset: 0, limit: PageSize},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			offset, limit := Calculate(tt.page, tt.size)
			assert.Equal(t, tt.offset, offset)
			assert.Equal(t, tt.limit, limit)
		})
	}
}

func TestParseIntDefault(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 7, ParseIntDefault("7", 1))
	assert.Equal(t, 1, ParseIntDefault("", 1))
	assert.Equal(t, 1, ParseIntDefault("abc", 1))
}
