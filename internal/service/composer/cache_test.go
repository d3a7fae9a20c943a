package composer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"multiblock/internal/domain/models/canvas"
)

func TestContextCache_StoreRejectsStaleVersion(t *testing.T) {
	tests := []struct {
		name       string
		invalidate func(c *ContextCache)
		wantStored bool
	}{
		{
			name:       "no invalidation",
			invalidate: func(*ContextCache) {},
			wantStored: true,
		},
		{
			name:       "block invalidated",
			invalidate: func(c *ContextCache) { c.Invalidate("board", "block") },
			wantStored: false,
		},
		{
			name:       "board invalidated",
			invalidate: func(c *ContextCache) { c.InvalidateBoard("board") },
			wantStored: false,
		},
		{
			name:       "sibling invalidated",
			invalidate: func(c *ContextCache) { c.Invalidate("board", "other") },
			wantStored: true,
		},
		{
			name:       "other board invalidated",
			invalidate: func(c *ContextCache) { c.InvalidateBoard("elsewhere") },
			wantStored: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewContextCache()
			cached, v := c.Get("board", "block")
			assert.Nil(t, cached)

			tt.invalidate(c)

			stored := c.Store("board", "block", v, &canvas.ComposedContext{BlockID: "block"})
			assert.Equal(t, tt.wantStored, stored)

			got, _ := c.Get("board", "block")
			if tt.wantStored {
				assert.NotNil(t, got)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestContextCache_InvalidateBoardCounts(t *testing.T) {
	c := NewContextCache()
	for _, id := range []string{"a", "b"} {
		_, v := c.Get("board", id)
		c.Store("board", id, v, &canvas.ComposedContext{BlockID: id})
	}

	assert.Equal(t, 2, c.InvalidateBoard("board"))
	assert.Equal(t, 0, c.InvalidateBoard("board"))
}
