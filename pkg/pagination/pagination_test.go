package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPageMiddle(t *testing.T) {
	page := NewPage(Params{Page: 2, PerPage: 2}, 5)

	assert.Equal(t, 2, page.CurrentPage)
	assert.True(t, page.HasNextPage)
	assert.True(t, page.HasPreviousPage)
	assert.Equal(t, 3, page.NextPage)
	assert.Equal(t, 1, page.PreviousPage)
	assert.Equal(t, 3, page.LastPage)
}

func TestNewPageLastAndEmpty(t *testing.T) {
	last := NewPage(Params{Page: 3, PerPage: 2}, 6)
	assert.False(t, last.HasNextPage)
	assert.Equal(t, 3, last.LastPage)

	empty := NewPage(Params{}, 0)
	assert.Equal(t, 1, empty.CurrentPage)
	assert.False(t, empty.HasNextPage)
	assert.False(t, empty.HasPreviousPage)
	assert.Equal(t, 1, empty.LastPage)
}

func TestParamsOffsetAndClamp(t *testing.T) {
	assert.Equal(t, 4, Params{Page: 3, PerPage: 2}.Offset())
	assert.Equal(t, 0, Params{Page: -1, PerPage: 2}.Offset())
	assert.Equal(t, MaxPerPage, Params{PerPage: 1000}.Normalize().PerPage)
	assert.Equal(t, DefaultPerPage, Params{}.Normalize().PerPage)
}
