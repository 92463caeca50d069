package paginate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"currency-gateway/internal/paginate"
)

func TestPaginate_ConcatenationReproducesDataset(t *testing.T) {
	items := make([]int, 0, 10)
	for i := 0; i < 10; i++ {
		items = append(items, i)
	}

	pageSize := 3
	first := paginate.Paginate(items, 1, pageSize)
	require.Equal(t, 4, first.TotalPages)

	var joined []int
	for p := 1; p <= first.TotalPages; p++ {
		page := paginate.Paginate(items, p, pageSize)
		assert.LessOrEqual(t, len(page.Items), pageSize)
		assert.Equal(t, 10, page.TotalItems)
		joined = append(joined, page.Items...)
	}

	assert.Equal(t, items, joined)
}

func TestPaginate_MiddlePage(t *testing.T) {
	page := paginate.Paginate([]string{"a", "b", "c"}, 2, 1)

	assert.Equal(t, []string{"b"}, page.Items)
	assert.Equal(t, 3, page.TotalItems)
	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.HasNext)
	assert.True(t, page.HasPrevious)
}

func TestPaginate_PageBeyondEnd(t *testing.T) {
	page := paginate.Paginate([]string{"a", "b", "c"}, 5, 2)

	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
	assert.Equal(t, 3, page.TotalItems)
	assert.Equal(t, 2, page.TotalPages)
	assert.False(t, page.HasNext)
	assert.True(t, page.HasPrevious)
}

func TestPaginate_EmptyDataset(t *testing.T) {
	page := paginate.Paginate([]int{}, 1, 10)

	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.TotalItems)
	assert.Equal(t, 0, page.TotalPages)
	assert.False(t, page.HasNext)
	assert.False(t, page.HasPrevious)
}

func TestPaginate_LastPartialPage(t *testing.T) {
	page := paginate.Paginate([]int{1, 2, 3, 4, 5}, 2, 3)

	assert.Equal(t, []int{4, 5}, page.Items)
	assert.Equal(t, 2, page.TotalPages)
	assert.False(t, page.HasNext)
}

func TestPaginate_CopyDoesNotAliasInput(t *testing.T) {
	items := []int{1, 2, 3}
	page := paginate.Paginate(items, 1, 3)

	page.Items[0] = 99
	assert.Equal(t, 1, items[0])
}
