package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDCursorRoundTrip(t *testing.T) {
	token := EncodeIDCursor(1789123456789)
	id, err := DecodeIDCursor(token)
	require.NoError(t, err)
	assert.Equal(t, int64(1789123456789), id)

	id, err = DecodeIDCursor("")
	require.NoError(t, err)
	assert.Zero(t, id)

	_, err = DecodeIDCursor("not a token!")
	assert.Error(t, err)
}

func TestBuildCursorPageInfo(t *testing.T) {
	ids := []int{1, 2, 3}
	extract := func(v int) string { return EncodeIDCursor(int64(v)) }

	page, info := BuildCursorPageInfo(ids, 2, extract)
	assert.Equal(t, []int{1, 2}, page)
	assert.True(t, info.HasMore)
	assert.Equal(t, EncodeIDCursor(2), info.NextPageToken)

	page, info = BuildCursorPageInfo(ids, 3, extract)
	assert.Len(t, page, 3)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}

func TestLimit(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Limit())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 10000}.Limit())
	assert.Equal(t, 7, Pagination{PageSize: 7}.Limit())
}
