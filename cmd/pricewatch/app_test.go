package main

import (
	"testing"

	"github.com/smallbiznis/pricewatch/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterSnowflake(t *testing.T) {
	node, err := RegisterSnowflake(config.Config{SnowflakeNode: 7})
	require.NoError(t, err)
	assert.Equal(t, int64(7), node.Generate().Node())

	_, err = RegisterSnowflake(config.Config{SnowflakeNode: config.MaxSnowflakeNode})
	assert.NoError(t, err)

	for _, bad := range []int64{-1, config.MaxSnowflakeNode + 1} {
		_, err := RegisterSnowflake(config.Config{SnowflakeNode: bad})
		assert.ErrorContains(t, err, "SNOWFLAKE_NODE")
	}
}
