package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeIDs(t *testing.T) {
	assert.Equal(t, "[]", EncodeIDs(nil))
	assert.Equal(t, "[]", EncodeIDs([]string{}))
	assert.Equal(t, `["a","b"]`, EncodeIDs([]string{"a", "b"}))

	assert.Equal(t, []string{"a", "b"}, DecodeIDs(`["a","b"]`))
	assert.Empty(t, DecodeIDs("[]"))
	assert.Nil(t, DecodeIDs(""))
	assert.Nil(t, DecodeIDs("garbage"), "malformed values decode as empty, not error")
}

func TestRemovedIDs(t *testing.T) {
	assert.Equal(t, []string{"b"}, RemovedIDs([]string{"a", "b"}, []string{"a", "c"}))
	assert.Nil(t, RemovedIDs([]string{"a"}, []string{"a"}))
	assert.Equal(t, []string{"a"}, RemovedIDs([]string{"a"}, nil))
	assert.Nil(t, RemovedIDs(nil, []string{"a"}))
}

func TestSameIDs(t *testing.T) {
	assert.True(t, SameIDs(nil, nil))
	assert.True(t, SameIDs([]string{"a"}, []string{"a"}))
	assert.False(t, SameIDs([]string{"a", "b"}, []string{"b", "a"}), "order is significant")
	assert.False(t, SameIDs([]string{"a"}, []string{"a", "b"}))
}
