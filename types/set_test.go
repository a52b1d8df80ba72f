package types

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_InsertExistsRemove(t *testing.T) {
	set := NewSet("assets", "funds", "assets")
	assert.Equal(t, 2, set.Len(), "duplicates should be ignored")
	assert.Equal(t, []string{"assets", "funds"}, set.Array())

	assert.True(t, set.Exists("funds"))
	assert.False(t, set.Exists("scenarios"))

	set.Insert("scenarios")
	set.Remove("assets")
	assert.Equal(t, []string{"funds", "scenarios"}, set.Array())
	assert.True(t, set.Exists("scenarios"), "indexes should be shifted after removal")

	set.Remove("missing")
	assert.Equal(t, 2, set.Len())
}

func TestSet_JSON(t *testing.T) {
	set := NewSet(3, 1, 2)
	data, err := json.Marshal(set)
	require.NoError(t, err)
	assert.JSONEq(t, `[3,1,2]`, string(data))

	decoded := NewSet[int]()
	require.NoError(t, json.Unmarshal([]byte(`[5,5,6]`), decoded))
	assert.Equal(t, []int{5, 6}, decoded.Array())
}
