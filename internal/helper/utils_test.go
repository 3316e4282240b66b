package helper

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUUID(t *testing.T) {
	id, err := GenerateUUID()
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	assert.NoError(t, err)
	assert.NotEqual(t, id, RunID())
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	s := "héllo"
	assert.Equal(t, "h", Truncate(s, 2))
	assert.Equal(t, "hé", Truncate(s, 3))
	assert.Equal(t, s, Truncate(s, 100))
	assert.Equal(t, "", Truncate(s, 0))
}

func TestTail(t *testing.T) {
	assert.Equal(t, "llo", Tail("héllo", 3))
	assert.Equal(t, "llo", Tail("héllo", 4))
	assert.Equal(t, "héllo", Tail("héllo", 10))
	assert.Equal(t, "", Tail("abc", 0))
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 0, WordCount("   "))
	assert.Equal(t, 3, WordCount("one  two\nthree"))
}

func TestPrettyPrint(t *testing.T) {
	var buf bytes.Buffer
	PrettyPrint(&buf, map[string]int{"chunks": 2})
	assert.Equal(t, "{\n  \"chunks\": 2\n}\n", buf.String())
}
