package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const prose = "The committee reviewed the annual budget and approved new funding for regional schools. " +
	"Teachers will receive additional training, and several buildings are scheduled for renovation next spring. " +
	"Parents expressed support for the plan during the public hearing held last Thursday evening."

func TestGateRejectsShortText(t *testing.T) {
	g := NewGate(0, 0)
	assert.False(t, g.IsValid(""))
	assert.False(t, g.IsValid("   \n\t "))
	assert.False(t, g.IsValid(strings.Repeat("a", 100)))
	assert.True(t, g.IsValid(strings.Repeat("a", 101)))
	// padding does not count towards the length
	assert.False(t, g.IsValid("   "+strings.Repeat("a", 100)+"   "))
}

func TestGateRejectsMetadataNoise(t *testing.T) {
	g := NewGate(0, 0)
	noise := strings.Repeat("endstream endobj /FlateDecode /Length obj ", 20)
	assert.Greater(t, MetadataRatio(noise), 0.7)
	assert.False(t, g.IsValid(noise))
}

func TestGateAcceptsProse(t *testing.T) {
	g := NewGate(0, 0)
	assert.Less(t, MetadataRatio(prose), 0.1)
	assert.True(t, g.IsValid(prose))
}

func TestGateShortTextRejectedRegardlessOfRatio(t *testing.T) {
	g := NewGate(0, 0)
	short := "Plain words only."
	assert.Equal(t, 0.0, MetadataRatio(short))
	assert.False(t, g.IsValid(short))
}

func TestGateCustomThresholds(t *testing.T) {
	g := NewGate(10, 0.2)
	mixed := "object stream data: " + strings.Repeat("word ", 10)
	assert.Greater(t, MetadataRatio(mixed), 0.0)
	assert.Equal(t, MetadataRatio(mixed) <= 0.2, g.IsValid(mixed))
}

func TestMetadataRatioIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, MetadataRatio("ENDSTREAM"), MetadataRatio("endstream"))
	assert.Equal(t, 0.0, MetadataRatio(""))
}
