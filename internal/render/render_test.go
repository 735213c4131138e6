package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/danielpatrickdp/feedback-layer/internal/association"
	"github.com/danielpatrickdp/feedback-layer/internal/selector"
)

var entries = []association.Entry{
	{Key: association.Key{Mode: "directive", Token: "engineering"}, Value: 0.5},
	{Key: association.Key{Mode: "neutral", Token: "engineering"}, Value: 0.6},
	{Key: association.Key{Mode: "supportive", Token: "overload"}, Value: -0.25},
	{Key: association.Key{Mode: "supportive", Token: "zeta"}, Value: 1},
}

func TestFlat(t *testing.T) {
	want := "directive|engineering: 0.500\n" +
		"neutral|engineering: 0.600\n" +
		"supportive|overload: -0.250\n" +
		"supportive|zeta: 1.000\n"
	assert.Equal(t, want, Flat(entries))
	assert.Equal(t, "", Flat(nil))
}

func TestMatrix(t *testing.T) {
	out := Matrix([]string{"neutral", "supportive", "directive"}, []string{"overload", "engineering"}, entries)
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 4)

	assert.Contains(t, lines[0], "overload")
	assert.Contains(t, lines[0], "engineering")
	assert.Contains(t, lines[0], "zeta")
	assert.Less(t, strings.Index(lines[0], "engineering"), strings.Index(lines[0], "zeta"))

	assert.Contains(t, lines[1], "neutral")
	assert.Contains(t, lines[1], "+0.60")
	assert.Contains(t, lines[2], "-0.25")
	assert.Contains(t, lines[2], "+1.00")
	assert.Contains(t, lines[3], "+0.50")
}

func TestMatrixEmpty(t *testing.T) {
	out := Matrix([]string{"neutral"}, nil, nil)
	assert.Contains(t, out, "neutral")
}

func TestDecision(t *testing.T) {
	out := Decision("abc", "supportive", []selector.Ranked{
		{Mode: "supportive", Score: 0.4},
		{Mode: "neutral", Score: 0.3},
	})
	assert.Contains(t, out, "Selected mode:")
	assert.Contains(t, out, "supportive")
	assert.Contains(t, out, "decision abc")
	assert.Contains(t, out, "0.400")
	assert.Contains(t, out, "> supportive")
}
