package prompt

import (
	"image"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	s, err := ParseSize("EXTENSIVE")
	require.NoError(t, err)
	assert.Equal(t, SizeExtensive, s)

	_, err = ParseSize("medium")
	assert.EqualError(t, err, "invalid prompt choice. Must be 'concise' or 'extensive'")
}

func TestPosition(t *testing.T) {
	size := image.Pt(900, 900)
	assert.Equal(t, "top-left", Position(image.Rect(0, 0, 100, 100), size))
	assert.Equal(t, "bottom-right", Position(image.Rect(800, 800, 900, 900), size))
	assert.Equal(t, "center", Position(image.Rect(400, 400, 500, 500), size))
	assert.Equal(t, "middle-left", Position(image.Rect(0, 400, 100, 500), size))
}

func TestRegionPrompt(t *testing.T) {
	p := RegionPrompt("component", 2, 5, image.Rect(10, 20, 110, 70), image.Pt(1000, 800))
	assert.True(t, strings.HasPrefix(p, VisionAnalysis))
	assert.Contains(t, p, "- Component 2 of 5")
	assert.Contains(t, p, "x=10 y=20 width=100 height=50 (screenshot 1000x800)")
}

func TestBuildSuperPromptConcise(t *testing.T) {
	out := BuildSuperPrompt(Input{
		Term:        "region",
		MainCaption: "two column layout",
		Regions:     []string{"nav bar", "hero"},
		Activity:    "click sign up",
		Size:        SizeConcise,
	})

	assert.Contains(t, out, "[Region Analysis]\nRegion 1: nav bar\nRegion 2: hero\n")
	assert.Contains(t, out, "[Layout Analysis]\ntwo column layout\n")
	assert.Contains(t, out, "[Interactive Elements]\nclick sign up\n")
	assert.Contains(t, out, "systematic analysis framework")
	assert.NotContains(t, out, "%!")
}

func TestBuildSuperPromptExtensive(t *testing.T) {
	out := BuildSuperPrompt(Input{
		Term:    "component",
		Regions: []string{"button"},
		Size:    SizeExtensive,
	})

	assert.Contains(t, out, "[Components Specifications by Location]\nComponent 1: button\n")
	assert.Contains(t, out, "[Layout Structure]\n"+noLayout+"\n")
	assert.Contains(t, out, "3 columns at 33% each")
	assert.NotContains(t, out, "%!")
}
