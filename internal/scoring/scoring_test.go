package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBadgeFor(t *testing.T) {
	tests := []struct {
		score     float64
		label     string
		tone      Tone
		bgClass   string
		textClass string
	}{
		{100, "Strong", ToneGreen, "bg-badge-green", "text-green-600"},
		{71, "Strong", ToneGreen, "bg-badge-green", "text-green-600"},
		{70, "Good Start", ToneYellow, "bg-badge-yellow", "text-yellow-600"},
		{50, "Good Start", ToneYellow, "bg-badge-yellow", "text-yellow-600"},
		{49.5, "Good Start", ToneYellow, "bg-badge-yellow", "text-yellow-600"},
		{49, "Needs Work", ToneRed, "bg-badge-red", "text-red-600"},
		{0, "Needs Work", ToneRed, "bg-badge-red", "text-red-600"},
		{-10, "Needs Work", ToneRed, "bg-badge-red", "text-red-600"},
	}

	for _, tt := range tests {
		b := BadgeFor(tt.score)
		assert.Equal(t, tt.label, b.Label, "score %v", tt.score)
		assert.Equal(t, tt.tone, b.Tone, "score %v", tt.score)
		assert.Equal(t, tt.bgClass, b.BgClass, "score %v", tt.score)
		assert.Equal(t, tt.textClass, b.TextClass, "score %v", tt.score)
	}
}

func TestATSLevelFor(t *testing.T) {
	tests := []struct {
		score    float64
		gradient string
		icon     string
	}{
		{95, "from-green-100", "/icons/ats-good.svg"},
		{70, "from-green-100", "/icons/ats-good.svg"},
		{69, "from-yellow-100", "/icons/ats-warning.svg"},
		{50, "from-yellow-100", "/icons/ats-warning.svg"},
		{49, "from-red-100", "/icons/ats-bad.svg"},
		{0, "from-red-100", "/icons/ats-bad.svg"},
	}

	for _, tt := range tests {
		level := ATSLevelFor(tt.score)
		assert.Equal(t, tt.gradient, level.GradientFrom, "score %v", tt.score)
		assert.Equal(t, tt.icon, level.Icon, "score %v", tt.score)
	}
}

func TestBadgeAndATSDisagreeAtSeventy(t *testing.T) {
	assert.Equal(t, ToneYellow, BadgeFor(70).Tone)
	assert.Equal(t, ToneGreen, ATSLevelFor(70).Tone)
}

func TestTipIconFor(t *testing.T) {
	assert.Equal(t, TipIcon{Src: "/icons/check.svg", Alt: "Good"}, TipIconFor("good"))
	assert.Equal(t, TipIcon{Src: "/icons/warning.svg", Alt: "Improve"}, TipIconFor("improve"))
	assert.Equal(t, TipIcon{Src: "/icons/warning.svg", Alt: "Improve"}, TipIconFor(""))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-1))
	assert.Equal(t, 0.0, Clamp(math.NaN()))
	assert.Equal(t, 42.0, Clamp(42))
	assert.Equal(t, 100.0, Clamp(150))
	assert.Equal(t, 100.0, Clamp(math.Inf(1)))
	assert.Equal(t, 0.0, Clamp(math.Inf(-1)))
}

func TestCircleFor(t *testing.T) {
	full := CircleFor(100)
	assert.InDelta(t, 0, full.DashOffset, 1e-9)

	empty := CircleFor(0)
	assert.InDelta(t, empty.Circumference, empty.DashOffset, 1e-9)

	half := CircleFor(50)
	assert.InDelta(t, half.Circumference/2, half.DashOffset, 1e-9)
	assert.Equal(t, CircleRadius, half.Radius)

	over := CircleFor(250)
	assert.Equal(t, 100.0, over.Score)
}

func TestDisplay(t *testing.T) {
	assert.Equal(t, "72", Display(72))
	assert.Equal(t, "72.5", Display(72.5))
	assert.Equal(t, "0", Display(0))
}
