// Package scoring maps 0-100 resume scores onto the labels, colours and icons shown in the UI.
package scoring

import (
	"fmt"
	"math"
)

// Tone is the colour family used for a score.
type Tone string

// Tones used by badges and the ATS panel.
const (
	ToneGreen  Tone = "green"
	ToneYellow Tone = "yellow"
	ToneRed    Tone = "red"
)

// Badge describes the labelled colour badge for a score.
type Badge struct {
	Label     string
	Tone      Tone
	BgClass   string
	TextClass string
}

// BadgeFor maps a score to its badge:
// above 70 is "Strong", above 49 is "Good Start", anything else "Needs Work".
func BadgeFor(score float64) Badge {
	tone, label := ToneRed, "Needs Work"
	switch {
	case score > 70:
		tone, label = ToneGreen, "Strong"
	case score > 49:
		tone, label = ToneYellow, "Good Start"
	}

	return Badge{
		Label:     label,
		Tone:      tone,
		BgClass:   "bg-badge-" + string(tone),
		TextClass: fmt.Sprintf("text-%s-600", tone),
	}
}

// ATSLevel describes the header styling of the ATS panel.
type ATSLevel struct {
	Tone         Tone
	GradientFrom string
	Icon         string
}

// ATSLevelFor maps an ATS score to the panel styling.
// The ATS panel turns green above 69, one point earlier than badges.
func ATSLevelFor(score float64) ATSLevel {
	switch {
	case score > 69:
		return ATSLevel{Tone: ToneGreen, GradientFrom: "from-green-100", Icon: "/icons/ats-good.svg"}
	case score > 49:
		return ATSLevel{Tone: ToneYellow, GradientFrom: "from-yellow-100", Icon: "/icons/ats-warning.svg"}
	default:
		return ATSLevel{Tone: ToneRed, GradientFrom: "from-red-100", Icon: "/icons/ats-bad.svg"}
	}
}

// TipIcon is the icon shown next to a feedback tip.
type TipIcon struct {
	Src string
	Alt string
}

// TipIconFor returns the check icon for "good" tips and the warning icon otherwise.
func TipIconFor(tipType string) TipIcon {
	if tipType == "good" {
		return TipIcon{Src: "/icons/check.svg", Alt: "Good"}
	}
	return TipIcon{Src: "/icons/warning.svg", Alt: "Improve"}
}

// CircleRadius is the radius of the score ring in SVG user units.
const CircleRadius = 40.0

// Circle holds the geometry of the circular score indicator.
type Circle struct {
	Score         float64
	Radius        float64
	Circumference float64
	DashOffset    float64
}

// CircleFor computes the progress ring for a score. The score is clamped first.
func CircleFor(score float64) Circle {
	s := Clamp(score)
	c := 2 * math.Pi * CircleRadius
	return Circle{
		Score:         s,
		Radius:        CircleRadius,
		Circumference: c,
		DashOffset:    c * (1 - s/100),
	}
}

// Clamp limits n to [0, 100]. NaN clamps to 0.
func Clamp(n float64) float64 {
	if math.IsNaN(n) {
		return 0
	}
	return math.Max(0, math.Min(100, n))
}

// Display renders a score without a trailing ".0" for whole numbers.
func Display(score float64) string {
	if score == math.Trunc(score) {
		return fmt.Sprintf("%.0f", score)
	}
	return fmt.Sprintf("%.1f", score)
}
