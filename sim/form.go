package sim

import (
	"gonum.org/v1/gonum/stat"
)

// Form is a qualitative read of a player's recent scoring trajectory.
type Form string

const (
	FormHot     Form = "hot"
	FormWarm    Form = "warm"
	FormNormal  Form = "normal"
	FormCold    Form = "cold"
	FormIceCold Form = "ice_cold"
)

// Modifier returns the multiplicative adjustment applied uniformly to all
// stats for a player in this form.
func (f Form) Modifier() float64 {
	switch f {
	case FormHot:
		return 1.15
	case FormWarm:
		return 1.08
	case FormCold:
		return 0.92
	case FormIceCold:
		return 0.85
	}
	return 1.0
}

// homeModifier is the flat home-court adjustment.
func homeModifier(isHome bool) float64 {
	if isHome {
		return 1.05
	}
	return 0.98
}

// AssessForm classifies a player's trajectory from recent games. It looks
// at scoring in the last five games, compares the mean of the earlier half
// with the mean of the later half (the middle game of an odd-length window
// is left out of both), and buckets the relative change:
//
//	> +15%  hot
//	> +5%   warm
//	< -15%  ice_cold
//	< -5%   cold
//	else    normal
//
// Fewer than three games is not enough signal and reads as normal.
func AssessForm(recent []GameStats) Form {
	if len(recent) < 3 {
		return FormNormal
	}

	window := recent
	if len(window) > 5 {
		window = window[len(window)-5:]
	}

	points := make([]float64, 0, len(window))
	for _, g := range window {
		points = append(points, float64(g.Points))
	}
	if len(points) < 3 {
		return FormNormal
	}

	half := len(points) / 2
	first := stat.Mean(points[:half], nil)
	second := stat.Mean(points[len(points)-half:], nil)

	// A scoreless early stretch carries no trend information.
	var change float64
	if first > 0 {
		change = (second - first) / first
	}

	switch {
	case change > 0.15:
		return FormHot
	case change > 0.05:
		return FormWarm
	case change < -0.15:
		return FormIceCold
	case change < -0.05:
		return FormCold
	}
	return FormNormal
}
