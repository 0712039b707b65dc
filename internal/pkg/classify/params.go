package classify

import (
	"errors"
	"fmt"
	"strings"
)

// ThresholdParams tunes the RGB threshold classifier.
type ThresholdParams struct {
	// Limit is the per-channel brightness a pixel must reach on R, G and B to count as bright.
	Limit int `mapstructure:"limit"`

	// Bright pixels below this average brightness are never treated as city lights.
	CityLightMinBrightness int `mapstructure:"city_light_min_brightness"`

	// RedDominanceThreshold is the R-B margin that marks an orange/red light.
	RedDominanceThreshold int `mapstructure:"red_dominance_threshold"`
	// YellowOrangeBoost lowers the margin for yellow lights, where both R and G exceed B.
	YellowOrangeBoost int `mapstructure:"yellow_orange_boost"`

	ConfidenceHigh   int `mapstructure:"confidence_high"`
	ConfidenceMedium int `mapstructure:"confidence_medium"`
	ConfidenceLow    int `mapstructure:"confidence_low"`
}

// DefaultParams returns the thresholds tuned for the GOES merged night/day product.
func DefaultParams() ThresholdParams {
	return ThresholdParams{
		Limit:                  148,
		CityLightMinBrightness: 148,
		RedDominanceThreshold:  45,
		YellowOrangeBoost:      35, // yellow margin 45-35 = 10
		ConfidenceHigh:         75,
		ConfidenceMedium:       55,
		ConfidenceLow:          35,
	}
}

// YellowMargin is the R-B and G-B margin used for yellow lights.
func (p ThresholdParams) YellowMargin() int {
	return p.RedDominanceThreshold - p.YellowOrangeBoost
}

// Validate reports every out-of-range parameter at once.
func (p ThresholdParams) Validate() error {
	var errs []string

	channel := func(name string, v int) {
		if v < 0 || v > 255 {
			errs = append(errs, fmt.Sprintf("%s must be within 0..255, got %d", name, v))
		}
	}
	channel("limit", p.Limit)
	channel("city_light_min_brightness", p.CityLightMinBrightness)
	channel("red_dominance_threshold", p.RedDominanceThreshold)
	channel("yellow_orange_boost", p.YellowOrangeBoost)

	pct := func(name string, v int) {
		if v < 0 || v > 100 {
			errs = append(errs, fmt.Sprintf("%s must be within 0..100, got %d", name, v))
		}
	}
	pct("confidence_high", p.ConfidenceHigh)
	pct("confidence_medium", p.ConfidenceMedium)
	pct("confidence_low", p.ConfidenceLow)

	if p.Limit == 0 {
		errs = append(errs, "limit must be positive")
	}

	if len(errs) > 0 {
		return errors.New("invalid threshold params: " + strings.Join(errs, "; "))
	}
	return nil
}
