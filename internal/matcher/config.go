package matcher

import (
	"fmt"

	"github.com/spigell/wisy/internal/textutil"
)

const (
	// DefaultThreshold is the minimum score a fuzzy match needs to be trusted.
	// A looser value of 30 let single shared tokens through.
	DefaultThreshold        = 40
	DefaultContainmentBonus = 50
	DefaultTokenBonus       = 20
	DefaultDistanceBonus    = 30
	DefaultMaxDistance      = 3
)

// Config holds the scoring weights and the synonym rules. A zero value means
// "use the default", so a threshold of 0 cannot be configured; negative
// values are rejected by Validate.
type Config struct {
	Threshold        int `mapstructure:"threshold"`
	MinTokenLength   int `mapstructure:"min-token-length"`
	MaxDistance      int `mapstructure:"max-distance"`
	ContainmentBonus int `mapstructure:"containment-bonus"`
	TokenBonus       int `mapstructure:"token-bonus"`
	DistanceBonus    int `mapstructure:"distance-bonus"`

	// Synonyms replaces DefaultSynonyms when not empty.
	Synonyms []SynonymRule `mapstructure:"-"`
}

func DefaultConfig() Config {
	return Config{
		Threshold:        DefaultThreshold,
		MinTokenLength:   textutil.DefaultMinTokenLength,
		MaxDistance:      DefaultMaxDistance,
		ContainmentBonus: DefaultContainmentBonus,
		TokenBonus:       DefaultTokenBonus,
		DistanceBonus:    DefaultDistanceBonus,
	}
}

// Validate rejects negative weights.
func (c Config) Validate() error {
	fields := []struct {
		name  string
		value int
	}{
		{"threshold", c.Threshold},
		{"min-token-length", c.MinTokenLength},
		{"max-distance", c.MaxDistance},
		{"containment-bonus", c.ContainmentBonus},
		{"token-bonus", c.TokenBonus},
		{"distance-bonus", c.DistanceBonus},
	}
	for _, f := range fields {
		if f.value < 0 {
			return fmt.Errorf("%s must not be negative, got %d", f.name, f.value)
		}
	}
	return nil
}

// withDefaults fills zero values from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Threshold <= 0 {
		c.Threshold = d.Threshold
	}
	if c.MinTokenLength <= 0 {
		c.MinTokenLength = d.MinTokenLength
	}
	if c.MaxDistance <= 0 {
		c.MaxDistance = d.MaxDistance
	}
	if c.ContainmentBonus <= 0 {
		c.ContainmentBonus = d.ContainmentBonus
	}
	if c.TokenBonus <= 0 {
		c.TokenBonus = d.TokenBonus
	}
	if c.DistanceBonus <= 0 {
		c.DistanceBonus = d.DistanceBonus
	}
	if len(c.Synonyms) == 0 {
		c.Synonyms = DefaultSynonyms()
	}
	return c
}
