package scoring

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Honors labels of the default scale.
const (
	HonorsExcellentWithHonors = "excellent with honors"
	HonorsExcellent           = "excellent"
	HonorsVeryGood            = "very good"
	HonorsGood                = "good"
)

// Tier awards Label to any percentage >= Min.
type Tier struct {
	Min   float64 `toml:"min"`
	Label string  `toml:"label"`
}

// HonorsScale is an ordered list of tiers, highest threshold first.
// Honors are cosmetic and independent of an exam's passing grade.
type HonorsScale struct {
	Tiers []Tier `toml:"tiers"`
}

// DefaultHonorsScale returns the built-in thresholds.
func DefaultHonorsScale() HonorsScale {
	return HonorsScale{Tiers: []Tier{
		{Min: 95, Label: HonorsExcellentWithHonors},
		{Min: 85, Label: HonorsExcellent},
		{Min: 75, Label: HonorsVeryGood},
		{Min: 70, Label: HonorsGood},
	}}
}

// Classify maps a percentage onto its label, or "" below the lowest tier.
func (s HonorsScale) Classify(percentage float64) string {
	for _, t := range s.Tiers {
		if percentage >= t.Min {
			return t.Label
		}
	}
	return ""
}

// Classify uses the default scale.
func Classify(percentage float64) string {
	return defaultScale.Classify(percentage)
}

var defaultScale = DefaultHonorsScale()

// ParseHonorsScale decodes a TOML document of [[tiers]] tables.
func ParseHonorsScale(data []byte) (HonorsScale, error) {
	var s HonorsScale
	if err := toml.Unmarshal(data, &s); err != nil {
		return HonorsScale{}, fmt.Errorf("decode honors scale: %w", err)
	}
	if len(s.Tiers) == 0 {
		return HonorsScale{}, errors.New("honors scale has no tiers")
	}
	for i, t := range s.Tiers {
		if strings.TrimSpace(t.Label) == "" {
			return HonorsScale{}, fmt.Errorf("tier %d: empty label", i)
		}
		if t.Min < 0 || t.Min > 100 {
			return HonorsScale{}, fmt.Errorf("tier %q: min %v outside [0, 100]", t.Label, t.Min)
		}
	}
	sort.SliceStable(s.Tiers, func(i, j int) bool { return s.Tiers[i].Min > s.Tiers[j].Min })
	return s, nil
}

// LoadHonorsScale reads path, or returns the default scale when path is empty.
func LoadHonorsScale(path string) (HonorsScale, error) {
	if path == "" {
		return DefaultHonorsScale(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return HonorsScale{}, fmt.Errorf("read honors scale: %w", err)
	}
	return ParseHonorsScale(data)
}
