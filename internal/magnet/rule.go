package magnet

import "fmt"

// Interaction signs returned by a Rule.
const (
	Repel   = -1.0
	Neutral = 0.0
	Attract = 1.0
)

// Rule decides whether two poles attract, repel or ignore each other. Both
// built-in rules follow the same convention: like repels, unlike attracts.
type Rule interface {
	Name() string
	Sign(a, b *Pole) float64
}

// PolarityRule compares the sign of the polarity product. A zero polarity on
// either side makes the pair neutral.
type PolarityRule struct{}

func (PolarityRule) Name() string { return "polarity" }

func (PolarityRule) Sign(a, b *Pole) float64 {
	p := a.Polarity * b.Polarity
	switch {
	case p > 0:
		return Repel
	case p < 0:
		return Attract
	default:
		return Neutral
	}
}

// TypeRule compares discrete type ids: equal types repel, different attract.
type TypeRule struct{}

func (TypeRule) Name() string { return "type" }

func (TypeRule) Sign(a, b *Pole) float64 {
	if a.Type == b.Type {
		return Repel
	}
	return Attract
}

// RuleByName resolves the name of a built-in rule.
func RuleByName(name string) (Rule, error) {
	switch name {
	case "", "polarity":
		return PolarityRule{}, nil
	case "type":
		return TypeRule{}, nil
	}
	return nil, fmt.Errorf("unknown rule: %s", name)
}
