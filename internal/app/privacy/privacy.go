package privacy

import (
	"math"
	"strings"

	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/claims"
)

type Level string

const (
	LevelMinimal  Level = "minimal"
	LevelStandard Level = "standard"
	LevelMaximum  Level = "maximum"
)

func (l Level) Label() string {
	switch l {
	case LevelMaximum:
		return "Maximum"
	case LevelStandard:
		return "Standard"
	default:
		return "Minimal"
	}
}

const (
	equalsPenalty    = 30.0
	sensitivePenalty = 20.0
	comparisonBonus  = 10.0
)

var sensitiveTerms = []string{"salary", "age", "address", "income", "health", "financial"}

type Assessment struct {
	Score int    `json:"score"`
	Level Level  `json:"level"`
	Label string `json:"label"`
}

// Score is a heuristic of how much a claim set reveals; 100 reveals least.
func Score(requirements []claims.Requirement) int {
	total := float64(len(requirements))
	if total == 0 {
		return 100
	}

	var equalsCount, sensitiveCount, comparisonCount float64
	for _, r := range requirements {
		if r.Operation == claims.OpEquals && r.Value != nil {
			equalsCount++
		}
		if isSensitive(r.Attribute) {
			sensitiveCount++
		}
		switch r.Operation {
		case claims.OpGreaterThan, claims.OpLessThan, claims.OpRange, claims.OpExists:
			comparisonCount++
		}
	}

	score := 100.0
	score -= equalsPenalty * equalsCount / total
	score -= sensitivePenalty * sensitiveCount / total
	score += comparisonBonus * comparisonCount / total

	return int(math.Max(0, math.Min(100, math.Round(score))))
}

func LevelFor(score int) Level {
	switch {
	case score >= 80:
		return LevelMaximum
	case score >= 60:
		return LevelStandard
	default:
		return LevelMinimal
	}
}

func Assess(requirements []claims.Requirement) Assessment {
	score := Score(requirements)
	level := LevelFor(score)
	return Assessment{Score: score, Level: level, Label: level.Label()}
}

func isSensitive(attribute string) bool {
	name := strings.ToLower(attribute)
	for _, term := range sensitiveTerms {
		if strings.Contains(name, term) {
			return true
		}
	}
	return false
}
