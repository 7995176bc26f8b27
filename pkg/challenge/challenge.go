package challenge

import (
	"fmt"
	"math"
	"math/rand/v2"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/borgmon/math-alarm/pkg/models"
)

// Rule says how an answer is checked
type Rule string

const (
	RuleNumeric   Rule = "numeric"   // any of Accepted within tolerance
	RuleExact     Rule = "exact"     // Answer, ignoring surrounding spaces and separators
	RulePredicate Rule = "predicate" // Pattern matches; empty Pattern accepts anything
)

// Tolerance for numeric answers
const Tolerance = 0.001

// Descriptor is one generated challenge
type Descriptor struct {
	Kind       models.ChallengeKind
	Difficulty models.Difficulty
	Question   string
	Rule       Rule
	Answer     string    // expected answer shown after giving up
	Accepted   []float64 // RuleNumeric
	Options    []string  // shuffled letters for alphabet challenges
	Pattern    *regexp.Regexp
}

// Provider generates and verifies challenges
type Provider interface {
	Generate(kind models.ChallengeKind, difficulty models.Difficulty) (Descriptor, error)
	Verify(d Descriptor, answer string) bool
}

// Default is the built-in math, alphabet and QR provider. It is safe for concurrent use.
type Default struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewDefault creates a provider; rng may be nil for a randomly seeded one
func NewDefault(rng *rand.Rand) *Default {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Default{rng: rng}
}

// Generate implements Provider. Unknown difficulties fall back to Easy.
func (p *Default) Generate(kind models.ChallengeKind, difficulty models.Difficulty) (Descriptor, error) {
	if !slices.Contains(models.Difficulties, difficulty) {
		difficulty = models.DifficultyEasy
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var d Descriptor
	switch kind {
	case models.ChallengeMath:
		d = p.math(difficulty)
	case models.ChallengeAlphabet:
		d = p.alphabet(difficulty)
	case models.ChallengeQRCode:
		d = qrcode(difficulty)
	default:
		return Descriptor{}, fmt.Errorf("challenge kind %q: %w", kind, models.ErrValidation)
	}
	d.Kind = kind
	d.Difficulty = difficulty
	return d, nil
}

// Verify implements Provider. Malformed answers are simply wrong.
func (p *Default) Verify(d Descriptor, answer string) bool {
	return Verify(d, answer)
}

// Verify checks answer against d
func Verify(d Descriptor, answer string) bool {
	answer = strings.TrimSpace(answer)

	switch d.Rule {
	case RuleNumeric:
		v, err := strconv.ParseFloat(answer, 64)
		if err != nil || math.IsNaN(v) {
			return false
		}
		for _, want := range d.Accepted {
			if math.Abs(v-want) < Tolerance {
				return true
			}
		}
		return false
	case RuleExact:
		return compact(answer) == d.Answer
	case RulePredicate:
		if d.Pattern == nil {
			return true
		}
		return d.Pattern.MatchString(answer)
	}
	return false
}

// compact drops the spaces and commas people type between letters
func compact(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == ',' || r == '\t' {
			return -1
		}
		return r
	}, s)
}

func (p *Default) intn(lo, hi int) int {
	return lo + p.rng.IntN(hi-lo+1)
}
