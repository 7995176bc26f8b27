package challenge

import (
	"fmt"
	"strconv"

	"github.com/borgmon/math-alarm/pkg/models"
)

func (p *Default) math(difficulty models.Difficulty) Descriptor {
	switch difficulty {
	case models.DifficultyMedium:
		a, b := p.intn(2, 12), p.intn(2, 12)
		return numeric(fmt.Sprintf("%d × %d = ?", a, b), float64(a*b))

	case models.DifficultyHard:
		a, b, c := p.intn(5, 24), p.intn(2, 11), p.intn(2, 11)
		switch p.rng.IntN(3) {
		case 0:
			return numeric(fmt.Sprintf("(%d + %d) × %d = ?", a, b, c), float64((a+b)*c))
		case 1:
			return numeric(fmt.Sprintf("%d × %d - %d = ?", a, b, c), float64(a*b-c))
		default:
			hi, lo := max(a, b), min(a, b)
			return numeric(fmt.Sprintf("(%d - %d) × %d = ?", hi, lo, c), float64((hi-lo)*c))
		}

	case models.DifficultyExpert:
		switch p.rng.IntN(3) {
		case 0:
			return p.quadratic()
		case 1:
			a, b := p.intn(10, 39), p.intn(10, 39)
			if p.rng.IntN(2) == 0 {
				return numeric(fmt.Sprintf("What is the least common multiple (LCM) of %d and %d?", a, b), float64(lcm(a, b)))
			}
			return numeric(fmt.Sprintf("What is the greatest common divisor (GCD) of %d and %d?", a, b), float64(gcd(a, b)))
		default:
			base, pct := p.intn(50, 149), p.intn(10, 99)
			return numeric(fmt.Sprintf("What is %d%% of %d?", pct, base), float64(base*pct)/100)
		}

	default:
		a, b := p.intn(1, 20), p.intn(1, 20)
		if p.rng.IntN(2) == 0 {
			return numeric(fmt.Sprintf("%d + %d = ?", a, b), float64(a+b))
		}
		hi, lo := max(a, b), min(a, b)
		return numeric(fmt.Sprintf("%d - %d = ?", hi, lo), float64(hi-lo))
	}
}

// quadratic builds x² + bx + c = 0 with integer roots; either root is accepted
func (p *Default) quadratic() Descriptor {
	x1, x2 := p.intn(-5, 4), p.intn(-5, 4)
	b, c := -(x1 + x2), x1*x2

	return numeric(
		fmt.Sprintf("If x² %sx %s = 0, and x is an integer, what is one possible value of x?", signed(b), signed(c)),
		float64(x1), float64(x2),
	)
}

func numeric(question string, accepted ...float64) Descriptor {
	return Descriptor{
		Question: question,
		Rule:     RuleNumeric,
		Answer:   strconv.FormatFloat(accepted[0], 'f', -1, 64),
		Accepted: accepted,
	}
}

func signed(n int) string {
	if n >= 0 {
		return fmt.Sprintf("+ %d", n)
	}
	return fmt.Sprintf("- %d", -n)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int) int {
	return a / gcd(a, b) * b
}
