package challenge

import (
	"fmt"
	"slices"
	"strings"

	"github.com/borgmon/math-alarm/pkg/models"
)

func (p *Default) alphabet(difficulty models.Difficulty) Descriptor {
	var letters []string
	reverse := false
	prompt := "Arrange these letters in alphabetical order"

	switch difficulty {
	case models.DifficultyMedium:
		letters = p.distinctLetters(p.intn(5, 6), 0)
	case models.DifficultyHard:
		letters = p.distinctLetters(p.intn(5, 7), 0.5)
		prompt = "Arrange these letters in alphabetical order (uppercase before lowercase)"
	case models.DifficultyExpert:
		letters = p.distinctLetters(p.intn(6, 8), 0.3)
		reverse = true
		prompt = "Arrange these letters in REVERSE alphabetical order (Z→A)"
	default:
		n := p.intn(3, 4)
		start := p.rng.IntN(26 - n + 1)
		for i := 0; i < n; i++ {
			letters = append(letters, string(rune('a'+start+i)))
		}
	}

	// byte order puts every uppercase letter before every lowercase one
	sorted := slices.Clone(letters)
	slices.Sort(sorted)
	if reverse {
		slices.Reverse(sorted)
	}

	shuffled := slices.Clone(letters)
	p.rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	return Descriptor{
		Question: fmt.Sprintf("%s: %s", prompt, strings.Join(shuffled, " ")),
		Rule:     RuleExact,
		Answer:   strings.Join(sorted, ""),
		Options:  shuffled,
	}
}

// distinctLetters picks n distinct letters, each uppercase with probability upper
func (p *Default) distinctLetters(n int, upper float64) []string {
	seen := make(map[string]bool, n)
	letters := make([]string, 0, n)
	for len(letters) < n {
		base := 'a'
		if p.rng.Float64() < upper {
			base = 'A'
		}
		l := string(rune(int(base) + p.rng.IntN(26)))
		if seen[l] {
			continue
		}
		seen[l] = true
		letters = append(letters, l)
	}
	return letters
}
