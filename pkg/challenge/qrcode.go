package challenge

import (
	"regexp"

	"github.com/borgmon/math-alarm/pkg/models"
)

var (
	nonEmpty     = regexp.MustCompile(`\S`)
	urlPattern   = regexp.MustCompile(`^https?://\S+$`)
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// qrcode describes what the scanned code must contain. The answer is the decoded text.
func qrcode(difficulty models.Difficulty) Descriptor {
	d := Descriptor{Rule: RulePredicate}
	switch difficulty {
	case models.DifficultyMedium:
		d.Question = "Scan a QR code containing text or a URL"
		d.Pattern = nonEmpty
	case models.DifficultyHard:
		d.Question = "Scan a QR code containing a valid URL"
		d.Pattern = urlPattern
	case models.DifficultyExpert:
		d.Question = "Scan a QR code containing an email address"
		d.Pattern = emailPattern
	default:
		d.Question = "Scan any valid QR code to turn off the alarm"
	}
	return d
}
