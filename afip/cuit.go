package afip

import (
	"fmt"
	"strings"
)

// Cuit is a structurally valid 11-digit taxpayer identifier.
type Cuit string

// mod-11 multipliers over the first ten digits
var cuitWeights = [10]int{5, 4, 3, 2, 7, 6, 5, 4, 3, 2}

// CleanCuit strips every non-digit character (dashes, spaces).
func CleanCuit(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateCuit checks that s is 11 digits with a correct mod-11 check digit.
// It says nothing about whether the CUIT actually exists.
func ValidateCuit(s string) error {
	if len(s) != 11 {
		return fmt.Errorf("CUIT must have 11 digits, got %d (%q)", len(s), s)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return fmt.Errorf("CUIT must be numeric, got %q", s)
		}
	}

	sum := 0
	for i, w := range cuitWeights {
		sum += int(s[i]-'0') * w
	}

	check := 11 - sum%11
	if sum%11 < 2 {
		check = 0
	}

	if int(s[10]-'0') != check {
		return fmt.Errorf("invalid CUIT check digit in %q", s)
	}
	return nil
}

// NormalizeCuit cleans and validates in one step.
func NormalizeCuit(s string) (Cuit, error) {
	cleaned := CleanCuit(s)
	if err := ValidateCuit(cleaned); err != nil {
		return "", err
	}
	return Cuit(cleaned), nil
}

// FormatCuit renders the XX-XXXXXXXX-X presentation form. Inputs that are not
// 11 digits long are returned unchanged.
func FormatCuit(s string) string {
	cleaned := CleanCuit(s)
	if len(cleaned) != 11 {
		return s
	}
	return cleaned[0:2] + "-" + cleaned[2:10] + "-" + cleaned[10:11]
}
