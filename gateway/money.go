package gateway

import "fmt"

// FormatAmount renders minor units as a major-unit decimal string for
// human-facing descriptions. This is the only place (besides display
// templates) where minor units leave integer form.
func FormatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
