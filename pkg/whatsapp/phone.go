package whatsapp

import "strings"

// Digits strips a phone number down to its digits. Display numbers carry
// spaces, dashes and a leading plus; webhook sender ids do not.
func Digits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
