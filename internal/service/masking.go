package service

import "strings"

// maskName redacts each word of a buyer name down to its first two
// characters; the remainder is covered by at least three asterisks, so
// short names leak no more than long ones ("Maria Rojas" -> "Ma*** Ro***").
func maskName(name string) string {
	words := strings.Fields(name)
	for i, word := range words {
		runes := []rune(word)
		keep := 2
		if len(runes) < keep {
			keep = len(runes)
		}
		stars := len(runes) - keep
		if stars < 3 {
			stars = 3
		}
		words[i] = string(runes[:keep]) + strings.Repeat("*", stars)
	}
	return strings.Join(words, " ")
}

// maskPhone replaces all but the last four digits with asterisks
// ("3001234567" -> "******4567"). Numbers of four digits or fewer are
// fully masked.
func maskPhone(phone string) string {
	runes := []rune(phone)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-4:])
}
