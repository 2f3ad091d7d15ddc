// Package textnorm normalizes recognized text for dedup and cache keys
package textnorm

import "strings"

// Normalize trims and collapses whitespace runs to single spaces, preserving
// case. OCR output drifts frame to frame in spacing and line breaks; keying
// on the normalized form keeps that noise from re-triggering translation.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
