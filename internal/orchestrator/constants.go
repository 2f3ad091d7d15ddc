// Package orchestrator drives the capture, recognition, and translation cycle
package orchestrator

// Pipeline constants
const (
	// Frames within this pHash Hamming distance of the previous frame skip OCR
	MaxHashDistance = 3

	// Buffer for key events between the input boundary and the loop
	KeyEventBuffer = 8
)
