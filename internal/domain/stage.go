package domain

import "fmt"

// Stage is one configured phase of the tracked workflow.
type Stage struct {
	Key     string // Stable registry key; never changes once assigned
	Name    string
	Code    string
	Ordinal int // 1-based position in the registry
}

// DefaultStage returns the stage created for ordinal i when nothing else is configured.
func DefaultStage(i int) Stage {
	return Stage{
		Key:     DefaultStageKey(i),
		Name:    DefaultStageKey(i),
		Code:    DefaultStageCode(i),
		Ordinal: i,
	}
}

// DefaultStageKey is "Stage {i}".
func DefaultStageKey(i int) string {
	return fmt.Sprintf("Stage %d", i)
}

// DefaultStageCode is the 4-digit zero-padded ordinal.
func DefaultStageCode(i int) string {
	return fmt.Sprintf("%04d", i)
}
