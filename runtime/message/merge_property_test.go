package message

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestStatusMonotonicProperty is invariant 1 in SPEC_FULL.md §8: once the
// accumulator reaches a terminal status, no further delta can move it
// backward to incomplete.
func TestStatusMonotonicProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	statuses := gen.OneConstOf(StatusIncomplete, StatusComplete, StatusLength)

	properties.Property("status never regresses from a terminal state", prop.ForAll(
		func(seq []Status) bool {
			acc := NewAccumulator()
			sawTerminal := false
			for _, s := range seq {
				acc.Merge(Delta{Status: s})
				if sawTerminal && !acc.Done() {
					return false
				}
				if acc.Done() {
					sawTerminal = true
				}
			}
			return true
		},
		gen.SliceOf(statuses),
	))

	properties.TestingRun(t)
}
