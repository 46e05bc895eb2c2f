package vfs

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestWriteThenReadProperty is invariant 2 in SPEC_FULL.md §8: for any
// write_file(p, c) followed by read_file(p) with no intervening writer, the
// read returns c, even with no persistence backend registered at all. The
// path generator is restricted to a single clean segment so normalize's
// path.Clean never rewrites the generated path out from under the test.
func TestWriteThenReadProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("read after write returns exactly what was written", prop.ForAll(
		func(segment, content string) bool {
			s := NewServer()
			ctx := context.Background()
			vpath := "/" + segment + ".txt"

			if err := s.WriteFile(ctx, vpath, []byte(content)); err != nil {
				return false
			}
			got, err := s.ReadFile(ctx, vpath)
			if err != nil {
				return false
			}
			return string(got) == content
		},
		gen.RegexMatch(`^[a-zA-Z0-9_]{1,12}$`),
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
