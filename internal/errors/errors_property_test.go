//go:build property

package errors

import (
	"fmt"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestErrorCollectorProperties validates error collection and aggregation properties
func TestErrorCollectorProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(2468)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("concurrent diagnostic addition is thread-safe", prop.ForAll(
		func(goroutineCount int, perGoroutine int) bool {
			collector := NewErrorCollector()

			var wg sync.WaitGroup
			for g := 0; g < goroutineCount; g++ {
				wg.Add(1)
				go func(g int) {
					defer wg.Done()
					for e := 0; e < perGoroutine; e++ {
						collector.Add(Diagnostic{
							Component: fmt.Sprintf("C%d", g),
							File:      fmt.Sprintf("c%d.html", g),
							Line:      e + 1,
							Message:   "x",
							Severity:  ErrorSeverityError,
						})
					}
				}(g)
			}
			wg.Wait()

			return len(collector.GetDiagnostics()) == goroutineCount*perGoroutine
		},
		gen.IntRange(1, 20),
		gen.IntRange(1, 50),
	))

	properties.Property("diagnostics are sorted by file then line", prop.ForAll(
		func(lines []int) bool {
			collector := NewErrorCollector()
			for i, line := range lines {
				collector.Add(Diagnostic{File: fmt.Sprintf("f%d.html", i%3), Line: line})
			}
			sorted := collector.GetDiagnostics()
			for i := 1; i < len(sorted); i++ {
				prev, cur := sorted[i-1], sorted[i]
				if prev.File > cur.File || (prev.File == cur.File && prev.Line > cur.Line) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(1, 500)),
	))

	properties.TestingRun(t)
}

// TestClosestMatchProperties checks suggestion invariants
func TestClosestMatchProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("a suggestion is always one of the candidates", prop.ForAll(
		func(name string, candidates []string) bool {
			match := ClosestMatch(name, candidates)
			if match == "" {
				return true
			}
			for _, c := range candidates {
				if c == match {
					return true
				}
			}
			return false
		},
		gen.AlphaString(),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.Property("never suggests the name itself", prop.ForAll(
		func(name string) bool {
			return ClosestMatch(name, []string{name}) == ""
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
