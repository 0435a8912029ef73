package harness

import (
	"fmt"
	"slices"
)

// checkAssertions validates every assertion against the recorded ticks.
// All failures are collected (does not fail-fast).
func checkAssertions(scenario *Scenario, ticks []TickRecord) []string {
	var failures []string
	for _, a := range scenario.Assertions {
		var failure string
		switch a.Type {
		case AssertTickOrder:
			failure = checkTickOrder(a, ticks)
		case AssertRanCount:
			failure = checkRanCount(a, ticks)
		case AssertPrecedes:
			failure = checkPrecedes(a, ticks)
		}
		if failure != "" {
			failures = append(failures, failure)
		}
	}
	return failures
}

func checkTickOrder(a Assertion, ticks []TickRecord) string {
	for _, rec := range ticks {
		if rec.Tick != a.Tick {
			continue
		}
		if !slices.Equal(rec.Ran, a.Systems) {
			return fmt.Sprintf("tick_order: tick %d ran %v, want %v", a.Tick, rec.Ran, a.Systems)
		}
		return ""
	}
	return fmt.Sprintf("tick_order: tick %d not recorded", a.Tick)
}

func checkRanCount(a Assertion, ticks []TickRecord) string {
	count := 0
	for _, rec := range ticks {
		for _, name := range rec.Ran {
			if name == a.System {
				count++
			}
		}
	}
	if count != a.Count {
		return fmt.Sprintf("ran_count: %s ran %d times, want %d", a.System, count, a.Count)
	}
	return ""
}

func checkPrecedes(a Assertion, ticks []TickRecord) string {
	for _, rec := range ticks {
		before := slices.Index(rec.Ran, a.Before)
		after := slices.Index(rec.Ran, a.After)
		if before < 0 || after < 0 {
			continue
		}
		if before > after {
			return fmt.Sprintf("precedes: tick %d ran %s at %d but %s at %d",
				rec.Tick, a.Before, before, a.After, after)
		}
	}
	return ""
}
