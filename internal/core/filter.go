// Package core provides filtering logic for the decision history.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/chime/internal/model"
)

// FilterOptions specifies criteria for filtering decisions.
// Zero values match everything.
type FilterOptions struct {
	Since      time.Duration // Only decisions newer than now-since (0=all)
	Kind       model.Kind    // Exact kind
	Reason     model.Reason  // Exact sound reason
	Account    string        // Exact account
	Ref        string        // Exact conversation or channel
	PlayedOnly bool          // Only decisions that played a sound
	HiddenOnly bool          // Only decisions whose visual was suppressed
	Limit      int           // Maximum results (0=unlimited)
}

// Filter returns the decisions matching opts, preserving input order.
func Filter(decisions []model.Decision, opts FilterOptions, now time.Time) []model.Decision {
	result := make([]model.Decision, 0, len(decisions))

	var cutoff time.Time
	if opts.Since > 0 {
		cutoff = now.Add(-opts.Since)
	}

	for _, d := range decisions {
		if !cutoff.IsZero() && d.DecidedAt.Before(cutoff) {
			continue
		}
		if opts.Kind != "" && d.Kind != opts.Kind {
			continue
		}
		if opts.Reason != 0 && d.Reason != opts.Reason {
			continue
		}
		if opts.Account != "" && d.Account != opts.Account {
			continue
		}
		if opts.Ref != "" && d.Ref != opts.Ref {
			continue
		}
		if opts.PlayedOnly && !d.SoundPlayed {
			continue
		}
		if opts.HiddenOnly && d.ShowVisual {
			continue
		}

		result = append(result, d)
	}

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}

	return result
}

// CountByReason tallies decisions per sound reason.
func CountByReason(decisions []model.Decision) map[model.Reason]int {
	counts := make(map[model.Reason]int)
	for _, d := range decisions {
		counts[d.Reason]++
	}
	return counts
}

// ParseDuration parses a duration string with extended formats.
// Supports: 30m, 48h, 7d, 1w, 0 (none)
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	if s == "0" || s == "" {
		return 0, nil
	}

	// Handle day suffix (7d -> 168h)
	if daysStr, found := strings.CutSuffix(s, "d"); found {
		days, err := strconv.Atoi(daysStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	// Handle week suffix (1w -> 168h)
	if weeksStr, found := strings.CutSuffix(s, "w"); found {
		weeks, err := strconv.Atoi(weeksStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(weeks) * 7 * 24 * time.Hour, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %s", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration: %s", s)
	}
	return d, nil
}
