// Package duration parses the durations used in configuration files.
package duration

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var unitPattern = regexp.MustCompile(`(\d+)([wd])`)

// Parse parses a Go duration string that may also use 'd' (days) and 'w'
// (weeks), e.g. "1w", "2d12h", "30m". Negative durations are rejected.
func Parse(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration string")
	}

	expanded := unitPattern.ReplaceAllStringFunc(s, func(match string) string {
		m := unitPattern.FindStringSubmatch(match)
		n, _ := strconv.Atoi(m[1])
		if m[2] == "w" {
			n *= 7
		}
		return strconv.Itoa(n*24) + "h"
	})

	d, err := time.ParseDuration(expanded)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration not allowed: %q", s)
	}
	return d, nil
}
