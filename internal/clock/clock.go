// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package clock provides a single call site for time.Now/time.Since
// used by the periodic workers and the admin surface's uptime header.
// It has no hook for substituting a fake time.
package clock

import "time"

// Now returns the current wall-clock time (time.Now).
func Now() time.Time {
	return time.Now()
}

// Since returns the elapsed duration since t.
func Since(t time.Time) time.Duration {
	return time.Since(t)
}
