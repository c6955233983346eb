package utils

import "time"

// Days returns n whole days as a duration.
func Days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}
