//go:build !unix

package utils

import "time"

// CPUTime is not available on this platform and always returns zero.
func CPUTime() time.Duration { return 0 }
