//go:build !sequential

package train

// DefaultMode is Concurrent unless built with the sequential tag.
const DefaultMode = Concurrent
