//go:build sequential

package train

// DefaultMode is Sequential when built with the sequential tag.
const DefaultMode = Sequential
