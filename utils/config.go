package utils

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Config holds the trainer configuration
type Config struct {
	Threads   int
	Seed      uint64
	Verbose   bool
	TablePath string
	Hidden    string // hidden layer sizes applied to every network, empty keeps the table's
}

// ParseHiddenLayers parses a list of hidden layer sizes such as "20,25" or "20 25".
// An empty string means no hidden layers.
func ParseHiddenLayers(s string) ([]int, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	hidden := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, errors.Wrapf(err, "hidden layer %d", i)
		}
		if n <= 0 {
			return nil, errors.Errorf("hidden layer %d must have at least one unit, got %d", i, n)
		}
		hidden[i] = n
	}
	return hidden, nil
}

// ValidateConfig validates the trainer configuration
func ValidateConfig(config *Config) error {
	if config.Threads < 0 {
		return errors.New("thread count must not be negative")
	}
	return nil
}
