package utils

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"mlptrain/train"
)

// SaveTable writes a hyperparameter table to a JSON file
func SaveTable(path string, t train.Table) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal table")
	}
	return errors.Wrap(os.WriteFile(path, data, 0644), "failed to write table")
}

// OverrideHidden replaces the hidden layers of every network in t with the
// sizes listed in s. An empty s leaves t alone.
func OverrideHidden(t *train.Table, s string) error {
	if s == "" {
		return nil
	}
	sizes, err := ParseHiddenLayers(s)
	if err != nil {
		return err
	}
	for i := range t.Networks {
		t.Networks[i].Hidden = append([]int(nil), sizes...)
	}
	return nil
}

// LoadTable reads a hyperparameter table from a JSON file and validates it
func LoadTable(path string) (train.Table, error) {
	var t train.Table
	data, err := os.ReadFile(path)
	if err != nil {
		return t, errors.Wrap(err, "failed to read table file")
	}
	if err := json.Unmarshal(data, &t); err != nil {
		return t, errors.Wrapf(err, "failed to unmarshal table %s", path)
	}
	if err := t.Validate(); err != nil {
		return t, errors.Wrapf(err, "invalid table %s", path)
	}
	return t, nil
}
