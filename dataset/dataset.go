// Package dataset loads training examples from CSV files.
package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Format describes the columns of a record.
type Format int

const (
	// Plain records hold the features followed by the targets.
	Plain Format = iota
	// Labeled records hold a class index followed by the features. The
	// targets are the one-hot encoding of the class.
	Labeled
)

func (f Format) String() string {
	switch f {
	case Plain:
		return "plain"
	case Labeled:
		return "labeled"
	}
	return "unknown"
}

// ParseFormat accepts the names returned by String.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "plain":
		return Plain, nil
	case "labeled", "labelled":
		return Labeled, nil
	}
	return 0, errors.Errorf("dataset: unknown format %q", s)
}

// MarshalText encodes f by name.
func (f Format) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// UnmarshalText accepts any name ParseFormat does.
func (f *Format) UnmarshalText(b []byte) error {
	v, err := ParseFormat(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Line is one example.
type Line struct {
	Inputs  []float64
	Targets []float64
}

// Set is an ordered list of examples of the same width.
type Set struct {
	Features int
	Labels   int
	Lines    []Line
}

// LineError reports a malformed record.
type LineError struct {
	Line     int
	Got      int
	Expected int
}

func (e *LineError) Error() string {
	return fmt.Sprintf("dataset: at line %d, expected %d values, got %d", e.Line, e.Expected, e.Got)
}

// Read parses CSV records from r. Empty lines are ignored.
func Read(r io.Reader, features, labels int, f Format) (*Set, error) {
	if features <= 0 || labels <= 0 {
		return nil, errors.Errorf("dataset: invalid width %d+%d", features, labels)
	}
	width := features + labels
	if f == Labeled {
		width = 1 + features
	}

	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	s := &Set{Features: features, Labels: labels}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "dataset")
		}
		n, _ := cr.FieldPos(0)
		if len(record) != width {
			return nil, &LineError{Line: n, Got: len(record), Expected: width}
		}
		line, err := parse(record, features, labels, f)
		if err != nil {
			return nil, errors.Wrapf(err, "dataset: line %d", n)
		}
		s.Lines = append(s.Lines, line)
	}
	return s, nil
}

func parse(record []string, features, labels int, f Format) (Line, error) {
	l := Line{Inputs: make([]float64, features), Targets: make([]float64, labels)}
	fields := record
	if f == Labeled {
		class, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			return l, errors.Wrap(err, "parsing class")
		}
		if class < 0 || class >= labels {
			return l, errors.Errorf("class %d outside [0,%d)", class, labels)
		}
		l.Targets[class] = 1
		fields = record[1:]
	}
	for i, field := range fields {
		x, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			if i < features {
				return l, errors.Wrap(err, "parsing input")
			}
			return l, errors.Wrap(err, "parsing target")
		}
		if i < features {
			l.Inputs[i] = x
		} else {
			l.Targets[i-features] = x
		}
	}
	return l, nil
}

// Load reads the CSV file at path.
func Load(path string, features, labels int, f Format) (*Set, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "dataset")
	}
	defer file.Close()
	s, err := Read(file, features, labels, f)
	return s, errors.WithMessage(err, path)
}

// Len returns the number of examples.
func (s *Set) Len() int { return len(s.Lines) }

// Normalize shifts every input column to zero mean and scales it to unit
// standard deviation. Constant columns are only shifted.
func (s *Set) Normalize() {
	if len(s.Lines) == 0 {
		return
	}
	col := make([]float64, len(s.Lines))
	for j := 0; j < s.Features; j++ {
		for i, l := range s.Lines {
			col[i] = l.Inputs[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		for _, l := range s.Lines {
			l.Inputs[j] = (l.Inputs[j] - mean) / std
		}
	}
}

// FillExamples copies the first rows of the set into inputs and outputs.
func (s *Set) FillExamples(inputs, outputs *mat.Dense) error {
	r, c := inputs.Dims()
	or, oc := outputs.Dims()
	if c != s.Features || oc != s.Labels || or != r {
		return errors.Errorf("dataset: %dx%d and %dx%d matrices for %d features and %d labels", r, c, or, oc, s.Features, s.Labels)
	}
	if r > len(s.Lines) {
		return errors.Errorf("dataset: %d examples requested, %d available", r, len(s.Lines))
	}
	for i := 0; i < r; i++ {
		copy(inputs.RawRowView(i), s.Lines[i].Inputs)
		copy(outputs.RawRowView(i), s.Lines[i].Targets)
	}
	return nil
}
