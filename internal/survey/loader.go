package survey

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/blackwell-systems/surveylca/internal/lca"
)

// CheckFile verifies that path exists and names a .csv file.
func CheckFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !strings.HasSuffix(strings.ToLower(path), ".csv") {
		return fmt.Errorf("%w: %s", ErrNotCSV, path)
	}
	return nil
}

// Load reads and validates the survey at path.
func Load(path string, schema Schema) (*Dataset, error) {
	if err := CheckFile(path); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open survey: %w", err)
	}
	defer f.Close()

	ds, err := Read(f, schema)
	if err != nil {
		return nil, err
	}
	ds.Source = path
	return ds, nil
}

// Read parses survey CSV from r. Rows with a blank or NA answer to any
// question are dropped; every other cell must be an integer code that
// satisfies the schema's rules.
func Read(r io.Reader, schema Schema) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", ErrSchema)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	pos := make(map[string]int, len(header))
	for i, name := range header {
		pos[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, col := range schema.Required() {
		if _, ok := pos[col]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrSchema, col)
		}
	}

	ds := &Dataset{Questions: append([]string(nil), schema.Questions...)}
	serials := make(map[int]int)

	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}

		answers, complete, err := readAnswers(rec, pos, schema, line)
		if err != nil {
			return nil, err
		}
		if !complete {
			ds.Dropped++
			continue
		}

		resp := Respondent{Answers: answers}
		fields := []struct {
			col string
			dst *int
		}{
			{ColumnSerial, &resp.Serial},
			{ColumnArea, &resp.Area},
			{ColumnAge, &resp.Age},
			{ColumnSex, &resp.Sex},
		}
		for _, fd := range fields {
			v, ok, err := parseCode(rec[pos[fd.col]])
			if err != nil || !ok {
				return nil, fmt.Errorf("%w: %s on line %d must be an integer, got %q",
					ErrValue, fd.col, line, rec[pos[fd.col]])
			}
			if rule, ok := schema.rule(fd.col); ok {
				if err := rule.Check(line, v); err != nil {
					return nil, err
				}
			}
			*fd.dst = v
		}

		if prev, dup := serials[resp.Serial]; dup {
			return nil, fmt.Errorf("%w: serial %d repeated on lines %d and %d", ErrValue, resp.Serial, prev, line)
		}
		serials[resp.Serial] = line
		ds.Respondents = append(ds.Respondents, resp)
	}

	return ds, nil
}

func readAnswers(rec []string, pos map[string]int, schema Schema, line int) ([]int, bool, error) {
	answers := make([]int, len(schema.Questions))
	for j, q := range schema.Questions {
		v, ok, err := parseCode(rec[pos[q]])
		if err != nil {
			return nil, false, fmt.Errorf("%w: %s on line %d must be an integer, got %q", ErrValue, q, line, rec[pos[q]])
		}
		if !ok {
			return nil, false, nil
		}
		if rule, has := schema.rule(q); has {
			if err := rule.Check(line, v); err != nil {
				return nil, false, err
			}
		}
		answers[j] = v
	}
	return answers, true, nil
}

// parseCode reads an integer cell. ok is false for blank and NA cells.
// Integral floats such as "2.0" are accepted.
func parseCode(s string) (v int, ok bool, err error) {
	s = strings.TrimSpace(s)
	switch strings.ToUpper(s) {
	case "", "NA", "N/A", "NAN", "NULL":
		return 0, false, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, false, fmt.Errorf("not an integer code: %q", s)
	}
	return int(f), true, nil
}

// Matrix returns the answers as a clustering matrix in respondent order.
func (d *Dataset) Matrix() (*lca.Matrix, error) {
	rows := make([][]int, len(d.Respondents))
	for i, r := range d.Respondents {
		rows[i] = r.Answers
	}
	return lca.NewMatrix(rows)
}

// Join pairs each respondent with the label at the same row position.
func (d *Dataset) Join(labels []int) ([]Labelled, error) {
	if len(labels) != len(d.Respondents) {
		return nil, fmt.Errorf("got %d labels for %d respondents", len(labels), len(d.Respondents))
	}
	out := make([]Labelled, len(labels))
	for i, r := range d.Respondents {
		out[i] = Labelled{Respondent: r, Cluster: labels[i]}
	}
	return out, nil
}
