// Package table reads and writes the tab-separated layer and stimulus
// parameter tables. Column names are fixed; vector cells use the "[x y z]"
// form.
package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/san-kum/spinsim/internal/dynamo"
	"github.com/san-kum/spinsim/internal/vecmath"
)

// LayerColumns are required in a layer table; J2, Hoe and Idir are optional.
var LayerColumns = []string{"layer", "Ms", "Ku", "Kdir", "J", "alpha", "th", "N", "AMR", "SMR", "AHE", "Rx0", "Ry0", "w", "l"}

var layerOptional = []string{"J2", "Hoe", "Idir"}

// StimulusColumns are required in a stimulus table; mode and Hmag are
// optional.
var StimulusColumns = []string{"Hmin", "Hmax", "Hsteps", "Hback", "HTheta", "HPhi", "fmin", "fmax", "fsteps", "IAC", "IDC", "Idir", "fphase", "Vdir", "LLGtime", "LLGsteps"}

var stimulusOptional = []string{"mode", "Hmag"}

// row is one data line keyed by header name.
type row struct {
	line  int
	cells map[string]string
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.Comment = '#'
	return cr
}

func readRows(r io.Reader, required []string) ([]row, error) {
	cr := newReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return nil, dynamo.Configf("table", "empty table")
	}
	if err != nil {
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	for _, col := range required {
		if !contains(header, col) {
			return nil, dynamo.Configf("table", "missing column %q", col)
		}
	}

	var rows []row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		cells := make(map[string]string, len(header))
		for i, name := range header {
			cells[name] = strings.TrimSpace(rec[i])
		}
		rows = append(rows, row{line: line, cells: cells})
	}
	return rows, nil
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

func (r row) has(col string) bool {
	v, ok := r.cells[col]
	return ok && v != ""
}

func (r row) errorf(col, format string, args ...any) error {
	return dynamo.Configf("table."+col, "line %d: %s", r.line, fmt.Sprintf(format, args...))
}

func (r row) float(col string) (float64, error) {
	v, err := strconv.ParseFloat(r.cells[col], 64)
	if err != nil {
		return 0, r.errorf(col, "%q is not a number", r.cells[col])
	}
	return v, nil
}

// int accepts "20" as well as "20.0".
func (r row) int(col string) (int, error) {
	f, err := r.float(col)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, r.errorf(col, "%q is not an integer", r.cells[col])
	}
	return int(f), nil
}

func (r row) bool(col string) (bool, error) {
	switch strings.ToLower(r.cells[col]) {
	case "1", "1.0", "true", "yes":
		return true, nil
	case "0", "0.0", "false", "no", "":
		return false, nil
	}
	return false, r.errorf(col, "%q is not a boolean", r.cells[col])
}

func (r row) vec(col string) (vecmath.Vec3, error) {
	v, err := vecmath.Parse(r.cells[col])
	if err != nil {
		return vecmath.Vec3{}, r.errorf(col, "%v", err)
	}
	return v, nil
}

// collector keeps the first parse error so callers can read many cells
// and check once.
type collector struct {
	r   row
	err error
}

func (c *collector) float(col string) float64 {
	if c.err != nil {
		return 0
	}
	v, err := c.r.float(col)
	c.err = err
	return v
}

func (c *collector) int(col string) int {
	if c.err != nil {
		return 0
	}
	v, err := c.r.int(col)
	c.err = err
	return v
}

func (c *collector) bool(col string) bool {
	if c.err != nil {
		return false
	}
	v, err := c.r.bool(col)
	c.err = err
	return v
}

func (c *collector) vec(col string) vecmath.Vec3 {
	if c.err != nil {
		return vecmath.Vec3{}
	}
	v, err := c.r.vec(col)
	c.err = err
	return v
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

func writeTable(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func openFile[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	f, err := os.Open(path)
	if err != nil {
		var zero T
		return zero, err
	}
	defer f.Close()
	v, err := read(f)
	if err != nil {
		return v, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

func errNoRows(kind string) error {
	return dynamo.Configf("table", "no %s rows", kind)
}
