package field

import (
	"fmt"
	"os"
	"sort"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// gridColumns is the column layout of a field grid file, one row per node.
var gridColumns = []string{"r", "z", "dn", "dt", "fr", "fz"}

// LoadGrid reads a field grid from an Arrow IPC file with float64 columns
// r, z, dn, dt, fr, fz. Rows may appear in any order but must cover every
// node of the rectilinear grid exactly once.
func LoadGrid(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening field grid: %w", err)
	}
	defer f.Close()

	rdr, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("reading field grid %s: %w", path, err)
	}
	defer rdr.Close()

	schema := rdr.Schema()
	index := make(map[string]int, len(gridColumns))
	for _, name := range gridColumns {
		idx := schema.FieldIndices(name)
		if len(idx) == 0 {
			return nil, fmt.Errorf("field grid %s: missing column %q", path, name)
		}
		index[name] = idx[0]
	}

	cols := make(map[string][]float64, len(gridColumns))
	for i := 0; i < rdr.NumRecords(); i++ {
		rec, err := rdr.Record(i)
		if err != nil {
			return nil, fmt.Errorf("field grid %s: record %d: %w", path, i, err)
		}
		for _, name := range gridColumns {
			col, ok := rec.Column(index[name]).(*array.Float64)
			if !ok {
				return nil, fmt.Errorf("field grid %s: column %q is %s, want float64", path, name, rec.Column(index[name]).DataType())
			}
			cols[name] = append(cols[name], col.Float64Values()...)
		}
	}

	return gridFromRows(cols)
}

// gridFromRows scatters unordered node rows onto the rectilinear grid.
func gridFromRows(cols map[string][]float64) (*Grid, error) {
	rows := len(cols["r"])
	r := uniqueSorted(cols["r"])
	z := uniqueSorted(cols["z"])
	if rows != len(r)*len(z) {
		return nil, fmt.Errorf("field: %d rows do not cover a %dx%d grid", rows, len(r), len(z))
	}

	n := len(r) * len(z)
	dn, dt := make([]float64, n), make([]float64, n)
	fr, fz := make([]float64, n), make([]float64, n)
	seen := make([]bool, n)
	for row := 0; row < rows; row++ {
		ir := sort.SearchFloat64s(r, cols["r"][row])
		iz := sort.SearchFloat64s(z, cols["z"][row])
		k := iz*len(r) + ir
		if seen[k] {
			return nil, fmt.Errorf("field: duplicate node r=%g z=%g", cols["r"][row], cols["z"][row])
		}
		seen[k] = true
		dn[k], dt[k] = cols["dn"][row], cols["dt"][row]
		fr[k], fz[k] = cols["fr"][row], cols["fz"][row]
	}
	return NewGrid(r, z, dn, dt, fr, fz)
}

// WriteGrid writes g as an Arrow IPC file readable by LoadGrid.
func WriteGrid(path string, g *Grid) error {
	mem := memory.NewGoAllocator()
	fields := make([]arrow.Field, len(gridColumns))
	for i, name := range gridColumns {
		fields[i] = arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Float64}
	}
	schema := arrow.NewSchema(fields, nil)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for iz, z := range g.Z {
		for ir, r := range g.R {
			k := g.index(ir, iz)
			for i, v := range []float64{r, z, g.Dn[k], g.Dt[k], g.Fr[k], g.Fz[k]} {
				b.Field(i).(*array.Float64Builder).Append(v)
			}
		}
	}
	rec := b.NewRecord()
	defer rec.Release()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating field grid: %w", err)
	}
	defer f.Close()

	w, err := ipc.NewFileWriter(f, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err != nil {
		return fmt.Errorf("creating arrow writer: %w", err)
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		return fmt.Errorf("writing field grid: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing arrow writer: %w", err)
	}
	return f.Close()
}

func uniqueSorted(v []float64) []float64 {
	out := append([]float64(nil), v...)
	sort.Float64s(out)
	n := 0
	for i, x := range out {
		if i == 0 || x != out[n-1] {
			out[n] = x
			n++
		}
	}
	return out[:n]
}
