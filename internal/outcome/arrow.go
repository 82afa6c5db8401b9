package outcome

import (
	"fmt"
	"os"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

var recordSchema = arrow.NewSchema([]arrow.Field{
	{Name: "particle", Type: arrow.PrimitiveTypes.Int64},
	{Name: "outcome", Type: arrow.BinaryTypes.String},
	{Name: "total_time", Type: arrow.PrimitiveTypes.Float64},
	{Name: "free_time", Type: arrow.PrimitiveTypes.Float64},
	{Name: "bound_time", Type: arrow.PrimitiveTypes.Float64},
	{Name: "attempts", Type: arrow.PrimitiveTypes.Int64},
	{Name: "bindings", Type: arrow.PrimitiveTypes.Int64},
}, nil)

// WriteArrow writes one row per particle to an Arrow IPC file.
func WriteArrow(path string, records []Record) error {
	mem := memory.NewGoAllocator()
	b := array.NewRecordBuilder(mem, recordSchema)
	defer b.Release()

	for _, r := range records {
		b.Field(0).(*array.Int64Builder).Append(int64(r.Particle))
		b.Field(1).(*array.StringBuilder).Append(r.Outcome)
		b.Field(2).(*array.Float64Builder).Append(r.TotalTime)
		b.Field(3).(*array.Float64Builder).Append(r.FreeTime)
		b.Field(4).(*array.Float64Builder).Append(r.BoundTime)
		b.Field(5).(*array.Int64Builder).Append(int64(r.Attempts))
		b.Field(6).(*array.Int64Builder).Append(int64(r.Bindings))
	}
	rec := b.NewRecord()
	defer rec.Release()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating outcome file: %w", err)
	}
	defer f.Close()

	w, err := ipc.NewFileWriter(f, ipc.WithSchema(recordSchema), ipc.WithAllocator(mem))
	if err != nil {
		return fmt.Errorf("creating arrow writer: %w", err)
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		return fmt.Errorf("writing outcomes: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing arrow writer: %w", err)
	}
	return f.Close()
}

// ReadArrow reads records written by WriteArrow.
func ReadArrow(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening outcome file: %w", err)
	}
	defer f.Close()

	rdr, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("reading outcome file %s: %w", path, err)
	}
	defer rdr.Close()

	if !rdr.Schema().Equal(recordSchema) {
		return nil, fmt.Errorf("outcome file %s: unexpected schema %s", path, rdr.Schema())
	}

	var out []Record
	for i := 0; i < rdr.NumRecords(); i++ {
		rec, err := rdr.Record(i)
		if err != nil {
			return nil, fmt.Errorf("outcome file %s: record %d: %w", path, i, err)
		}
		particle := rec.Column(0).(*array.Int64)
		outcome := rec.Column(1).(*array.String)
		total := rec.Column(2).(*array.Float64)
		free := rec.Column(3).(*array.Float64)
		bound := rec.Column(4).(*array.Float64)
		attempts := rec.Column(5).(*array.Int64)
		bindings := rec.Column(6).(*array.Int64)
		for row := 0; row < int(rec.NumRows()); row++ {
			out = append(out, Record{
				Particle:  int(particle.Value(row)),
				Outcome:   outcome.Value(row),
				TotalTime: total.Value(row),
				FreeTime:  free.Value(row),
				BoundTime: bound.Value(row),
				Attempts:  int(attempts.Value(row)),
				Bindings:  int(bindings.Value(row)),
			})
		}
	}
	return out, nil
}
