package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/annet-ml/annet/internal/errs"
)

// ReadCSV parses one pair per record: inSize input columns followed by
// outSize output columns. Lines starting with '#' are skipped.
func ReadCSV(r io.Reader, inSize, outSize int) (*TrainingSet, error) {
	const op = "data.ReadCSV"
	if inSize < 1 || outSize < 0 {
		return nil, errs.Configuration(op, "invalid column layout %d+%d", inSize, outSize)
	}

	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	set := NewTrainingSet()
	for line := 1; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errs.Wrap(errs.KindIO, op, err)
		}
		if len(record) != inSize+outSize {
			return nil, errs.DimensionMismatch(op, fmt.Sprintf("record %d columns", line), inSize+outSize, len(record))
		}

		values := make([]float64, len(record))
		for i, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, &errs.Error{Kind: errs.KindIO, Op: op, Details: fmt.Sprintf("record %d column %d", line, i+1), Err: err}
			}
			values[i] = v
		}
		set.pairs = append(set.pairs, Pair{Input: values[:inSize:inSize], Output: values[inSize:]})
	}
	return set, nil
}
