package timeseries

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/HerbHall/wardwatch/pkg/models"
)

// Column names of the series text format, in canonical order.
const (
	ColTime        = "Time"
	ColHeartRate   = "HR"
	ColSystolic    = "ABPsys"
	ColDiastolic   = "ABPdia"
	ColSpO2        = "SpO2"
	ColRespiration = "RESP"
)

var columns = []string{ColTime, ColHeartRate, ColSystolic, ColDiastolic, ColSpO2, ColRespiration}

// Header is the first line of every series file.
var Header = strings.Join(columns, ",")

// FormatRecord renders s as one record. Timestamps keep five decimals.
func FormatRecord(s models.VitalSample) []string {
	return []string{
		strconv.FormatFloat(s.Timestamp, 'f', 5, 64),
		strconv.Itoa(s.HeartRate),
		strconv.Itoa(s.SystolicPressure),
		strconv.Itoa(s.DiastolicPressure),
		strconv.Itoa(s.OxygenSaturation),
		strconv.Itoa(s.RespirationRate),
	}
}

// FormatLine renders s as a comma-separated line without terminator.
func FormatLine(s models.VitalSample) string {
	return strings.Join(FormatRecord(s), ",")
}

// ParseRecord decodes one record in canonical column order.
func ParseRecord(fields []string) (models.VitalSample, error) {
	return parseWithLayout(fields, canonicalLayout)
}

// ParseLine decodes a single comma-separated line.
func ParseLine(line string) (models.VitalSample, error) {
	return ParseRecord(strings.Split(strings.TrimSpace(line), ","))
}

// layout maps each canonical column to its position in a record.
type layout [6]int

var canonicalLayout = layout{0, 1, 2, 3, 4, 5}

func layoutFromHeader(header []string) (layout, bool) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		pos[strings.TrimSpace(name)] = i
	}
	var l layout
	for i, name := range columns {
		p, ok := pos[name]
		if !ok {
			return layout{}, false
		}
		l[i] = p
	}
	return l, true
}

func isHeader(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) == ColTime {
			return true
		}
	}
	return false
}

func parseWithLayout(fields []string, l layout) (models.VitalSample, error) {
	if len(fields) != len(columns) {
		return models.VitalSample{}, fmt.Errorf("%w: record has %d fields, want %d", models.ErrInternal, len(fields), len(columns))
	}
	ts, err := strconv.ParseFloat(strings.TrimSpace(fields[l[0]]), 64)
	if err != nil {
		return models.VitalSample{}, fmt.Errorf("%w: bad %s %q", models.ErrInternal, ColTime, fields[l[0]])
	}
	var ints [5]int
	for i := range ints {
		raw := strings.TrimSpace(fields[l[i+1]])
		v, err := strconv.Atoi(raw)
		if err != nil {
			return models.VitalSample{}, fmt.Errorf("%w: bad %s %q", models.ErrInternal, columns[i+1], raw)
		}
		ints[i] = v
	}
	return models.VitalSample{
		Timestamp:         ts,
		HeartRate:         ints[0],
		SystolicPressure:  ints[1],
		DiastolicPressure: ints[2],
		OxygenSaturation:  ints[3],
		RespirationRate:   ints[4],
	}, nil
}

// Decode reads a series. A leading header row selects the column order;
// without one the canonical order is assumed. Blank lines are skipped.
// Malformed content is reported as models.ErrInternal.
func Decode(r io.Reader) ([]models.VitalSample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	l := canonicalLayout
	var out []models.VitalSample
	for first := true; ; first = false {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, fmt.Errorf("%w: %v", models.ErrInternal, err)
			}
			return nil, err
		}
		if first && isHeader(rec) {
			hl, ok := layoutFromHeader(rec)
			if !ok {
				return nil, fmt.Errorf("%w: header %q lacks required columns", models.ErrInternal, strings.Join(rec, ","))
			}
			l = hl
			continue
		}
		s, err := parseWithLayout(rec, l)
		if err != nil {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, s)
	}
}

// Encode writes the header followed by one record per sample.
func Encode(w io.Writer, samples []models.VitalSample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	if err := writeRecords(cw, samples); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func writeRecords(cw *csv.Writer, samples []models.VitalSample) error {
	for _, s := range samples {
		if err := cw.Write(FormatRecord(s)); err != nil {
			return err
		}
	}
	return nil
}
