package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"

	"feetfit/internal/db"
)

// knownSubjects disambiguates single-word filename remainders.
var knownSubjects = map[string]bool{"h": true, "l": true, "wanley": true, "marvel": true}

var insoleFilename = regexp.MustCompile(`^mixed_sensor_data_(\d{4}-\d{2}-\d{2})\s+(.+)`)

// FileMetadata is the session info encoded in an insole export filename.
type FileMetadata struct {
	DateRecorded *time.Time
	Subject      string
	Activity     string
	Trial        int
}

// ParseFilenameMetadata reads "mixed_sensor_data_YYYY-MM-DD subject
// activity [trial].csv". Unrecognised names yield trial 1 and nothing else.
func ParseFilenameMetadata(name string) FileMetadata {
	meta := FileMetadata{Trial: 1}
	base := strings.TrimSuffix(filepath.Base(name), ".csv")

	m := insoleFilename.FindStringSubmatch(base)
	if m == nil {
		return meta
	}
	if d, err := time.Parse("2006-01-02", m[1]); err == nil {
		meta.DateRecorded = &d
	}

	parts := strings.Fields(m[2])
	if len(parts) > 1 && isDigits(parts[len(parts)-1]) {
		if n, err := strconv.Atoi(parts[len(parts)-1]); err == nil {
			meta.Trial = n
			parts = parts[:len(parts)-1]
		}
	}

	switch {
	case len(parts) >= 2:
		meta.Subject = parts[0]
		meta.Activity = strings.Join(parts[1:], " ")
	case len(parts) == 1 && knownSubjects[parts[0]]:
		meta.Subject = parts[0]
	case len(parts) == 1:
		meta.Activity = parts[0]
	}
	return meta
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

const insoleTimeLayout = "2006-01-02 15:04:05.999999999"

func parseInsoleTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSuffix(strings.Replace(strings.TrimSpace(s), "T", " ", 1), "Z")
	return time.ParseInLocation(insoleTimeLayout, s, loc)
}

// FrameImport is the result of parsing one insole export.
type FrameImport struct {
	Meta    FileMetadata
	Frames  []db.PressureFrame
	Skipped int
}

// ParseInsoleCSV reads a SOLESENSE insole export: a header row, then
// timestamp, device name, sensor type and up to 108 pressure points per
// row. Blank, unparseable or non-finite points are stored as null.
func ParseInsoleCSV(name string, r io.Reader, loc *time.Location) (FrameImport, error) {
	out := FrameImport{Meta: ParseFilenameMetadata(name)}
	filename := filepath.Base(name)

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return out, ErrEmptyBatch
		}
		return out, fmt.Errorf("read header: %w", err)
	}

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil || len(row) < 3 {
			out.Skipped++
			continue
		}
		ts, err := parseInsoleTime(row[0], loc)
		if err != nil {
			out.Skipped++
			continue
		}

		points := make([]*float64, db.PressurePoints)
		for i := range points {
			col := i + 3
			if col >= len(row) {
				break
			}
			v := strings.TrimSpace(row[col])
			if v == "" {
				continue
			}
			if f, err := strconv.ParseFloat(v, 64); err == nil && isFinite(f) {
				points[i] = &f
			}
		}

		out.Frames = append(out.Frames, db.PressureFrame{
			Timestamp:    ts,
			DeviceName:   strings.TrimSpace(row[1]),
			SensorType:   strings.TrimSpace(row[2]),
			Subject:      out.Meta.Subject,
			Activity:     out.Meta.Activity,
			TrialNumber:  out.Meta.Trial,
			DateRecorded: out.Meta.DateRecorded,
			Filename:     filename,
			Points:       datatypes.NewJSONType(points),
		})
	}
	return out, nil
}
