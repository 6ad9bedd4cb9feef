package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/stellar/go/support/errors"
	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/db"
)

type Format string

const (
	FormatParquet Format = "parquet"
	FormatCSV     Format = "csv"
)

var Formats = []Format{FormatParquet, FormatCSV}

func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/vnd.apache.parquet"
}

// Export writes the steps of a run in the given format.
func Export(w io.Writer, format Format, steps []db.RunStep) error {
	switch format {
	case FormatParquet:
		return WriteParquet(w, steps)
	case FormatCSV:
		return WriteCSV(w, steps)
	}
	return fmt.Errorf("unknown export format %q", format)
}

// WriteFiles exports the steps of a run to <dir>/<runID>.<format> for every
// format and returns the written paths.
func WriteFiles(dir, runID string, steps []db.RunStep) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var paths []string
	for _, format := range Formats {
		path := filepath.Join(dir, runID+"."+string(format))
		if err := writeFile(path, format, steps); err != nil {
			return paths, errors.Wrapf(err, "could not write %s", path)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, format Format, steps []db.RunStep) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Export(file, format, steps); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

var csvHeader = []string{
	"case_sequence", "case_name", "show_name", "author", "source", "row",
	"case_status", "step", "status", "message", "created_at",
}

func WriteCSV(w io.Writer, steps []db.RunStep) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.Wrap(err, "could not write csv header")
	}
	for _, step := range steps {
		if err := cw.Write([]string{
			strconv.Itoa(step.CaseSequence),
			step.CaseName,
			step.ShowName,
			step.Author,
			step.Source,
			strconv.Itoa(step.Row),
			step.CaseStatus,
			strconv.Itoa(step.Sequence),
			step.Status,
			step.Message,
			formatMillis(step.CreatedAt),
		}); err != nil {
			return errors.Wrap(err, "could not write csv row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "could not flush csv")
}

type parquetStep struct {
	CaseSequence int32  `parquet:"name=case_sequence, type=INT32"`
	CaseName     string `parquet:"name=case_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	ShowName     string `parquet:"name=show_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Author       string `parquet:"name=author, type=BYTE_ARRAY, convertedtype=UTF8"`
	Source       string `parquet:"name=source, type=BYTE_ARRAY, convertedtype=UTF8"`
	Row          int32  `parquet:"name=row, type=INT32"`
	CaseStatus   string `parquet:"name=case_status, type=BYTE_ARRAY, convertedtype=UTF8"`
	Step         int32  `parquet:"name=step, type=INT32"`
	Status       string `parquet:"name=status, type=BYTE_ARRAY, convertedtype=UTF8"`
	Message      string `parquet:"name=message, type=BYTE_ARRAY, convertedtype=UTF8"`
	CreatedAt    int64  `parquet:"name=created_at, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
}

func WriteParquet(w io.Writer, steps []db.RunStep) error {
	pw, err := writer.NewParquetWriter(writerfile.NewWriterFile(w), new(parquetStep), 1)
	if err != nil {
		return errors.Wrap(err, "invalid parquet schema")
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, step := range steps {
		if err := pw.Write(parquetStep{
			CaseSequence: int32(step.CaseSequence),
			CaseName:     step.CaseName,
			ShowName:     step.ShowName,
			Author:       step.Author,
			Source:       step.Source,
			Row:          int32(step.Row),
			CaseStatus:   step.CaseStatus,
			Step:         int32(step.Sequence),
			Status:       step.Status,
			Message:      step.Message,
			CreatedAt:    step.CreatedAt,
		}); err != nil {
			return errors.Wrap(err, "could not write parquet row")
		}
	}
	return errors.Wrap(pw.WriteStop(), "could not finish parquet file")
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
}
