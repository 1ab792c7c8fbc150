package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// LossColumn CSV 헤더 (단일 컬럼)
const LossColumn = "aggregate_loss"

// ErrMissingColumn aggregate_loss 컬럼 없음
var ErrMissingColumn = errors.New("missing aggregate_loss column")

// WriteLosses 표본을 단일 컬럼 CSV로 저장 (행마다 값 1개)
func WriteLosses(path string, losses []float64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := EncodeLosses(f, losses); err != nil {
		return err
	}

	return f.Close()
}

// EncodeLosses writes the CSV form of losses to w
func EncodeLosses(w io.Writer, losses []float64) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{LossColumn}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, 1)
	for _, v := range losses {
		// shortest representation that round-trips
		row[0] = strconv.FormatFloat(v, 'g', -1, 64)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadLosses aggregate_loss 컬럼 읽기 (다른 컬럼은 무시)
func ReadLosses(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	losses, err := DecodeLosses(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return losses, nil
}

// DecodeLosses parses CSV with a header row containing aggregate_loss
func DecodeLosses(r io.Reader) ([]float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrMissingColumn
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := -1
	for i, name := range header {
		if strings.TrimSpace(name) == LossColumn {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, ErrMissingColumn
	}

	var losses []float64
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if col >= len(record) {
			return nil, fmt.Errorf("line %d: %w", line, ErrMissingColumn)
		}

		v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		losses = append(losses, v)
	}

	return losses, nil
}
