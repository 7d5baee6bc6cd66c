package datasource

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/tomrford/mint/errs"
	"github.com/tomrford/mint/internal/hash"
	"github.com/tomrford/mint/value"
)

// jsonNumberOf renders a Go numeric value as a json.Number so it flows
// through the same numberToDataValue classification the JSON/HTTP/SQL
// adapters use, keeping cell-type mapping consistent across sources.
func jsonNumberOf(n any) json.Number {
	switch v := n.(type) {
	case uint64:
		return json.Number(fmt.Sprintf("%d", v))
	case int64:
		return json.Number(fmt.Sprintf("%d", v))
	case float64:
		return json.Number(strconv.FormatFloat(v, 'g', -1, 64))
	default:
		return json.Number(fmt.Sprintf("%v", v))
	}
}

// ExcelSource resolves plain names against a `main_sheet` table (first
// column: names, header row: version columns) and resolves names that
// carry a "Sheet!A1:B2"-style range remainder directly against that named
// range, independent of the version stack — the natural Go equivalent of
// the named-range lookups (e.g. a `CalibrationMatrix`) the retained test
// suite exercises for 1D/2D array fields.
type ExcelSource struct {
	f     *excelize.File
	inner *shapeSource

	rangeMu    sync.RWMutex
	rangeCache map[uint64][][]value.DataValue
}

var _ Source = (*ExcelSource)(nil)

// NewExcelSource opens path and builds the main_sheet shape once at
// construction, then validates the version stack against it.
func NewExcelSource(path, mainSheet string, versions []string) (*ExcelSource, error) {
	if mainSheet == "" {
		mainSheet = "Sheet1"
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.IoError, "", "", err)
	}

	rows, err := f.GetRows(mainSheet)
	if err != nil {
		_ = f.Close()
		return nil, errs.Wrap(errs.IoError, "", "", err)
	}
	if len(rows) == 0 {
		_ = f.Close()
		return nil, errs.New(errs.LayoutParse, "", "", "main sheet has no rows")
	}

	header := rows[0]
	s := make(shape, len(header))
	for _, v := range header[1:] {
		s[v] = make(map[string]any)
	}

	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		name := row[0]
		for col := 1; col < len(row) && col < len(header); col++ {
			version := header[col]
			cell := row[col]
			if cell == "" {
				continue
			}
			s[version][name] = parseExcelCell(cell)
		}
	}

	inner, err := newVerifiedShapeSource(s, versions)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return &ExcelSource{f: f, inner: inner, rangeCache: make(map[uint64][][]value.DataValue)}, nil
}

// parseExcelCell maps a cell's formatted string onto the narrowest
// faithful DataValue-compatible json value: unsigned then signed integer,
// then float, then bool, falling back to the literal string.
func parseExcelCell(cell string) any {
	if u, err := strconv.ParseUint(cell, 10, 64); err == nil {
		return jsonNumberOf(u)
	}
	if i, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return jsonNumberOf(i)
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return jsonNumberOf(f)
	}
	if b, ok := parseExcelBool(cell); ok {
		return b
	}
	return cell
}

func parseExcelBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}

func (e *ExcelSource) RetrieveSingleValue(name string) (value.DataValue, error) {
	return e.inner.RetrieveSingleValue(name)
}

func (e *ExcelSource) Retrieve1DArrayOrString(name string) (value.ValueSource, error) {
	if isSheetRangeRef(name) {
		rows, err := e.resolveSheetRange(name)
		if err != nil {
			return value.ValueSource{}, err
		}
		flat := make([]value.DataValue, 0)
		for _, row := range rows {
			flat = append(flat, row...)
		}
		return value.Array(flat), nil
	}
	return e.inner.Retrieve1DArrayOrString(name)
}

func (e *ExcelSource) Retrieve2DArray(name string) ([][]value.DataValue, error) {
	if isSheetRangeRef(name) {
		return e.resolveSheetRange(name)
	}
	return e.inner.Retrieve2DArray(name)
}

// Close releases the underlying workbook handle.
func (e *ExcelSource) Close() error {
	return e.f.Close()
}

func isSheetRangeRef(name string) bool {
	return strings.Contains(name, "!")
}

// resolveSheetRange reads a "Sheet!A1:B2"-style reference as a row-major
// matrix, caching the decoded result behind the reference's xxhash so
// repeated lookups of the same named range (e.g. across multiple fields)
// do not re-walk the sheet.
func (e *ExcelSource) resolveSheetRange(ref string) ([][]value.DataValue, error) {
	key := hash.ID(ref)

	e.rangeMu.RLock()
	if cached, ok := e.rangeCache[key]; ok {
		e.rangeMu.RUnlock()
		return cached, nil
	}
	e.rangeMu.RUnlock()

	sheet, startCol, startRow, endCol, endRow, err := parseSheetRange(ref)
	if err != nil {
		return nil, err
	}

	out := make([][]value.DataValue, 0, endRow-startRow+1)
	for r := startRow; r <= endRow; r++ {
		row := make([]value.DataValue, 0, endCol-startCol+1)
		for c := startCol; c <= endCol; c++ {
			cellName, err := excelize.CoordinatesToCellName(c, r)
			if err != nil {
				return nil, errs.Wrap(errs.LayoutParse, "", ref, err)
			}
			cellVal, err := e.f.GetCellValue(sheet, cellName)
			if err != nil {
				return nil, errs.Wrap(errs.IoError, "", ref, err)
			}
			row = append(row, cellToDataValue(cellVal))
		}
		out = append(out, row)
	}

	e.rangeMu.Lock()
	e.rangeCache[key] = out
	e.rangeMu.Unlock()

	return out, nil
}

func cellToDataValue(cell string) value.DataValue {
	switch v := parseExcelCell(cell).(type) {
	case bool:
		return value.Bool(v)
	case string:
		return value.Str(v)
	default:
		dv, err := jsonToDataValue(v, "")
		if err != nil {
			return value.Str(cell)
		}
		return dv
	}
}

// parseSheetRange splits "Sheet!A1:D4" into a sheet name and inclusive
// (col, row) bounds.
func parseSheetRange(ref string) (sheet string, startCol, startRow, endCol, endRow int, err error) {
	bang := strings.Index(ref, "!")
	if bang < 0 {
		return "", 0, 0, 0, 0, errs.New(errs.LayoutParse, "", ref, "missing '!' in sheet:range reference")
	}
	sheet = ref[:bang]
	rangeRef := ref[bang+1:]

	colon := strings.Index(rangeRef, ":")
	if colon < 0 {
		return "", 0, 0, 0, 0, errs.New(errs.LayoutParse, "", ref, "missing ':' in cell range")
	}
	startCol, startRow, err = excelize.CellNameToCoordinates(rangeRef[:colon])
	if err != nil {
		return "", 0, 0, 0, 0, errs.Wrap(errs.LayoutParse, "", ref, err)
	}
	endCol, endRow, err = excelize.CellNameToCoordinates(rangeRef[colon+1:])
	if err != nil {
		return "", 0, 0, 0, 0, errs.Wrap(errs.LayoutParse, "", ref, err)
	}
	return sheet, startCol, startRow, endCol, endRow, nil
}
