package loader

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSXOptions configures the XLSX parser.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// OpportunitiesFromXLSX reads a destination_id,value sheet. Column order is
// resolved from the header row, matching the CSV loader.
func OpportunitiesFromXLSX(path string, opts XLSXOptions) (map[string]float64, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, eris.New("xlsx: empty sheet")
	}

	header := rowToStrings(sheet.Rows[0])
	for i := range header {
		header[i] = strings.TrimSpace(strings.ToLower(header[i]))
	}
	cols, err := columnIndex(header, "destination_id", "value")
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64)
	for _, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
		if len(cells) <= cols["value"] {
			continue // trailing blank row
		}
		id := strings.TrimSpace(cells[cols["destination_id"]])
		if id == "" {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(cells[cols["value"]]), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "xlsx: opportunity value for %q", id)
		}
		if v < 0 {
			return nil, eris.Errorf("xlsx: opportunity for %q is %v, must be >= 0", id, v)
		}
		out[id] = v
	}
	return out, nil
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
