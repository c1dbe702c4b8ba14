// Package loader parses location, opportunity, and cost-relation inputs from
// CSV, XLSX, and shapefile sources.
package loader

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/access-cli/internal/access"
	"github.com/sells-group/access-cli/internal/store"
)

// CSVOptions configures the streaming CSV parser.
type CSVOptions struct {
	Delimiter  rune // default ','
	Comment    rune // comment character (0 = none)
	LazyQuotes bool
}

// StreamCSV reads CSV rows into a channel. The first row is returned
// separately as the header. Caller must consume the row channel; both
// channels are closed when processing completes.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (header []string, rows <-chan []string, errs <-chan error, err error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	if opts.Comment != 0 {
		reader.Comment = opts.Comment
	}
	reader.LazyQuotes = opts.LazyQuotes
	reader.FieldsPerRecord = -1

	header, err = reader.Read()
	if err != nil {
		return nil, nil, nil, eris.Wrap(err, "csv: read header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.ToLower(header[i]))
	}

	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}
			for i, field := range record {
				record[i] = strings.TrimSpace(field)
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return header, rowCh, errCh, nil
}

// columnIndex resolves required column names against a header row.
func columnIndex(header []string, names ...string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}
	out := make(map[string]int, len(names))
	for _, name := range names {
		i, ok := idx[name]
		if !ok {
			return nil, eris.Errorf("loader: missing column %q (header: %s)", name, strings.Join(header, ","))
		}
		out[name] = i
	}
	return out, nil
}

// OpportunitiesFromCSV parses a destination_id,value table. Negative values
// are rejected at load time rather than surfacing later as bad scores.
func OpportunitiesFromCSV(ctx context.Context, r io.Reader) (map[string]float64, error) {
	header, rows, errs, err := StreamCSV(ctx, r, CSVOptions{})
	if err != nil {
		return nil, err
	}
	cols, err := columnIndex(header, "destination_id", "value")
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64)
	for row := range rows {
		id := row[cols["destination_id"]]
		v, err := strconv.ParseFloat(row[cols["value"]], 64)
		if err != nil {
			return nil, eris.Wrapf(err, "loader: opportunity value for %q", id)
		}
		if v < 0 {
			return nil, eris.Errorf("loader: opportunity for %q is %v, must be >= 0", id, v)
		}
		out[id] = v
	}
	if err := <-errs; err != nil {
		return nil, err
	}
	return out, nil
}

// CostEdgesFromCSV parses an origin_id,destination_id,cost table.
func CostEdgesFromCSV(ctx context.Context, r io.Reader) ([]access.CostEdge, error) {
	header, rows, errs, err := StreamCSV(ctx, r, CSVOptions{})
	if err != nil {
		return nil, err
	}
	cols, err := columnIndex(header, "origin_id", "destination_id", "cost")
	if err != nil {
		return nil, err
	}

	var edges []access.CostEdge
	for row := range rows {
		cost, err := strconv.ParseFloat(row[cols["cost"]], 64)
		if err != nil {
			return nil, eris.Wrapf(err, "loader: cost for %q -> %q",
				row[cols["origin_id"]], row[cols["destination_id"]])
		}
		if cost < 0 {
			return nil, eris.Errorf("loader: cost for %q -> %q is %v, must be >= 0",
				row[cols["origin_id"]], row[cols["destination_id"]], cost)
		}
		edges = append(edges, access.CostEdge{
			OriginID:      row[cols["origin_id"]],
			DestinationID: row[cols["destination_id"]],
			Cost:          cost,
		})
	}
	if err := <-errs; err != nil {
		return nil, err
	}
	return edges, nil
}

// LocationsFromCSV parses an id,kind,name,lng,lat table. The name column is
// optional.
func LocationsFromCSV(ctx context.Context, r io.Reader) ([]store.Location, error) {
	header, rows, errs, err := StreamCSV(ctx, r, CSVOptions{})
	if err != nil {
		return nil, err
	}
	cols, err := columnIndex(header, "id", "kind", "lng", "lat")
	if err != nil {
		return nil, err
	}
	nameIdx := -1
	for i, h := range header {
		if h == "name" {
			nameIdx = i
		}
	}

	var locs []store.Location
	for row := range rows {
		id := row[cols["id"]]
		kind, err := parseKind(row[cols["kind"]])
		if err != nil {
			return nil, eris.Wrapf(err, "loader: location %q", id)
		}
		lng, err := strconv.ParseFloat(row[cols["lng"]], 64)
		if err != nil {
			return nil, eris.Wrapf(err, "loader: lng for %q", id)
		}
		lat, err := strconv.ParseFloat(row[cols["lat"]], 64)
		if err != nil {
			return nil, eris.Wrapf(err, "loader: lat for %q", id)
		}

		loc := store.Location{ID: id, Kind: kind, Lng: lng, Lat: lat}
		if nameIdx >= 0 && nameIdx < len(row) {
			loc.Name = row[nameIdx]
		}
		locs = append(locs, loc)
	}
	if err := <-errs; err != nil {
		return nil, err
	}
	return locs, nil
}

func parseKind(s string) (store.LocationKind, error) {
	switch store.LocationKind(strings.ToLower(s)) {
	case store.KindOrigin:
		return store.KindOrigin, nil
	case store.KindDestination:
		return store.KindDestination, nil
	default:
		return "", eris.Errorf("unknown location kind %q", s)
	}
}
