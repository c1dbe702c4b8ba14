package loader

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/sells-group/access-cli/internal/store"
)

// ShapefileOptions maps shapefile attributes to location fields.
type ShapefileOptions struct {
	IDField   string // attribute holding the location id (e.g. "GEOID")
	NameField string // optional attribute for a display name
	Kind      store.LocationKind
}

// LocationsFromShapefile reads point or polygon features and returns one
// location per feature. Polygons collapse to their area centroid, which is
// the coordinate handed to the travel-time service.
func LocationsFromShapefile(path string, opts ShapefileOptions) ([]store.Location, error) {
	if opts.IDField == "" {
		return nil, eris.New("loader: shapefile id field is required")
	}
	if opts.Kind != store.KindOrigin && opts.Kind != store.KindDestination {
		return nil, eris.Errorf("loader: invalid location kind %q", opts.Kind)
	}

	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	idIdx, ok := fieldIdx[strings.ToLower(opts.IDField)]
	if !ok {
		return nil, eris.Errorf("loader: shapefile has no field %q", opts.IDField)
	}
	nameIdx := -1
	if opts.NameField != "" {
		if i, ok := fieldIdx[strings.ToLower(opts.NameField)]; ok {
			nameIdx = i
		}
	}

	var locs []store.Location
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		id := strings.TrimSpace(strings.TrimRight(reader.Attribute(idIdx), "\x00"))
		if id == "" {
			skipped++
			continue
		}

		lng, lat, ok := representativePoint(shape)
		if !ok {
			skipped++
			continue
		}

		loc := store.Location{ID: id, Kind: opts.Kind, Lng: lng, Lat: lat}
		if nameIdx >= 0 {
			loc.Name = strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00"))
		}
		locs = append(locs, loc)
	}

	if skipped > 0 {
		zap.L().Debug("skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return locs, nil
}

// representativePoint reduces a shape to a single lng/lat coordinate.
func representativePoint(shape shp.Shape) (lng, lat float64, ok bool) {
	switch s := shape.(type) {
	case *shp.Point:
		return s.X, s.Y, true

	case *shp.Polygon:
		poly := polygonToGeom(s)
		if poly == nil {
			return 0, 0, false
		}
		c := xy.PolygonsCentroid(poly)
		return c.X(), c.Y(), true

	default:
		return 0, 0, false
	}
}

// polygonToGeom converts shapefile polygon parts into a geom.Polygon, each
// part as one ring.
func polygonToGeom(p *shp.Polygon) *geom.Polygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	poly := geom.NewPolygon(geom.XY).SetSRID(4326)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		if len(flat) < 8 { // a closed ring needs at least 4 points
			continue
		}
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
			zap.L().Debug("skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if poly.NumLinearRings() == 0 {
		return nil
	}
	return poly
}
