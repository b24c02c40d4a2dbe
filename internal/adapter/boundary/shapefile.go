package boundary

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/sightings-etl/internal/domain"
	"github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"
)

// readShapefile loads polygon records from a .shp file and its .dbf
// attributes. override, when known, takes precedence over the .prj sidecar.
func readShapefile(path, labelField string, override domain.CRS, logger *slog.Logger) (domain.BoundarySet, error) {
	crs, err := shapefileCRS(path, override, logger)
	if err != nil {
		return domain.BoundarySet{}, err
	}

	reader, err := shp.Open(path)
	if err != nil {
		return domain.BoundarySet{}, fmt.Errorf("open shapefile %s: %w", path, err)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
	}

	set := domain.BoundarySet{CRS: crs}
	for reader.Next() {
		n, shape := reader.Shape()

		props := make(map[string]any, len(names))
		for i, name := range names {
			props[name] = strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
		}

		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil {
			logger.Debug("boundary record skipped", "record", n, "type", fmt.Sprintf("%T", shape))
			continue
		}
		g := polygonFromShape(poly)
		if g == nil {
			logger.Debug("boundary record skipped", "record", n, "reason", "no rings")
			continue
		}
		set.Polygons = append(set.Polygons, domain.BoundaryPolygon{
			Label:      labelOf(props, labelField),
			Geometry:   g,
			Properties: props,
		})
	}
	if err := reader.Err(); err != nil {
		return domain.BoundarySet{}, fmt.Errorf("read shapefile %s: %w", path, err)
	}
	return set, nil
}

// shapefileCRS reads the .prj sidecar even when an override is set, so a
// disagreement between the two is logged before the override wins.
func shapefileCRS(path string, override domain.CRS, logger *slog.Logger) (domain.CRS, error) {
	declared, err := readPRJ(path)
	if !override.Known() {
		return declared, err
	}
	if err != nil {
		logger.Debug("shapefile projection not detected, using override", "path", path, "override", override.String(), "error", err)
		return override, nil
	}
	if declared != override {
		logger.Warn("boundary CRS overridden", "declared", declared.String(), "override", override.String())
	}
	return override, nil
}

// readPRJ detects the CRS from the .prj sidecar next to a .shp file.
func readPRJ(shpPath string) (domain.CRS, error) {
	base := strings.TrimSuffix(shpPath, filepath.Ext(shpPath))
	for _, ext := range []string{".prj", ".PRJ"} {
		data, err := os.ReadFile(base + ext)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("read projection file: %w", err)
		}
		return parsePRJ(string(data))
	}
	return "", fmt.Errorf("%w: no .prj beside %s and no BOUNDARY_CRS set", domain.ErrUnknownCRS, shpPath)
}

// polygonFromShape groups shapefile rings into polygons. Outer rings are
// clockwise and holes counter-clockwise; each hole joins the first outer ring
// that contains it. A hole with no enclosing outer ring becomes its own
// polygon. A single polygon is returned as *geom.Polygon, several as
// *geom.MultiPolygon.
func polygonFromShape(p *shp.Polygon) geom.T {
	var outers, holes [][]float64
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 4 {
			continue
		}
		ring := make([]float64, 0, 2*(end-start))
		for j := start; j < end; j++ {
			ring = append(ring, p.Points[j].X, p.Points[j].Y)
		}
		if signedArea(ring) < 0 {
			outers = append(outers, ring)
		} else {
			holes = append(holes, ring)
		}
	}

	groups := make([][][]float64, len(outers))
	for i, o := range outers {
		groups[i] = [][]float64{o}
	}
	for _, h := range holes {
		placed := false
		for i, o := range outers {
			if xy.LocatePointInRing(geom.XY, geom.Coord{h[0], h[1]}, o) != location.Exterior {
				groups[i] = append(groups[i], h)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, [][]float64{h})
		}
	}

	switch len(groups) {
	case 0:
		return nil
	case 1:
		flat, ends := appendRings(nil, groups[0])
		return geom.NewPolygonFlat(geom.XY, flat, ends)
	default:
		var flat []float64
		endss := make([][]int, 0, len(groups))
		for _, g := range groups {
			var ends []int
			flat, ends = appendRings(flat, g)
			endss = append(endss, ends)
		}
		return geom.NewMultiPolygonFlat(geom.XY, flat, endss)
	}
}

// appendRings appends rings to flat, returning the grown slice and the end
// offset of each ring within it.
func appendRings(flat []float64, rings [][]float64) ([]float64, []int) {
	ends := make([]int, 0, len(rings))
	for _, r := range rings {
		flat = append(flat, r...)
		ends = append(ends, len(flat))
	}
	return flat, ends
}

// signedArea is the shoelace area of a closed ring: positive when
// counter-clockwise, negative when clockwise.
func signedArea(ring []float64) float64 {
	var sum float64
	n := len(ring) / 2
	for i := range n {
		j := (i + 1) % n
		sum += ring[2*i]*ring[2*j+1] - ring[2*j]*ring[2*i+1]
	}
	return sum / 2
}
