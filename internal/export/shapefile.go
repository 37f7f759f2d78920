// Package export writes the master layers to shapefiles, a workbook, and
// GeoJSON.
package export

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/blewis-maker/Katapult-Automation/internal/aggregate"
)

// wgs84PRJ is the ESRI WKT for EPSG:4326.
const wgs84PRJ = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

// WriteShapefiles writes one shapefile per layer into dir and returns the .shp
// paths in layer order.
func WriteShapefiles(dir string, layers []aggregate.Layer) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "export: create output dir")
	}

	paths := make([]string, 0, len(layers))
	for _, l := range layers {
		p, err := WriteShapefile(dir, l)
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// WriteShapefile writes a single layer as <dir>/<layer>.shp with its .shx,
// .dbf, and .prj siblings.
func WriteShapefile(dir string, layer aggregate.Layer) (string, error) {
	shapeType, err := shapeTypeFor(layer.GeomType)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, layer.Name+".shp")
	w, err := shp.Create(path, shapeType)
	if err != nil {
		return "", eris.Wrapf(err, "export: create shapefile %s", path)
	}

	skipped, err := writeFeatures(w, layer)
	w.Close()
	if err != nil {
		return "", err
	}
	if err := placeDBF(strings.TrimSuffix(path, ".shp")); err != nil {
		return "", err
	}

	if err := writePRJ(dir, layer.Name); err != nil {
		return "", err
	}

	zap.L().Info("export: wrote shapefile",
		zap.String("path", path),
		zap.Int("features", len(layer.Features)-skipped),
		zap.Int("skipped", skipped),
	)
	return path, nil
}

// writeFeatures writes the DBF schema, then every feature with its attribute
// row. It returns the number of features skipped for unusable geometry.
func writeFeatures(w *shp.Writer, layer aggregate.Layer) (int, error) {
	if err := w.SetFields(dbfFields(layer.Columns)); err != nil {
		return 0, eris.Wrapf(err, "export: set fields for %s", layer.Name)
	}

	var skipped int
	for i, f := range layer.Features {
		shape, err := toShape(f.Geometry)
		if err != nil {
			skipped++
			zap.L().Debug("export: skipping feature without usable geometry",
				zap.String("layer", layer.Name), zap.Int("index", i), zap.Error(err))
			continue
		}

		row := int(w.Write(shape))
		for j, col := range layer.Columns {
			if err := w.WriteAttribute(row, j, dbfValue(col, f.Values[j])); err != nil {
				return skipped, eris.Wrapf(err, "export: write %s.%s row %d", layer.Name, col.Short, row)
			}
		}
	}
	return skipped, nil
}

// placeDBF moves the attribute table to <base>.dbf. go-shp v0.1.1 names it
// <base>dbf, without the dot; a writer that already uses the right name is
// left alone.
func placeDBF(base string) error {
	misnamed := base + "dbf"
	if _, err := os.Stat(misnamed); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return eris.Wrapf(err, "export: stat %s", misnamed)
	}
	if err := os.Rename(misnamed, base+".dbf"); err != nil {
		return eris.Wrapf(err, "export: rename %s", misnamed)
	}
	return nil
}

func shapeTypeFor(geomType string) (shp.ShapeType, error) {
	switch geomType {
	case aggregate.GeomPoint:
		return shp.POINT, nil
	case aggregate.GeomLineString:
		return shp.POLYLINE, nil
	default:
		return shp.NULL, eris.Errorf("export: unsupported geometry type %q", geomType)
	}
}

func dbfFields(cols []aggregate.Column) []shp.Field {
	fields := make([]shp.Field, len(cols))
	for i, c := range cols {
		if c.Kind == aggregate.KindFloat {
			fields[i] = shp.FloatField(c.Short, c.Size, c.Precision)
		} else {
			fields[i] = shp.StringField(c.Short, c.Size)
		}
	}
	return fields
}

// dbfValue converts a value to what the DBF writer accepts. Strings are
// clipped to the field width and space padded.
func dbfValue(col aggregate.Column, v any) any {
	if col.Kind == aggregate.KindFloat {
		if f, ok := v.(float64); ok {
			return f
		}
		return 0.0
	}
	s := clip(aggregate.FormatValue(v), int(col.Size))
	return s + strings.Repeat(" ", int(col.Size)-len(s))
}

// clip shortens s to at most n bytes without splitting a UTF-8 sequence.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

func toShape(g geom.T) (shp.Shape, error) {
	switch t := g.(type) {
	case *geom.Point:
		if t == nil || t.Empty() {
			return nil, eris.New("export: empty point")
		}
		return &shp.Point{X: t.X(), Y: t.Y()}, nil
	case *geom.LineString:
		if t == nil || t.NumCoords() < 2 {
			return nil, eris.New("export: degenerate line")
		}
		pts := make([]shp.Point, 0, t.NumCoords())
		for i := 0; i < t.NumCoords(); i++ {
			c := t.Coord(i)
			pts = append(pts, shp.Point{X: c.X(), Y: c.Y()})
		}
		return shp.NewPolyLine([][]shp.Point{pts}), nil
	default:
		return nil, eris.Errorf("export: unsupported geometry %T", g)
	}
}

func writePRJ(dir, name string) error {
	p := filepath.Join(dir, name+".prj")
	if err := os.WriteFile(p, []byte(wgs84PRJ), 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", p)
	}
	return nil
}
