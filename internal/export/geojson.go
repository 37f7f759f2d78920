package export

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/blewis-maker/Katapult-Automation/internal/aggregate"
)

// FeatureCollection converts a layer to a GeoJSON feature collection. Feature
// properties use the long column names.
func FeatureCollection(layer aggregate.Layer) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(layer.Features))}
	for i, f := range layer.Features {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   f.Geometry,
			Properties: layer.Record(i),
		})
	}
	return fc
}

// WriteGeoJSON writes each layer as <dir>/<layer>.geojson and returns the
// paths in layer order.
func WriteGeoJSON(dir string, layers []aggregate.Layer) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "geojson: create output dir")
	}

	paths := make([]string, 0, len(layers))
	for _, l := range layers {
		data, err := FeatureCollection(l).MarshalJSON()
		if err != nil {
			return paths, eris.Wrapf(err, "geojson: marshal %s", l.Name)
		}
		p := filepath.Join(dir, l.Name+".geojson")
		if err := os.WriteFile(p, data, 0o644); err != nil {
			return paths, eris.Wrapf(err, "geojson: write %s", p)
		}
		zap.L().Info("export: wrote geojson", zap.String("path", p), zap.Int("features", len(l.Features)))
		paths = append(paths, p)
	}
	return paths, nil
}
