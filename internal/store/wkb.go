package store

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// EncodeEWKB converts a feature geometry to little-endian EWKB bytes.
// Geometries without an SRID are stamped with 4326.
func EncodeEWKB(g geom.T) ([]byte, error) {
	if g == nil {
		return nil, eris.New("wkb: nil geometry")
	}

	if g.SRID() == 0 {
		switch t := g.(type) {
		case *geom.Point:
			g = t.SetSRID(4326)
		case *geom.LineString:
			g = t.SetSRID(4326)
		}
	}

	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "wkb: encode EWKB")
	}
	return data, nil
}

// DecodeEWKB parses EWKB bytes written by EncodeEWKB.
func DecodeEWKB(data []byte) (geom.T, error) {
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "wkb: decode EWKB")
	}
	return g, nil
}
