package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestEncodeEWKB_StampsSRID(t *testing.T) {
	t.Parallel()

	data, err := EncodeEWKB(geom.NewPointFlat(geom.XY, []float64{-105, 40}))
	require.NoError(t, err)

	g, err := DecodeEWKB(data)
	require.NoError(t, err)
	assert.Equal(t, 4326, g.SRID())
}

func TestEncodeEWKB_LineString(t *testing.T) {
	t.Parallel()

	ls := geom.NewLineStringFlat(geom.XY, []float64{-105, 40, -105, 40.001}).SetSRID(4326)
	data, err := EncodeEWKB(ls)
	require.NoError(t, err)

	g, err := DecodeEWKB(data)
	require.NoError(t, err)
	assert.Equal(t, ls.FlatCoords(), g.FlatCoords())
}

func TestEncodeEWKB_Nil(t *testing.T) {
	t.Parallel()

	_, err := EncodeEWKB(nil)
	assert.Error(t, err)
}

func TestDecodeEWKB_Garbage(t *testing.T) {
	t.Parallel()

	_, err := DecodeEWKB([]byte{0x01, 0x02})
	assert.Error(t, err)
}
