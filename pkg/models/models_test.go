package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCoordinate_JSON(t *testing.T) {
	q := EarthquakeSummary{Latitude: Coordinate(math.NaN()), Longitude: 126.31}

	raw, err := json.Marshal(q)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"latitude":null`)
	require.Contains(t, string(raw), `"longitude":126.31`)

	var back EarthquakeSummary
	require.NoError(t, json.Unmarshal(raw, &back))
	require.False(t, back.Latitude.Valid())
	require.EqualValues(t, 126.31, back.Longitude)

	require.Error(t, json.Unmarshal([]byte(`{"latitude":"north"}`), &back))
}

func TestCoordinate_String(t *testing.T) {
	require.Equal(t, "14.2", Coordinate(14.2).String())
	require.Equal(t, "0", Coordinate(0).String())
	require.Empty(t, Coordinate(math.NaN()).String())
}
