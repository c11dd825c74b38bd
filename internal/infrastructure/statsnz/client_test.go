package statsnz

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/urban-indicators/internal/config"
	"github.com/urban-indicators/internal/domain"
	"github.com/urban-indicators/internal/pkg/errors"
)

const layerResponse = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "id": "layer-92210.1",
      "geometry": {"type": "Polygon", "coordinates": [[[175.27,-37.78],[175.28,-37.78],[175.28,-37.79],[175.27,-37.78]]]},
      "properties": {"SA12018_V1_00": "7001234", "LANDWATER_NAME": "Mainland", "AREA_SQ_KM": 0.12}
    },
    {
      "type": "Feature",
      "id": "layer-92210.2",
      "geometry": {"type": "Polygon", "coordinates": [[[175.29,-37.78],[175.30,-37.78],[175.30,-37.79],[175.29,-37.78]]]},
      "properties": {"SA12018_V1_00": 7001235, "LANDWATER_NAME": "Inlet", "AREA_SQ_KM": 0.4}
    }
  ]
}`

func newTestClient(baseURL string) *client {
	cfg := &config.StatsNZConfig{APIKey: "test-key", BaseURL: baseURL, Timeout: 5 * time.Second}
	return NewStatsNZClient(cfg, zap.NewNop()).(*client)
}

var hamilton = domain.BoundingBox{Lat1: -38.01, Lng1: 174.88, Lat2: -37.54, Lng2: 175.49}

func TestClient_FetchLayer(t *testing.T) {
	t.Run("successful request", func(t *testing.T) {
		var gotPath, gotFilter, gotType string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotFilter = r.URL.Query().Get("cql_filter")
			gotType = r.URL.Query().Get("typeNames")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(layerResponse))
		}))
		defer server.Close()

		c := newTestClient(server.URL)
		set, err := c.FetchLayer(context.Background(), 92210, hamilton, "SA12018_V1_00")
		require.NoError(t, err)

		assert.Equal(t, "/services;key=test-key/wfs", gotPath)
		assert.Equal(t, "layer-92210", gotType)
		assert.True(t, strings.HasPrefix(gotFilter, "bbox(shape,"))
		assert.Contains(t, gotFilter, "'urn:ogc:def:crs:EPSG::2193'")

		require.Equal(t, 2, set.Len())
		assert.Equal(t, "SA12018_V1_00", set.IDField)
		assert.Equal(t, int64(7001234), set.Features[0].ID)
		assert.Equal(t, int64(7001235), set.Features[1].ID)
		assert.Equal(t, "Inlet", set.Features[1].String("LANDWATER_NAME"))
		_, isPolygon := set.Features[0].Geometry.(orb.Polygon)
		assert.True(t, isPolygon)
	})

	t.Run("missing id property", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(layerResponse))
		}))
		defer server.Close()

		c := newTestClient(server.URL)
		_, err := c.FetchLayer(context.Background(), 92210, hamilton, "SA22018_V1_00")
		require.Error(t, err)
		assert.True(t, stderrors.Is(err, errors.ErrSchemaViolation))
	})

	t.Run("error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "invalid key", http.StatusForbidden)
		}))
		defer server.Close()

		c := newTestClient(server.URL)
		set, err := c.FetchLayer(context.Background(), 92210, hamilton, "SA12018_V1_00")
		assert.Nil(t, set)
		require.Error(t, err)
		assert.True(t, stderrors.Is(err, errors.ErrExternalService))
	})
}

func TestLayerURL_ReprojectsWGS84Box(t *testing.T) {
	c := newTestClient("https://datafinder.example/")
	u := c.layerURL(111198, hamilton)

	assert.True(t, strings.HasPrefix(u, "https://datafinder.example/services;key=test-key/wfs?"))
	assert.Contains(t, u, "outputFormat=json")
	assert.Contains(t, u, "SRSName=EPSG%3A4326")
	// NZTM eastings around Hamilton are ~1.75-1.8 million metres
	assert.Contains(t, u, "bbox%28shape%2C17")
}

func TestLayerURL_NZTMBoxPassedThrough(t *testing.T) {
	c := newTestClient("https://datafinder.example")
	box := domain.BoundingBox{Lat1: 5800000, Lng1: 1750000, Lat2: 5820000, Lng2: 1760000, CRS: domain.CRSNZTM}

	got := bboxFilter(box.Normalize().Bound())
	assert.Equal(t, "bbox(shape,1750000.000000,5800000.000000,1760000.000000,5820000.000000,'urn:ogc:def:crs:EPSG::2193')", got)
	assert.Contains(t, c.layerURL(1, box), "1750000.000000")
}
