package statsnz

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/urban-indicators/internal/config"
	"github.com/urban-indicators/internal/domain"
	"github.com/urban-indicators/internal/domain/repository"
	"github.com/urban-indicators/internal/pkg/errors"
	"github.com/urban-indicators/internal/pkg/geo"
)

// maxErrorBody caps how much of an error response ends up in logs
const maxErrorBody = 2048

type client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *zap.Logger
}

// NewStatsNZClient creates a WFS client for the Stats NZ datafinder
func NewStatsNZClient(cfg *config.StatsNZConfig, logger *zap.Logger) repository.VectorRepository {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		logger:     logger,
	}
}

// FetchLayer downloads every feature of the layer intersecting bbox. The box
// is sent in NZTM2000 because that is the native CRS of the datafinder layers;
// geometries come back in WGS84.
func (c *client) FetchLayer(ctx context.Context, layerID int, bbox domain.BoundingBox, idField string) (*domain.FeatureSet, error) {
	reqURL := c.layerURL(layerID, bbox)

	c.logger.Debug("Fetching vector layer",
		zap.Int("layer_id", layerID),
		zap.String("id_field", idField))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to execute WFS request", zap.Int("layer_id", layerID), zap.Error(err))
		return nil, errors.ErrExternalService.Detail("layer_id", layerID).Wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Error("WFS returned error",
			zap.Int("layer_id", layerID),
			zap.Int("status_code", resp.StatusCode),
			zap.String("body", string(body)))
		return nil, errors.ErrExternalService.
			WithDetails(map[string]interface{}{"layer_id": layerID, "status_code": resp.StatusCode}).
			Wrap(fmt.Errorf("wfs status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.ErrExternalService.Detail("layer_id", layerID).Wrap(err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.ErrSchemaViolation.Detail("layer_id", layerID).
			Wrap(fmt.Errorf("decode feature collection: %w", err))
	}

	set, err := toFeatureSet(fc, idField)
	if err != nil {
		return nil, errors.ErrSchemaViolation.Detail("layer_id", layerID).Wrap(err)
	}

	c.logger.Info("Fetched vector layer",
		zap.Int("layer_id", layerID),
		zap.Int("features", set.Len()),
		zap.Duration("took", time.Since(start)))

	return set, nil
}

func (c *client) layerURL(layerID int, bbox domain.BoundingBox) string {
	b := bbox.Normalize().Bound()
	if bbox.CoordinateSystem() == domain.CRSWGS84 {
		b = geo.BoundToNZTM(b)
	}

	q := url.Values{}
	q.Set("service", "WFS")
	q.Set("version", "2.0.0")
	q.Set("request", "GetFeature")
	q.Set("typeNames", fmt.Sprintf("layer-%d", layerID))
	q.Set("outputFormat", "json")
	q.Set("SRSName", fmt.Sprintf("EPSG:%d", domain.CRSWGS84))
	q.Set("cql_filter", bboxFilter(b))

	return fmt.Sprintf("%s/services;key=%s/wfs?%s", c.baseURL, c.apiKey, q.Encode())
}

func bboxFilter(b orb.Bound) string {
	return fmt.Sprintf("bbox(shape,%f,%f,%f,%f,'urn:ogc:def:crs:EPSG::%d')",
		b.Min.X(), b.Min.Y(), b.Max.X(), b.Max.Y(), domain.CRSNZTM)
}

func toFeatureSet(fc *geojson.FeatureCollection, idField string) (*domain.FeatureSet, error) {
	set := &domain.FeatureSet{
		IDField:  idField,
		Features: make([]domain.Feature, 0, len(fc.Features)),
	}
	for i, f := range fc.Features {
		raw, ok := f.Properties[idField]
		if !ok {
			return nil, fmt.Errorf("feature %d has no %s property", i, idField)
		}
		id, err := domain.ToInt64(raw)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		set.Features = append(set.Features, domain.Feature{
			ID:         id,
			Geometry:   f.Geometry,
			Properties: map[string]interface{}(f.Properties),
		})
	}
	return set, nil
}
