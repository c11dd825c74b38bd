package geoserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/urban-indicators/internal/config"
	"github.com/urban-indicators/internal/domain"
	"github.com/urban-indicators/internal/domain/repository"
	"github.com/urban-indicators/internal/pkg/errors"
)

const maxErrorBody = 2048

type client struct {
	httpClient *http.Client
	baseURL    string
	username   string
	password   string
	connection connectionParameters
	logger     *zap.Logger
}

// NewGeoServerClient creates a REST client for the GeoServer instance in cfg.
// Datastores it creates point at cfg.Database as seen from GeoServer.
func NewGeoServerClient(cfg *config.Config, logger *zap.Logger) repository.MapServerRepository {
	timeout := cfg.GeoServer.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.GetGeoServerURL(),
		username:   cfg.GeoServer.AdminName,
		password:   cfg.GeoServer.AdminPassword,
		connection: connectionParameters{
			Host:     cfg.GeoServer.DBHost,
			Port:     cfg.GeoServer.DBPort,
			Database: cfg.Database.DBName,
			User:     cfg.Database.User,
			Passwd:   cfg.Database.Password,
			DBType:   "postgis",
		},
		logger: logger,
	}
}

func (c *client) EnsureWorkspace(ctx context.Context, workspace string) error {
	body, err := json.Marshal(map[string]interface{}{
		"workspace": map[string]string{"name": workspace},
	})
	if err != nil {
		return fmt.Errorf("encode workspace: %w", err)
	}

	status, respBody, err := c.do(ctx, http.MethodPost, c.url("workspaces"), "application/json", body)
	if err != nil {
		return err
	}

	switch status {
	case http.StatusCreated:
		c.logger.Info("Created workspace", zap.String("workspace", workspace))
		return nil
	case http.StatusConflict:
		c.logger.Info("Workspace already exists", zap.String("workspace", workspace))
		return nil
	default:
		return c.statusError(status, respBody, "workspace", workspace)
	}
}

func (c *client) EnsureDataStore(ctx context.Context, workspace, store string) error {
	status, respBody, err := c.do(ctx, http.MethodGet, c.url("workspaces", workspace, "datastores.json"), "", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return c.statusError(status, respBody, "workspace", workspace)
	}

	names, err := listNames(respBody, "dataStores", "dataStore")
	if err != nil {
		return errors.ErrExternalService.Detail("workspace", workspace).Wrap(err)
	}
	if contains(names, store) {
		c.logger.Debug("Datastore already exists",
			zap.String("workspace", workspace),
			zap.String("datastore", store))
		return nil
	}

	body, err := marshalXML(dataStore{Name: store, Connection: c.connection})
	if err != nil {
		return err
	}

	endpoint := c.url("workspaces", workspace, "datastores") + "?configure=all"
	status, respBody, err = c.do(ctx, http.MethodPost, endpoint, "text/xml", body)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusCreated:
	case http.StatusConflict:
		return c.conflictError("datastore", store)
	default:
		return c.statusError(status, respBody, "datastore", store)
	}

	c.logger.Info("Created datastore",
		zap.String("workspace", workspace),
		zap.String("datastore", store))
	return nil
}

func (c *client) FeatureTypeExists(ctx context.Context, workspace, store, name string) (bool, error) {
	endpoint := c.url("workspaces", workspace, "datastores", store, "featuretypes.json")
	status, respBody, err := c.do(ctx, http.MethodGet, endpoint, "", nil)
	if err != nil {
		return false, err
	}
	if status != http.StatusOK {
		return false, c.statusError(status, respBody, "datastore", store)
	}

	names, err := listNames(respBody, "featureTypes", "featureType")
	if err != nil {
		return false, errors.ErrExternalService.Detail("datastore", store).Wrap(err)
	}
	return contains(names, name), nil
}

func (c *client) CreateFeatureType(ctx context.Context, workspace, store string, view domain.ViewDefinition) error {
	body, err := marshalXML(newFeatureType(store, view))
	if err != nil {
		return err
	}

	endpoint := c.url("workspaces", workspace, "datastores", store, "featuretypes") + "?configure=all"
	status, respBody, err := c.do(ctx, http.MethodPost, endpoint, "text/xml", body)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusCreated:
	case http.StatusConflict:
		return c.conflictError("view", view.Name)
	default:
		return c.statusError(status, respBody, "view", view.Name)
	}

	c.logger.Info("Created layer",
		zap.String("workspace", workspace),
		zap.String("layer", view.Name),
		zap.Bool("virtual", view.IsVirtual()))
	return nil
}

func (c *client) url(segments ...string) string {
	u := c.baseURL
	for _, s := range segments {
		u += "/" + url.PathEscape(s)
	}
	return u
}

func (c *client) do(ctx context.Context, method, endpoint, contentType string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("GeoServer request failed",
			zap.String("method", method),
			zap.String("url", endpoint),
			zap.Error(err))
		return 0, nil, errors.ErrExternalService.Detail("url", endpoint).Wrap(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, errors.ErrExternalService.Detail("url", endpoint).Wrap(err)
	}
	return resp.StatusCode, respBody, nil
}

func (c *client) statusError(status int, body []byte, kind, name string) error {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	c.logger.Error("GeoServer returned error",
		zap.String(kind, name),
		zap.Int("status_code", status),
		zap.String("body", string(body)))
	return errors.ErrExternalService.
		WithDetails(map[string]interface{}{kind: name, "status_code": status}).
		Wrap(fmt.Errorf("%s %q: geoserver status %d: %s", kind, name, status, body))
}

// conflictError reports a 409 on create. Callers treat it as the resource
// existing.
func (c *client) conflictError(kind, name string) error {
	c.logger.Info("GeoServer resource already exists", zap.String(kind, name))
	return errors.ErrResourceConflict.Detail(kind, name)
}

// listNames extracts names from a GeoServer listing such as
// {"dataStores":{"dataStore":[{"name":"a"}]}}. An empty listing is sent as
// {"dataStores":""}.
func listNames(body []byte, outer, inner string) ([]string, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, fmt.Errorf("decode %s listing: %w", outer, err)
	}
	node := bytes.TrimSpace(top[outer])
	if len(node) == 0 || node[0] != '{' {
		return nil, nil
	}

	var list map[string][]struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(node, &list); err != nil {
		return nil, fmt.Errorf("decode %s listing: %w", outer, err)
	}
	names := make([]string, 0, len(list[inner]))
	for _, item := range list[inner] {
		names = append(names, item.Name)
	}
	return names, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
