package geoserver

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/urban-indicators/internal/config"
	"github.com/urban-indicators/internal/domain"
	"github.com/urban-indicators/internal/pkg/errors"
)

type recordedRequest struct {
	Method      string
	Path        string
	Query       string
	ContentType string
	Body        string
	User        string
}

// fakeServer answers GeoServer REST calls from canned responses keyed by
// "METHOD path" and records every request.
type fakeServer struct {
	mu        sync.Mutex
	requests  []recordedRequest
	responses map[string]func(w http.ResponseWriter)
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	user, _, _ := r.BasicAuth()

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Method:      r.Method,
		Path:        r.URL.Path,
		Query:       r.URL.RawQuery,
		ContentType: r.Header.Get("Content-Type"),
		Body:        string(body),
		User:        user,
	})
	respond, ok := f.responses[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	respond(w)
}

func (f *fakeServer) posts() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedRequest
	for _, r := range f.requests {
		if r.Method == http.MethodPost {
			out = append(out, r)
		}
	}
	return out
}

func status(code int, body string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.WriteHeader(code)
		_, _ = w.Write([]byte(body))
	}
}

func newTestClient(t *testing.T, fake *fakeServer) *client {
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		GeoServer: config.GeoServerConfig{
			Host:          "localhost",
			Port:          8080,
			AdminName:     "admin",
			AdminPassword: "geoserver",
			DBHost:        "postgis",
			DBPort:        5432,
		},
		Database: config.DatabaseConfig{DBName: "urban", User: "gis", Password: "secret"},
	}
	c := NewGeoServerClient(cfg, zap.NewNop()).(*client)
	assert.Equal(t, "http://localhost:8080/geoserver/rest", c.baseURL)
	c.baseURL = server.URL + "/geoserver/rest"
	return c
}

func TestClient_EnsureWorkspace(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		fake := &fakeServer{responses: map[string]func(http.ResponseWriter){
			"POST /geoserver/rest/workspaces": status(http.StatusCreated, ""),
		}}
		c := newTestClient(t, fake)

		require.NoError(t, c.EnsureWorkspace(context.Background(), "sa1_emissions"))

		posts := fake.posts()
		require.Len(t, posts, 1)
		assert.JSONEq(t, `{"workspace":{"name":"sa1_emissions"}}`, posts[0].Body)
		assert.Equal(t, "admin", posts[0].User)
	})

	t.Run("conflict is success", func(t *testing.T) {
		fake := &fakeServer{responses: map[string]func(http.ResponseWriter){
			"POST /geoserver/rest/workspaces": status(http.StatusConflict, "Workspace 'sa1_emissions' already exists"),
		}}
		c := newTestClient(t, fake)

		assert.NoError(t, c.EnsureWorkspace(context.Background(), "sa1_emissions"))
	})

	t.Run("server error", func(t *testing.T) {
		fake := &fakeServer{responses: map[string]func(http.ResponseWriter){
			"POST /geoserver/rest/workspaces": status(http.StatusInternalServerError, "boom"),
		}}
		c := newTestClient(t, fake)

		err := c.EnsureWorkspace(context.Background(), "sa1_emissions")
		require.Error(t, err)
		assert.True(t, stderrors.Is(err, errors.ErrExternalService))
		assert.Contains(t, err.Error(), "boom")
	})
}

func TestClient_EnsureDataStore(t *testing.T) {
	t.Run("creates when listing is empty", func(t *testing.T) {
		fake := &fakeServer{responses: map[string]func(http.ResponseWriter){
			"GET /geoserver/rest/workspaces/ws/datastores.json": status(http.StatusOK, `{"dataStores":""}`),
			"POST /geoserver/rest/workspaces/ws/datastores":     status(http.StatusCreated, ""),
		}}
		c := newTestClient(t, fake)

		require.NoError(t, c.EnsureDataStore(context.Background(), "ws", "urban PostGIS"))

		posts := fake.posts()
		require.Len(t, posts, 1)
		assert.Equal(t, "configure=all", posts[0].Query)
		assert.Equal(t, "text/xml", posts[0].ContentType)
		assert.Contains(t, posts[0].Body, "<name>urban PostGIS</name>")
		assert.Contains(t, posts[0].Body, "<host>postgis</host>")
		assert.Contains(t, posts[0].Body, "<database>urban</database>")
		assert.Contains(t, posts[0].Body, "<passwd>secret</passwd>")
		assert.Contains(t, posts[0].Body, "<dbtype>postgis</dbtype>")
	})

	t.Run("existing store is left alone", func(t *testing.T) {
		fake := &fakeServer{responses: map[string]func(http.ResponseWriter){
			"GET /geoserver/rest/workspaces/ws/datastores.json": status(http.StatusOK,
				`{"dataStores":{"dataStore":[{"name":"other"},{"name":"urban PostGIS"}]}}`),
		}}
		c := newTestClient(t, fake)

		require.NoError(t, c.EnsureDataStore(context.Background(), "ws", "urban PostGIS"))
		assert.Empty(t, fake.posts())
	})

	t.Run("conflict on create is a resource conflict", func(t *testing.T) {
		fake := &fakeServer{responses: map[string]func(http.ResponseWriter){
			"GET /geoserver/rest/workspaces/ws/datastores.json": status(http.StatusOK, `{"dataStores":""}`),
			"POST /geoserver/rest/workspaces/ws/datastores":     status(http.StatusConflict, "Store 'urban PostGIS' already exists"),
		}}
		c := newTestClient(t, fake)

		err := c.EnsureDataStore(context.Background(), "ws", "urban PostGIS")
		require.Error(t, err)
		assert.True(t, stderrors.Is(err, errors.ErrResourceConflict))
		assert.False(t, stderrors.Is(err, errors.ErrExternalService))
	})
}

func TestClient_FeatureTypes(t *testing.T) {
	listing := "GET /geoserver/rest/workspaces/ws/datastores/urban PostGIS/featuretypes.json"
	create := "POST /geoserver/rest/workspaces/ws/datastores/urban PostGIS/featuretypes"

	t.Run("exists", func(t *testing.T) {
		fake := &fakeServer{responses: map[string]func(http.ResponseWriter){
			listing: status(http.StatusOK, `{"featureTypes":{"featureType":[{"name":"sa1s","href":"x"}]}}`),
		}}
		c := newTestClient(t, fake)

		ok, err := c.FeatureTypeExists(context.Background(), "ws", "urban PostGIS", "sa1s")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = c.FeatureTypeExists(context.Background(), "ws", "urban PostGIS", "vkt_sum")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("empty listing", func(t *testing.T) {
		fake := &fakeServer{responses: map[string]func(http.ResponseWriter){
			listing: status(http.StatusOK, `{"featureTypes":""}`),
		}}
		c := newTestClient(t, fake)

		ok, err := c.FeatureTypeExists(context.Background(), "ws", "urban PostGIS", "sa1s")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("create virtual view", func(t *testing.T) {
		fake := &fakeServer{responses: map[string]func(http.ResponseWriter){
			create: status(http.StatusCreated, ""),
		}}
		c := newTestClient(t, fake)

		view := domain.ViewDefinition{
			Name:     "sa1_emissions_fuel_type",
			SQL:      `SELECT * FROM vehicle_stats WHERE fuel_type ILIKE '%FUEL_TYPE%%'`,
			Geometry: &domain.GeometryDescriptor{Name: "geometry", Type: "Geometry", SRID: -1},
			Parameters: []domain.ViewParameter{
				{Name: "FUEL_TYPE", Validator: `^[\w\s]+$`},
			},
		}
		require.NoError(t, c.CreateFeatureType(context.Background(), "ws", "urban PostGIS", view))

		posts := fake.posts()
		require.Len(t, posts, 1)
		body := posts[0].Body
		assert.Equal(t, "configure=all", posts[0].Query)
		assert.True(t, strings.HasPrefix(body, "<featureType>"))
		assert.Contains(t, body, `<entry key="JDBC_VIRTUAL_TABLE">`)
		assert.Contains(t, body, "<escapeSql>false</escapeSql>")
		assert.Contains(t, body, "<srid>-1</srid>")
		assert.Contains(t, body, `<regexpValidator>^[\w\s]+$</regexpValidator>`)
		assert.Contains(t, body, "ILIKE &#39;%FUEL_TYPE%%&#39;")
		assert.Contains(t, body, "<numDecimals>8</numDecimals>")
		assert.Contains(t, body, "<store><class>dataStore</class><name>urban PostGIS</name></store>")
	})

	t.Run("create table layer has no metadata", func(t *testing.T) {
		fake := &fakeServer{responses: map[string]func(http.ResponseWriter){
			create: status(http.StatusCreated, ""),
		}}
		c := newTestClient(t, fake)

		require.NoError(t, c.CreateFeatureType(context.Background(), "ws", "urban PostGIS", domain.ViewDefinition{Name: "sa1s"}))

		posts := fake.posts()
		require.Len(t, posts, 1)
		assert.Contains(t, posts[0].Body, "<name>sa1s</name>")
		assert.NotContains(t, posts[0].Body, "metadata")
	})

	t.Run("create conflict is a resource conflict", func(t *testing.T) {
		fake := &fakeServer{responses: map[string]func(http.ResponseWriter){
			create: status(http.StatusConflict, "Resource named 'sa1s' already exists"),
		}}
		c := newTestClient(t, fake)

		err := c.CreateFeatureType(context.Background(), "ws", "urban PostGIS", domain.ViewDefinition{Name: "sa1s"})
		require.Error(t, err)
		assert.True(t, stderrors.Is(err, errors.ErrResourceConflict))
	})

	t.Run("create failure", func(t *testing.T) {
		fake := &fakeServer{responses: map[string]func(http.ResponseWriter){
			create: status(http.StatusBadRequest, "bad sql"),
		}}
		c := newTestClient(t, fake)

		err := c.CreateFeatureType(context.Background(), "ws", "urban PostGIS", domain.ViewDefinition{Name: "vkt_sum", SQL: "SELECT"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "vkt_sum")
	})
}

func TestListNames(t *testing.T) {
	names, err := listNames([]byte(`{"dataStores":{"dataStore":[{"name":"a"},{"name":"b"}]}}`), "dataStores", "dataStore")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	names, err = listNames([]byte(`{"dataStores":""}`), "dataStores", "dataStore")
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = listNames([]byte(`not json`), "dataStores", "dataStore")
	assert.Error(t, err)
}
