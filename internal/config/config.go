package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/urban-indicators/internal/domain"
	"github.com/urban-indicators/internal/pkg/errors"
	"github.com/urban-indicators/internal/pkg/validator"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Log       LogConfig
	StatsNZ   StatsNZConfig
	GeoServer GeoServerConfig
	Sheets    SheetsConfig
	Data      DataConfig
	Worker    WorkerConfig
	Areas     []domain.AreaOfInterest `validate:"min=1,dive"`
}

type ServerConfig struct {
	Host        string
	Port        int
	Env         string
	CORSOrigins string
}

type DatabaseConfig struct {
	Host            string `validate:"required"`
	Port            int    `validate:"required"`
	User            string `validate:"required"`
	Password        string
	DBName          string `validate:"required"`
	SSLMode         string
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// RedisConfig is optional; an empty host disables the vector cache.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CacheConfig struct {
	VectorCacheTTL time.Duration
}

type LogConfig struct {
	Level string
}

type StatsNZConfig struct {
	APIKey  string `validate:"required"`
	BaseURL string `validate:"required,url"`
	Timeout time.Duration
}

type GeoServerConfig struct {
	Host          string `validate:"required"`
	Port          int    `validate:"required"`
	AdminName     string `validate:"required"`
	AdminPassword string `validate:"required"`
	// DBHost and DBPort are how GeoServer reaches PostGIS, which may differ
	// from how this process does.
	DBHost  string
	DBPort  int
	Timeout time.Duration
}

type SheetsConfig struct {
	Enabled           bool
	CredentialsBase64 string `validate:"required_if=Enabled true"`
	AdminEmail        string `validate:"required_if=Enabled true"`
	Cooldown          time.Duration
	MaxRetries        int `validate:"gte=0"`
	RequestsPerMinute int
}

type DataConfig struct {
	EmissionsPath      string `validate:"required"`
	EmissionsSheet     int
	ModeSharePath      string `validate:"required"`
	ModeShare2023Path  string
	AreasFile          string
	ModeShareExclusion []string
	// ReferenceLayer picks the polygons areas of interest are matched against
	ReferenceLayer string `validate:"oneof=urban_rural functional_urban_area"`
}

// Reference returns the configured reference polygon layer.
func (d DataConfig) Reference() domain.ReferenceLayer {
	if d.ReferenceLayer == "functional_urban_area" {
		return domain.FunctionalUrbanArea2023
	}
	return domain.UrbanRural2023
}

// WorkerConfig drives cmd/worker. Stream triggers need Redis.
type WorkerConfig struct {
	Enabled           bool
	Schedule          string
	RunOnStart        bool
	ConsumerGroup     string
	StreamReadTimeout time.Duration
}

// Load reads .env.local and .env from the working directory, then the environment.
func Load() (*Config, error) {
	return LoadFrom(".env.local", ".env")
}

// LoadFrom layers the given dotenv files under the process environment.
// Missing files are skipped.
func LoadFrom(localEnvFile, envFile string) (*Config, error) {
	if localEnvFile != "" {
		_ = godotenv.Load(localEnvFile)
	}

	v := viper.New()
	v.AutomaticEnv()
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	setDefaults(v)

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("API_HOST"),
			Port: v.GetInt("API_PORT"),
			Env:  v.GetString("API_ENV"),

			CORSOrigins: v.GetString("API_CORS_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("POSTGRES_HOST"),
			Port:            v.GetInt("POSTGRES_PORT"),
			User:            v.GetString("POSTGRES_USER"),
			Password:        v.GetString("POSTGRES_PASSWORD"),
			DBName:          v.GetString("POSTGRES_DB"),
			SSLMode:         v.GetString("POSTGRES_SSLMODE"),
			MaxConns:        v.GetInt("DB_MAX_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME")) * time.Second,
			ConnMaxIdleTime: time.Duration(v.GetInt("DB_CONN_MAX_IDLE_TIME")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Cache: CacheConfig{
			VectorCacheTTL: time.Duration(v.GetInt("VECTOR_CACHE_TTL")) * time.Second,
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		StatsNZ: StatsNZConfig{
			APIKey:  v.GetString("STATS_API_KEY"),
			BaseURL: v.GetString("STATS_NZ_BASE_URL"),
			Timeout: time.Duration(v.GetInt("STATS_NZ_TIMEOUT")) * time.Second,
		},
		GeoServer: GeoServerConfig{
			Host:          v.GetString("GEOSERVER_HOST"),
			Port:          v.GetInt("GEOSERVER_PORT"),
			AdminName:     v.GetString("GEOSERVER_ADMIN_NAME"),
			AdminPassword: v.GetString("GEOSERVER_ADMIN_PASSWORD"),
			DBHost:        v.GetString("GEOSERVER_DB_HOST"),
			DBPort:        v.GetInt("GEOSERVER_DB_PORT"),
			Timeout:       time.Duration(v.GetInt("GEOSERVER_TIMEOUT")) * time.Second,
		},
		Sheets: SheetsConfig{
			Enabled:           v.GetBool("IS_FLOWMAP_ENABLED"),
			CredentialsBase64: v.GetString("GOOGLE_CREDENTIALS_BASE64"),
			AdminEmail:        v.GetString("ADMIN_EMAIL"),
			Cooldown:          time.Duration(v.GetInt("SHEETS_COOLDOWN")) * time.Second,
			MaxRetries:        v.GetInt("SHEETS_MAX_RETRIES"),
			RequestsPerMinute: v.GetInt("SHEETS_REQUESTS_PER_MINUTE"),
		},
		Data: DataConfig{
			EmissionsPath:      v.GetString("EMISSIONS_DATA"),
			EmissionsSheet:     v.GetInt("EMISSIONS_SHEET_INDEX"),
			ModeSharePath:      v.GetString("MEANS_OF_TRAVEL_DATA"),
			ModeShare2023Path:  v.GetString("MEANS_OF_TRAVEL_2023_DATA"),
			AreasFile:          v.GetString("AREAS_FILE"),
			ModeShareExclusion: parseList(v.GetString("MODE_SHARE_EXCLUSIONS")),
			ReferenceLayer:     v.GetString("AREA_REFERENCE_LAYER"),
		},
		Worker: WorkerConfig{
			Enabled:           v.GetBool("WORKER_ENABLED"),
			Schedule:          v.GetString("SCHEDULE_CRON"),
			RunOnStart:        v.GetBool("WORKER_RUN_ON_START"),
			ConsumerGroup:     v.GetString("WORKER_CONSUMER_GROUP"),
			StreamReadTimeout: time.Duration(v.GetInt("WORKER_STREAM_READ_TIMEOUT")) * time.Millisecond,
		},
	}

	if len(cfg.Data.ModeShareExclusion) == 0 {
		cfg.Data.ModeShareExclusion = append([]string(nil), domain.ModeShareExclusions...)
	}

	areas, err := loadAreas(cfg.Data.AreasFile)
	if err != nil {
		return nil, err
	}
	cfg.Areas = areas

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("API_HOST", "0.0.0.0")
	v.SetDefault("API_PORT", 8080)
	v.SetDefault("API_ENV", "production")
	v.SetDefault("POSTGRES_PORT", 5432)
	v.SetDefault("POSTGRES_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 3600)
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", 600)
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STATS_NZ_BASE_URL", "https://datafinder.stats.govt.nz")
	v.SetDefault("STATS_NZ_TIMEOUT", 300)
	v.SetDefault("GEOSERVER_DB_HOST", "postgis")
	v.SetDefault("GEOSERVER_DB_PORT", 5432)
	v.SetDefault("GEOSERVER_TIMEOUT", 30)
	v.SetDefault("IS_FLOWMAP_ENABLED", true)
	v.SetDefault("SHEETS_COOLDOWN", 60)
	v.SetDefault("SHEETS_MAX_RETRIES", 3)
	v.SetDefault("SHEETS_REQUESTS_PER_MINUTE", 60)
	v.SetDefault("EMISSIONS_SHEET_INDEX", 3)
	v.SetDefault("AREA_REFERENCE_LAYER", "urban_rural")
	v.SetDefault("SCHEDULE_CRON", "0 3 * * *")
	v.SetDefault("WORKER_ENABLED", true)
	v.SetDefault("WORKER_RUN_ON_START", true)
	v.SetDefault("WORKER_CONSUMER_GROUP", "materialize-workers")
	v.SetDefault("WORKER_STREAM_READ_TIMEOUT", 5000)
}

// Validate checks required settings before any I/O happens.
func (c *Config) Validate() error {
	if err := validator.Validate(c); err != nil {
		fields := validator.FailedFields(err)
		if fields == nil {
			return errors.ErrConfigurationMissing.Wrap(err)
		}
		return errors.ErrConfigurationMissing.Detail("fields", fields).
			Wrap(fmt.Errorf("invalid settings: %s", strings.Join(fields, ", ")))
	}
	if c.Sheets.Enabled {
		if _, err := c.GoogleCredentials(); err != nil {
			return errors.ErrConfigurationMissing.Detail("fields", []string{"Sheets.CredentialsBase64"}).Wrap(err)
		}
	}
	return nil
}

// GoogleCredentials decodes the base64 service-account JSON.
func (c *Config) GoogleCredentials() ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(c.Sheets.CredentialsBase64))
	if err != nil {
		return nil, fmt.Errorf("decode google credentials: %w", err)
	}
	return raw, nil
}

type areasFile struct {
	Areas []domain.AreaOfInterest `yaml:"areas"`
}

func loadAreas(path string) ([]domain.AreaOfInterest, error) {
	if path == "" {
		return domain.DefaultAreasOfInterest(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ErrConfigurationMissing.Detail("areas_file", path).Wrap(err)
	}
	var f areasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse areas file %s: %w", path, err)
	}
	return f.Areas, nil
}

func parseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// GetGeoServerURL is the REST root, e.g. http://localhost:8080/geoserver/rest.
func (c *Config) GetGeoServerURL() string {
	host := strings.TrimRight(c.GeoServer.Host, "/")
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	return fmt.Sprintf("%s:%d/geoserver/rest", host, c.GeoServer.Port)
}

// DataStoreName is the GeoServer datastore pointing at the pipeline database.
func (c *Config) DataStoreName() string {
	return c.Database.DBName + " PostGIS"
}
