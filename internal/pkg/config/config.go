package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/samirrijal/cumulus/internal/core/domain"
	"github.com/samirrijal/cumulus/internal/pkg/classify"
	"github.com/samirrijal/cumulus/internal/pkg/render"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Valkey     ValkeyConfig     `mapstructure:"valkey"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Temporal   TemporalConfig   `mapstructure:"temporal"`
	Imagery    ImageryConfig    `mapstructure:"imagery"`
	Projection ProjectionConfig `mapstructure:"projection"`
	Detection  DetectionConfig  `mapstructure:"detection"`
	Selection  SelectionConfig  `mapstructure:"selection"`
	Render     render.Style     `mapstructure:"render"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Monitor    MonitorConfig    `mapstructure:"monitor"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
	// Seconds a latest snapshot is served from memory before re-reading.
	LatestTTL int `mapstructure:"latest_ttl"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string        `mapstructure:"addr"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
	// Cron schedule for the detection cycle workflow.
	Schedule string `mapstructure:"schedule"`
}

// ImageryConfig points at the ArcGIS exportImage endpoint.
type ImageryConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// SourceURL overrides the base image URL built from the projection.
	SourceURL string        `mapstructure:"source_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type ProjectionConfig struct {
	BBox   domain.BoundingBox `mapstructure:"bbox"`
	Width  int                `mapstructure:"width"`
	Height int                `mapstructure:"height"`
}

func (p ProjectionConfig) ImageSize() domain.ImageSize {
	return domain.ImageSize{Width: p.Width, Height: p.Height}
}

type DetectionConfig struct {
	SampleRadius int                      `mapstructure:"sample_radius"`
	Workers      int                      `mapstructure:"workers"`
	Thresholds   classify.ThresholdParams `mapstructure:"thresholds"`
}

type SelectionConfig struct {
	Top         int           `mapstructure:"top"`
	Random      int           `mapstructure:"random"`
	Delay       time.Duration `mapstructure:"delay"`
	Concurrency int           `mapstructure:"concurrency"`
	// Seed makes random picks reproducible; zero means unseeded.
	Seed          uint64 `mapstructure:"seed"`
	HighResWidth  int    `mapstructure:"highres_width"`
	HighResHeight int    `mapstructure:"highres_height"`
}

type StorageConfig struct {
	CrossingsFile string `mapstructure:"crossings_file"`
	OutputDir     string `mapstructure:"output_dir"`
}

// HighResDir is where follow-up images are kept.
func (s StorageConfig) HighResDir() string {
	return strings.TrimRight(s.OutputDir, "/") + "/clouds_over_borders"
}

type MonitorConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: CUMULUS_DETECTION_SAMPLE_RADIUS → detection.sample_radius
	v.SetEnvPrefix("CUMULUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.latest_ttl", 15)
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "cumulus")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "cumulus")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.ttl", 24*time.Hour)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "detection-cycle-queue")
	v.SetDefault("temporal.schedule", "*/30 * * * *")

	v.SetDefault("imagery.base_url", "https://satellitemaps.nesdis.noaa.gov/arcgis/rest/services/Most_Recent_MERGEDGC/ImageServer/exportImage")
	v.SetDefault("imagery.source_url", "")
	v.SetDefault("imagery.timeout", 30*time.Second)

	v.SetDefault("projection.bbox.minx", -13129234.0)
	v.SetDefault("projection.bbox.maxy", 3958039.0)
	v.SetDefault("projection.bbox.maxx", -10750644.0)
	v.SetDefault("projection.bbox.miny", 2884188.0)
	v.SetDefault("projection.width", 1000)
	v.SetDefault("projection.height", 500)

	th := classify.DefaultParams()
	v.SetDefault("detection.sample_radius", 10)
	v.SetDefault("detection.workers", 8)
	v.SetDefault("detection.thresholds.limit", th.Limit)
	v.SetDefault("detection.thresholds.city_light_min_brightness", th.CityLightMinBrightness)
	v.SetDefault("detection.thresholds.red_dominance_threshold", th.RedDominanceThreshold)
	v.SetDefault("detection.thresholds.yellow_orange_boost", th.YellowOrangeBoost)
	v.SetDefault("detection.thresholds.confidence_high", th.ConfidenceHigh)
	v.SetDefault("detection.thresholds.confidence_medium", th.ConfidenceMedium)
	v.SetDefault("detection.thresholds.confidence_low", th.ConfidenceLow)

	v.SetDefault("selection.top", 2)
	v.SetDefault("selection.random", 3)
	v.SetDefault("selection.delay", 2*time.Second)
	v.SetDefault("selection.concurrency", 1)
	v.SetDefault("selection.seed", 0)
	v.SetDefault("selection.highres_width", 240)
	v.SetDefault("selection.highres_height", 400)

	st := render.DefaultStyle()
	v.SetDefault("render.marker_size", st.MarkerSize)
	v.SetDefault("render.cloudy.fill", st.Cloudy.Fill)
	v.SetDefault("render.cloudy.stroke", st.Cloudy.Stroke)
	v.SetDefault("render.clear.fill", st.Clear.Fill)
	v.SetDefault("render.clear.stroke", st.Clear.Stroke)
	v.SetDefault("render.city_light.fill", st.CityLight.Fill)
	v.SetDefault("render.city_light.stroke", st.CityLight.Stroke)

	v.SetDefault("storage.crossings_file", "./data/crossings.json")
	v.SetDefault("storage.output_dir", "./border_images")

	v.SetDefault("monitor.interval", 30*time.Minute)
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Server.LatestTTL < 0 {
		errs = append(errs, "server.latest_ttl must not be negative")
	}
	if c.Database.Enabled {
		if c.Database.Host == "" {
			errs = append(errs, "database.host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.User == "" {
			errs = append(errs, "database.user is required")
		}
		if c.Database.DBName == "" {
			errs = append(errs, "database.dbname is required")
		}
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}

	if c.Imagery.BaseURL == "" && c.Imagery.SourceURL == "" {
		errs = append(errs, "imagery.base_url is required")
	}
	if c.Imagery.Timeout <= 0 {
		errs = append(errs, "imagery.timeout must be positive")
	}

	if err := c.Projection.BBox.Validate(); err != nil {
		errs = append(errs, "projection.bbox: "+err.Error())
	}
	if c.Projection.Width <= 0 || c.Projection.Height <= 0 {
		errs = append(errs, fmt.Sprintf("projection size must be positive, got %dx%d", c.Projection.Width, c.Projection.Height))
	}

	if c.Detection.SampleRadius <= 0 {
		errs = append(errs, fmt.Sprintf("detection.sample_radius must be positive, got %d", c.Detection.SampleRadius))
	}
	if c.Detection.Workers <= 0 {
		errs = append(errs, "detection.workers must be positive")
	}
	if err := c.Detection.Thresholds.Validate(); err != nil {
		errs = append(errs, "detection.thresholds: "+err.Error())
	}

	if c.Selection.Top < 0 || c.Selection.Random < 0 {
		errs = append(errs, "selection.top and selection.random must not be negative")
	}
	if c.Selection.Delay < 0 {
		errs = append(errs, "selection.delay must not be negative")
	}
	if c.Selection.Concurrency <= 0 {
		errs = append(errs, "selection.concurrency must be positive")
	}
	if c.Selection.HighResWidth <= 0 || c.Selection.HighResHeight <= 0 {
		errs = append(errs, "selection high-res size must be positive")
	}

	if c.Render.MarkerSize <= 0 {
		errs = append(errs, "render.marker_size must be positive")
	}
	if c.Storage.CrossingsFile == "" {
		errs = append(errs, "storage.crossings_file is required")
	}
	if c.Storage.OutputDir == "" {
		errs = append(errs, "storage.output_dir is required")
	}
	if c.Monitor.Interval <= 0 {
		errs = append(errs, "monitor.interval must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
