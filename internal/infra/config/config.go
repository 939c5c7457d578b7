package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	VideoFile string `env:"VIDEO_FILE" envDefault:"video.mp4"`

	FrameSkip            int    `env:"FRAME_SKIP"             envDefault:"30"`
	SegmentTime          int    `env:"SEGMENT_TIME"           envDefault:"5"`
	FramesDir            string `env:"FRAMES_DIR"             envDefault:"frames"`
	SegmentsDir          string `env:"SEGMENTS_DIR"           envDefault:"segments"`
	SegmentOutputPattern string `env:"SEGMENT_OUTPUT_PATTERN" envDefault:"output_%09d.mp4"`
	SegmentGlob          string `env:"SEGMENT_GLOB"           envDefault:"*.mp4"`
	SegmentWorkers       int    `env:"SEGMENT_WORKERS"        envDefault:"0"`
	WriteWorkers         int    `env:"WRITE_WORKERS"          envDefault:"0"`
	PNGCompression       int    `env:"PNG_COMPRESSION"        envDefault:"0"`

	ArchiveEnabled bool   `env:"ARCHIVE_ENABLED" envDefault:"false"`
	ArchivePath    string `env:"ARCHIVE_PATH"    envDefault:"frames.zip"`

	MinIOEndpoint  string `env:"MINIO_ENDPOINT"`
	MinIOAccessKey string `env:"MINIO_ACCESS_KEY" envDefault:"minioadmin"`
	MinIOSecretKey string `env:"MINIO_SECRET_KEY" envDefault:"minioadmin"`
	MinIOUseSSL    bool   `env:"MINIO_USE_SSL"    envDefault:"false"`
	MinIOBucket    string `env:"MINIO_BUCKET"     envDefault:"frames"`

	RabbitMQURL      string `env:"RABBITMQ_URL"`
	RabbitMQExchange string `env:"RABBITMQ_EXCHANGE" envDefault:"extract.frames"`

	MetricsAddr string `env:"METRICS_ADDR"`
	MetricsFile string `env:"METRICS_FILE"`

	OTLPEndpoint     string  `env:"OTLP_ENDPOINT"`
	TraceServiceName string  `env:"OTEL_SERVICE_NAME"  envDefault:"extract-frames"`
	TraceSampleRatio float64 `env:"TRACE_SAMPLE_RATIO" envDefault:"1"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
	LogFile   string `env:"LOG_FILE"`
}

// Load reads an optional .env file from the working directory, then the
// process environment. The result is not validated: command-line overrides
// are applied on top first, then Validate is called on the merged value.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.FrameSkip < 1 {
		return fmt.Errorf("FRAME_SKIP must be at least 1, got %d", c.FrameSkip)
	}
	if c.SegmentTime < 1 {
		return fmt.Errorf("SEGMENT_TIME must be at least 1, got %d", c.SegmentTime)
	}
	if c.PNGCompression < -3 || c.PNGCompression > 0 {
		return fmt.Errorf("PNG_COMPRESSION must be between -3 and 0, got %d", c.PNGCompression)
	}
	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		return fmt.Errorf("TRACE_SAMPLE_RATIO must be between 0 and 1, got %g", c.TraceSampleRatio)
	}
	return nil
}
