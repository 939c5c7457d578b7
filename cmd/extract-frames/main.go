package main

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RustedBytes/extract-frames/internal/domain/entity"
	"github.com/RustedBytes/extract-frames/internal/domain/port"
	"github.com/RustedBytes/extract-frames/internal/infra/archive"
	"github.com/RustedBytes/extract-frames/internal/infra/config"
	"github.com/RustedBytes/extract-frames/internal/infra/ffmpeg"
	"github.com/RustedBytes/extract-frames/internal/infra/imagefile"
	"github.com/RustedBytes/extract-frames/internal/infra/metrics"
	miniostorage "github.com/RustedBytes/extract-frames/internal/infra/minio"
	"github.com/RustedBytes/extract-frames/internal/infra/rabbitmq"
	"github.com/RustedBytes/extract-frames/internal/infra/tracing"
	"github.com/RustedBytes/extract-frames/internal/usecase"
	"github.com/RustedBytes/extract-frames/pkg/logger"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// runFunc executes one run with the merged configuration.
type runFunc func(ctx context.Context, cfg *config.Config, strategy entity.Strategy) error

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	if err := newCommand(cfg, run).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "extract-frames:", err)
		os.Exit(1)
	}
}

func newCommand(cfg *config.Config, execute runFunc) *cli.Command {
	return &cli.Command{
		Name:    "extract-frames",
		Usage:   "Sample a sparse sequence of still frames from a video into PNG files",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Path to the video file",
				Value:   cfg.VideoFile,
			},
			&cli.BoolFlag{
				Name:  "use-seek",
				Usage: "Use the seek method for frame extraction (experimental, keyframe-bound)",
			},
			&cli.BoolFlag{
				Name:  "multicore",
				Usage: "Split the video into segments and sample them in parallel",
			},
			&cli.IntFlag{
				Name:  "frame-skip",
				Usage: "Keep every Nth decoded frame",
				Value: cfg.FrameSkip,
			},
			&cli.IntFlag{
				Name:  "segment-time",
				Usage: "Segment length in seconds for --multicore",
				Value: cfg.SegmentTime,
			},
			&cli.StringFlag{
				Name:  "frames-dir",
				Usage: "Directory receiving the PNG frames",
				Value: cfg.FramesDir,
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent segment samplers and frame writers (0 = number of CPUs)",
			},
			&cli.BoolFlag{
				Name:  "archive",
				Usage: "Zip the sampled frames and upload them when MinIO is configured",
				Value: cfg.ArchiveEnabled,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg.VideoFile = cmd.String("file")
			cfg.FrameSkip = int(cmd.Int("frame-skip"))
			cfg.SegmentTime = int(cmd.Int("segment-time"))
			cfg.FramesDir = cmd.String("frames-dir")
			cfg.ArchiveEnabled = cmd.Bool("archive")
			if cmd.IsSet("workers") {
				cfg.SegmentWorkers = int(cmd.Int("workers"))
				cfg.WriteWorkers = cfg.SegmentWorkers
			}
			if err := cfg.Validate(); err != nil {
				return cli.Exit(err.Error(), 2)
			}

			strategy := entity.StrategySequential
			switch {
			case cmd.Bool("multicore"):
				strategy = entity.StrategySegmented
			case cmd.Bool("use-seek"):
				strategy = entity.StrategySeek
			}
			return execute(ctx, cfg, strategy)
		},
	}
}

func run(ctx context.Context, cfg *config.Config, strategy entity.Strategy) error {
	log, err := logger.NewWithOptions(logger.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OTLPEndpoint != "" {
		tp, err := tracing.InitTracer(ctx, tracing.Config{
			Endpoint:       cfg.OTLPEndpoint,
			ServiceName:    cfg.TraceServiceName,
			ServiceVersion: version,
			SampleRatio:    cfg.TraceSampleRatio,
		})
		if err != nil {
			log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
		} else {
			defer tp.Shutdown(context.Background())
		}
	}

	if cfg.MetricsAddr != "" {
		srv, err := metrics.StartServer(ctx, cfg.MetricsAddr, log)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	var storage port.ArchiveStorage
	if cfg.ArchiveEnabled && cfg.MinIOEndpoint != "" {
		s, err := miniostorage.NewStorage(miniostorage.StorageConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			UseSSL:    cfg.MinIOUseSSL,
			Bucket:    cfg.MinIOBucket,
		})
		if err != nil {
			return err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return err
		}
		storage = s
	}

	var publisher port.SummaryPublisher
	if cfg.RabbitMQURL != "" {
		p, err := rabbitmq.NewSummaryPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			log.Warn("summary publishing disabled", zap.Error(err))
		} else {
			defer p.Close()
			publisher = p
		}
	}

	decoder := ffmpeg.NewDecoder(log)
	writer := imagefile.NewPNGWriter(png.CompressionLevel(cfg.PNGCompression))
	sequential := usecase.NewSequentialSampler(decoder, writer, log, usecase.SequentialSamplerConfig{
		FrameSkip: cfg.FrameSkip,
	})

	var onSegmentDone func(entity.SegmentResult)
	if strategy == entity.StrategySegmented && term.IsTerminal(int(os.Stderr.Fd())) {
		bar := progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("sampling segments"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Finish()
		onSegmentDone = func(entity.SegmentResult) { _ = bar.Add(1) }
	}

	controller := usecase.NewRunController(usecase.RunDeps{
		Sequential: sequential,
		Seek: usecase.NewSeekSampler(decoder, writer, log, usecase.SeekSamplerConfig{
			WriteWorkers: cfg.WriteWorkers,
		}),
		Segmenter: ffmpeg.NewSegmenter(cfg.SegmentTime, log),
		Orchestrator: usecase.NewSegmentOrchestrator(sequential, log, usecase.SegmentOrchestratorConfig{
			Workers:       cfg.SegmentWorkers,
			OnSegmentDone: onSegmentDone,
		}),
		Archiver:  archive.NewZipArchiver(),
		Storage:   storage,
		Publisher: publisher,
	}, log, usecase.RunConfig{
		FramesDir:            cfg.FramesDir,
		SegmentsDir:          cfg.SegmentsDir,
		SegmentOutputPattern: cfg.SegmentOutputPattern,
		SegmentGlob:          cfg.SegmentGlob,
		ArchiveEnabled:       cfg.ArchiveEnabled,
		ArchivePath:          cfg.ArchivePath,
	})

	log.Info("starting extract-frames",
		zap.String("file", cfg.VideoFile),
		zap.String("strategy", string(strategy)),
		zap.Int("frame_skip", cfg.FrameSkip),
	)

	_, runErr := controller.Run(ctx, cfg.VideoFile, strategy)

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Warn("failed to write metrics file", zap.String("path", cfg.MetricsFile), zap.Error(err))
		}
	}
	return runErr
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
