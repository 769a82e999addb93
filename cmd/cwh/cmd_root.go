package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/phpnexus/cwh"
	"github.com/phpnexus/cwh/internal/batch"
	"github.com/phpnexus/cwh/internal/config"
	"github.com/phpnexus/cwh/internal/metrics"
	"github.com/phpnexus/cwh/internal/shipper"
	"github.com/phpnexus/cwh/internal/sink"
	"github.com/phpnexus/cwh/internal/source"
	"github.com/phpnexus/cwh/internal/spool"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:     cwh.AppName,
	Short:   "Ship log lines to CloudWatch Logs in bounded batches",
	Long:    "Reads formatted log lines from stdin or a followed file, buffers them into size- and time-bounded batches, and ships them to a CloudWatch Logs stream, creating the destination group and stream on first use.",
	Version: cwh.Version(),
	Run:     handleRootCmd,
}

func handleRootCmd(cmd *cobra.Command, args []string) {
	// Initialize structured logging
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		fmt.Fprintf(os.Stderr, "invalid log level %q, using info\n", logLevel)
		level = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Convert all timestamps to UTC
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.TimeValue(t.UTC())
				}
			}
			return a
		},
	})
	slog.SetDefault(slog.New(handler))

	// Load configuration (config file is required)
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	applyFlagOverrides(cfg, cmd)

	// Initialize metrics
	metrics.Init(cwh.Version())
	if err := metrics.StartServer(cfg.MetricsAddr); err != nil {
		slog.Error("failed to start metrics server", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Build the CloudWatch Logs sink
	cw, err := newCloudWatchSink(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize AWS client", "error", err)
		os.Exit(1)
	}

	ship, err := newShipper(cw, cfg)
	if err != nil {
		slog.Error("invalid shipper configuration", "error", err)
		os.Exit(1)
	}
	slog.Info("initialized shipper",
		"group", cfg.LogGroup,
		"stream", cfg.LogStream,
		"batch_size", cfg.BatchSize,
		"protocol", cfg.Protocol,
		"rps_limit", cfg.RPSLimit)

	// Initialize the spool mirror if configured
	var spoolWriter *spool.Writer
	if cfg.Spool != nil && cfg.Spool.Enabled {
		prefix := cfg.Spool.FilePrefix
		if prefix == "" {
			prefix = cwh.AppName
		}
		spoolWriter, err = spool.New(cfg.Spool.Dir, prefix)
		if err != nil {
			slog.Error("failed to initialize spool", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := spoolWriter.Close(); err != nil {
				slog.Warn("failed to close spool", "error", err)
			}
		}()
		slog.Info("initialized spool", "dir", cfg.Spool.Dir)
	}

	submit := func(line []byte) error {
		if spoolWriter != nil {
			// The spool is best-effort; never block shipping on it.
			if err := spoolWriter.Write(line); err != nil {
				slog.Warn("spool write failed", "error", err)
			}
		}
		return ship.Submit(ctx, line, time.Now())
	}

	// Read lines until the source drains or a signal arrives
	readCtx, cancelRead := context.WithCancel(ctx)
	defer cancelRead()

	errCh := make(chan error, 1)
	go func() {
		if followPath != "" {
			slog.Info("following file", "path", followPath)
			errCh <- source.Follow(readCtx, followPath, submit)
		} else {
			errCh <- source.Lines(os.Stdin, cfg.MaxLineBytes, submit)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	exitCode := 0
	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("input source failed", "error", err)
			exitCode = 1
		}
	case sig := <-sigCh:
		slog.Info("received signal, flushing pending batch", "signal", sig.String())
		cancelRead()
	}

	// Final flush: nothing buffered may be dropped
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := ship.Shutdown(shutdownCtx); err != nil {
		slog.Error("final flush failed", "error", err)
		exitCode = 1
	}

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

// applyFlagOverrides layers explicitly set CLI flags over the file
// configuration.
func applyFlagOverrides(cfg *config.Config, cmd *cobra.Command) {
	if groupName != "" {
		cfg.LogGroup = groupName
	}
	if streamName != "" {
		cfg.LogStream = streamName
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.MetricsAddr = metricsAddr
	}
	if awsRegion != "" || awsProfile != "" || awsEndpoint != "" {
		if cfg.AWS == nil {
			cfg.AWS = &config.AWSConfig{}
		}
		if awsRegion != "" {
			cfg.AWS.Region = awsRegion
		}
		if awsProfile != "" {
			cfg.AWS.Profile = awsProfile
		}
		if awsEndpoint != "" {
			cfg.AWS.Endpoint = awsEndpoint
		}
	}
}

// newCloudWatchSink builds the AWS client from the configured region,
// profile and endpoint, falling back to the SDK's default resolution.
func newCloudWatchSink(ctx context.Context, cfg *config.Config) (*sink.CloudWatch, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.AWS != nil {
		if cfg.AWS.Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.AWS.Region))
		}
		if cfg.AWS.Profile != "" {
			opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.AWS.Profile))
		}
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := cloudwatchlogs.NewFromConfig(awsCfg, func(o *cloudwatchlogs.Options) {
		if cfg.AWS != nil && cfg.AWS.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.Endpoint)
		}
	})
	return sink.NewCloudWatch(client), nil
}

// newShipper maps the file configuration onto the shipper's own config.
func newShipper(s sink.Sink, cfg *config.Config) (*shipper.Shipper, error) {
	limits := batch.ModernLimits
	if cfg.Protocol == config.ProtocolLegacy {
		limits = batch.LegacyLimits
	}

	return shipper.New(s, shipper.Config{
		Group:            cfg.LogGroup,
		Stream:           cfg.LogStream,
		BatchSize:        cfg.BatchSize,
		RateLimit:        cfg.RPSLimit,
		Limits:           limits,
		UseSequenceToken: cfg.Protocol == config.ProtocolLegacy,
		RetentionDays:    cfg.RetentionDays,
		Tags:             cfg.Tags,
		CreateGroup:      cfg.ShouldCreateGroup(),
		CreateStream:     cfg.ShouldCreateStream(),
	})
}
