package main

import "github.com/urfave/cli/v3"

var (
	baseDir    string
	modelName  string
	tag        string
	outputDir  string
	nodeMemory string
	workers    int64
	planFormat string
	logLevel   string
	logFormat  string
	debug      bool
)

func commonProfileFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "base-dir",
			Aliases:     []string{"base", "b"},
			Usage:       "directory containing profiles/ (default $" + envBaseDir + " or .)",
			Destination: &baseDir,
		},
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "model identifier; profiles/<model>/<tag> is tried before profiles/<tag>",
			Destination: &modelName,
		},
		&cli.StringFlag{
			Name:        "tag",
			Aliases:     []string{"t"},
			Usage:       "profiling configuration tag",
			Destination: &tag,
		},
	}
}

func plannerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "node-memory",
			Aliases:     []string{"mem"},
			Usage:       "per-node memory ceiling (bytes, 16GiB, 40G, auto; 0 = unlimited)",
			Value:       "0",
			Destination: &nodeMemory,
		},
		&cli.Int64Flag{
			Name:        "workers",
			Aliases:     []string{"j"},
			Usage:       "parallel search workers (0 = GOMAXPROCS)",
			Destination: &workers,
		},
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "out",
			Aliases:     []string{"o"},
			Usage:       "directory for plan artifacts (default $" + envOutputDir + ")",
			Destination: &outputDir,
		},
		&cli.StringFlag{
			Name:        "format",
			Usage:       "plan artifact format (json, yaml)",
			Value:       "json",
			Destination: &planFormat,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

var (
	traceExporter string
	traceEndpoint string
	traceInsecure bool
	traceRatio    float64
)

func tracingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "trace",
			Usage:       "trace exporter (none, stdout, otlp, otlphttp)",
			Value:       "none",
			Sources:     cli.EnvVars("PIPEPLAN_TRACE_EXPORTER"),
			Destination: &traceExporter,
		},
		&cli.StringFlag{
			Name:        "trace-endpoint",
			Usage:       "collector endpoint for otlp exporters",
			Sources:     cli.EnvVars("PIPEPLAN_TRACE_ENDPOINT"),
			Destination: &traceEndpoint,
		},
		&cli.BoolFlag{
			Name:        "trace-insecure",
			Usage:       "disable TLS to the trace collector",
			Destination: &traceInsecure,
		},
		&cli.FloatFlag{
			Name:        "trace-ratio",
			Usage:       "fraction of traces to sample (1 samples all)",
			Value:       1,
			Destination: &traceRatio,
		},
	}
}

var (
	s3Endpoint  string
	s3Bucket    string
	s3Prefix    string
	s3Region    string
	s3AccessKey string
	s3SecretKey string
	s3UseSSL    bool
)

func objectStoreFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "s3-endpoint",
			Usage:       "S3-compatible endpoint (host:port) for plan uploads",
			Sources:     cli.EnvVars("PIPEPLAN_S3_ENDPOINT"),
			Destination: &s3Endpoint,
		},
		&cli.StringFlag{
			Name:        "s3-bucket",
			Usage:       "bucket for plan uploads",
			Value:       "pipeplan-plans",
			Sources:     cli.EnvVars("PIPEPLAN_S3_BUCKET"),
			Destination: &s3Bucket,
		},
		&cli.StringFlag{
			Name:        "s3-prefix",
			Usage:       "object key prefix for plan uploads",
			Destination: &s3Prefix,
		},
		&cli.StringFlag{
			Name:        "s3-region",
			Usage:       "bucket region",
			Sources:     cli.EnvVars("PIPEPLAN_S3_REGION"),
			Destination: &s3Region,
		},
		&cli.StringFlag{
			Name:        "s3-access-key",
			Usage:       "access key for plan uploads",
			Sources:     cli.EnvVars("PIPEPLAN_S3_ACCESS_KEY"),
			Destination: &s3AccessKey,
		},
		&cli.StringFlag{
			Name:        "s3-secret-key",
			Usage:       "secret key for plan uploads",
			Sources:     cli.EnvVars("PIPEPLAN_S3_SECRET_KEY"),
			Destination: &s3SecretKey,
		},
		&cli.BoolFlag{
			Name:        "s3-ssl",
			Usage:       "use TLS to the object store",
			Destination: &s3UseSSL,
		},
	}
}
