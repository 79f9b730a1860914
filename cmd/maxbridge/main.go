// maxbridge drives a Max messenger session from the command line. Each
// positional argument names one host operation; operations run in order on
// the same host and each prints its result envelope as one JSON line.
//
//	maxbridge --phone +79001234567 create_wrapper request_code
//	maxbridge --phone +79001234567 --temp-token T --code 1234 create_wrapper login_with_code
//	maxbridge --phone +79001234567 create_wrapper start_client get_chats
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	maxbridge "github.com/goliatone/go-maxbridge"
	promadapter "github.com/goliatone/go-maxbridge/adapters/prometheus"
	"github.com/goliatone/go-maxbridge/core"
)

type options struct {
	configPath string
	phone      string
	workDir    string
	tempToken  string
	code       string
	chatID     int64
	limit      int
	language   string
	logLevel   string
	metrics    bool
	trace      bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer, stderr io.Writer) error {
	var opts options
	flagSet := pflag.NewFlagSet("maxbridge", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	flagSet.StringVar(&opts.phone, "phone", "", "account phone number")
	flagSet.StringVar(&opts.workDir, "workdir", "", "session directory (default: config work_dir or ~/Documents/max_cache)")
	flagSet.StringVar(&opts.tempToken, "temp-token", "", "temporary token returned by request_code")
	flagSet.StringVar(&opts.code, "code", "", "login code received by SMS")
	flagSet.Int64Var(&opts.chatID, "chat-id", 0, "chat id for get_messages")
	flagSet.IntVar(&opts.limit, "limit", 0, "message limit for get_messages (default: history_limit)")
	flagSet.StringVar(&opts.language, "language", "", "language for request_code")
	flagSet.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	flagSet.BoolVar(&opts.trace, "trace", false, "log every bridged operation as a job event")
	flagSet.BoolVar(&opts.metrics, "metrics", false, "write collected metrics to stderr in Prometheus text format")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	operations := flagSet.Args()
	if len(operations) == 0 {
		flagSet.Usage()
		return fmt.Errorf("at least one operation is required")
	}
	for _, op := range operations {
		if _, ok := operationTable[op]; !ok {
			return fmt.Errorf("unknown operation %q", op)
		}
	}

	logger := newSlogLogger(stderr, opts.logLevel)
	hostOpts := []maxbridge.Option{maxbridge.WithLogger(logger)}
	if opts.trace {
		hostOpts = append(hostOpts, maxbridge.WithBridgeHook(newTraceHook(newSlogLogger(stderr, "info"))))
	}
	var registry *prometheus.Registry
	if opts.metrics {
		registry = prometheus.NewRegistry()
		hostOpts = append(hostOpts, maxbridge.WithMetricsRecorder(promadapter.New(registry, promadapter.WithLogger(logger))))
	}
	if opts.configPath != "" {
		values, err := loadConfigFile(opts.configPath)
		if err != nil {
			return err
		}
		hostOpts = append(hostOpts, maxbridge.WithConfigProvider(core.NewCfgxConfigProvider(core.NewStaticConfigLoader(values))))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	host, err := maxbridge.Setup(maxbridge.Config{}, hostOpts...)
	if err != nil {
		return err
	}
	defer host.Close(context.Background())
	if opts.phone == "" {
		opts.phone = host.Config().Phone
	}

	for _, op := range operations {
		env := operationTable[op](ctx, host, opts)
		fmt.Fprintln(stdout, env.JSON())
	}
	if registry != nil {
		return writeMetrics(stderr, registry)
	}
	return nil
}

func writeMetrics(w io.Writer, gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(w, family); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

type operation func(ctx context.Context, host *maxbridge.Host, opts options) maxbridge.Envelope

var operationTable = map[string]operation{
	"create_wrapper": func(ctx context.Context, host *maxbridge.Host, opts options) maxbridge.Envelope {
		return host.CreateWrapper(ctx, opts.phone, opts.workDir)
	},
	"request_code": func(ctx context.Context, host *maxbridge.Host, opts options) maxbridge.Envelope {
		return host.RequestCode(ctx, opts.phone, opts.language)
	},
	"login_with_code": func(ctx context.Context, host *maxbridge.Host, opts options) maxbridge.Envelope {
		return host.LoginWithCode(ctx, opts.tempToken, opts.code)
	},
	"start_client": func(ctx context.Context, host *maxbridge.Host, _ options) maxbridge.Envelope {
		return host.StartClient(ctx)
	},
	"get_chats": func(ctx context.Context, host *maxbridge.Host, _ options) maxbridge.Envelope {
		return host.GetChats(ctx)
	},
	"get_messages": func(ctx context.Context, host *maxbridge.Host, opts options) maxbridge.Envelope {
		return host.GetMessages(ctx, opts.chatID, opts.limit)
	},
	"stop_client": func(ctx context.Context, host *maxbridge.Host, _ options) maxbridge.Envelope {
		return host.StopClient(ctx)
	},
}

// loadConfigFile reads YAML into the raw map consumed by the cfgx provider.
func loadConfigFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	values := map[string]any{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return values, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
