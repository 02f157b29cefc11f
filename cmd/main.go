package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"reflect"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/events"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/aukilabs/yggdrasil/cache"
	"github.com/aukilabs/yggdrasil/featureflag"
	"github.com/aukilabs/yggdrasil/generator"
	ygghttp "github.com/aukilabs/yggdrasil/http"
	"github.com/aukilabs/yggdrasil/models"
	"github.com/aukilabs/yggdrasil/smoketest"
	ywebsocket "github.com/aukilabs/yggdrasil/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

var (
	// The Yggdrasil version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "yggdrasil_info",
		Help:        "Yggdrasil information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr               string        `cli:""        env:"YGGDRASIL_ADDR"                 help:"Listening address for client requests."`
	AdminAddr          string        `cli:""        env:"YGGDRASIL_ADMIN_ADDR"           help:"Admin listening address."`
	LogLevel           string        `cli:""        env:"YGGDRASIL_LOG_LEVEL"            help:"Log level (debug|info|warning|error)."`
	LogIndent          bool          `cli:""        env:"YGGDRASIL_LOG_INDENT"           help:"Indent logs."`
	Config             string        `cli:""        env:"YGGDRASIL_CONFIG"               help:"A YAML or JSON generation config. Used as the smoke test scenario and by export."`
	Export             string        `cli:""        env:"-"                              help:"Generates the config into the given file and exits."`
	Cache              cacheConfig   `cli:",hidden" env:"-"                              help:"Document cache configuration."`
	RateLimit          float64       `cli:",hidden" env:"YGGDRASIL_RATE_LIMIT"           help:"The sustained number of generation requests per second and client. Zero disables limiting."`
	RateBurst          int           `cli:",hidden" env:"YGGDRASIL_RATE_BURST"           help:"The number of generation requests a client can make at once."`
	TrustProxy         bool          `cli:",hidden" env:"YGGDRASIL_TRUST_PROXY"          help:"Identify clients with the X-Forwarded-For and X-Real-IP headers."`
	CORSOrigins        []string      `cli:",hidden" env:"YGGDRASIL_CORS_ORIGINS"         help:"Comma separated allowed origins. Empty allows every origin."`
	ClientIdleTimeout  time.Duration `cli:",hidden" env:"YGGDRASIL_CLIENT_IDLE_TIMEOUT"  help:"Time until an idle streaming client will be disconnected."`
	LogSummaryInterval time.Duration `cli:",hidden" env:"YGGDRASIL_LOG_SUMMARY_INTERVAL" help:"The duration between each log summary by connection."`
	Events             eventsConfig  `cli:",hidden" env:"-"                              help:"Event pusher configuration."`
	FeatureFlags       []string      `cli:",hidden" env:"YGGDRASIL_FEATURE_FLAGS"        help:"Comma separated feature flags"`
	Version            bool          `cli:""        env:"-"                              help:"Show version."`
	Help               bool          `cli:""        env:"-"                              help:"Show help."`
}

type cacheConfig struct {
	Size     int           `cli:",hidden" env:"YGGDRASIL_CACHE_SIZE"      help:"The number of documents kept in memory when no Redis URL is set."`
	RedisURL string        `cli:",hidden" env:"YGGDRASIL_CACHE_REDIS_URL" help:"The Redis URL where documents are cached."`
	TTL      time.Duration `cli:",hidden" env:"YGGDRASIL_CACHE_TTL"       help:"The time documents are kept in Redis."`
}

type eventsConfig struct {
	Endpoint      string        `cli:",hidden" env:"YGGDRASIL_EVENTS_ENDPOINT"       help:"Endpoint to where events are pushed. Empty disables pushing."`
	FlushInterval time.Duration `cli:",hidden" env:"YGGDRASIL_EVENTS_FLUSH_INTERVAL" help:"The duration between each event flush."`
	BatchSize     int           `cli:",hidden" env:"YGGDRASIL_EVENTS_BATCH_SIZE"     help:"The maximum number of events sent at once."`
	QueueSize     int           `cli:",hidden" env:"YGGDRASIL_EVENTS_QUEUE_SIZE"     help:"The size of the queue where events are stored."`
}

func main() {
	conf := config{
		Addr:      ":4000",
		AdminAddr: ":18190",
		LogLevel:  logs.InfoLevel.String(),
		Cache: cacheConfig{
			Size: 64,
			TTL:  time.Hour * 24,
		},
		RateLimit:          2,
		RateBurst:          5,
		ClientIdleTimeout:  time.Minute * 5,
		LogSummaryInterval: time.Minute,
		Events: eventsConfig{
			FlushInterval: events.DefaultFlushInterval,
			BatchSize:     events.DefaultBatchSize,
			QueueSize:     events.DefaultQueueSize,
		},
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts Yggdrasil server.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	generation := models.DefaultConfig()
	if conf.Config != "" {
		c, err := models.LoadConfig(conf.Config)
		if err != nil {
			logs.Fatal(err)
		}
		generation = c
	}

	if conf.Export != "" {
		if err := export(ctx, generation, conf.Export); err != nil {
			logs.Fatal(err)
		}
		return
	}

	if conf.Events.Endpoint != "" {
		eventsPusher := events.Pusher{
			Endpoint:      conf.Events.Endpoint,
			FlushInterval: conf.Events.FlushInterval,
			BatchSize:     conf.Events.BatchSize,
			QueueSize:     conf.Events.QueueSize,
			Transport:     metrics.HTTPTransport(http.DefaultTransport),
		}
		go eventsPusher.Start()
		defer eventsPusher.Close()

		eventsLogger := events.Logger{
			Pusher:           &eventsPusher,
			SDKType:          "yggdrasil",
			SDKVersionFamily: version,
		}
		logs.SetLogger(eventsLogger.Log)
	}

	store, readinessCheck, err := newCache(ctx, conf.Cache)
	if err != nil {
		logs.Fatal(err)
	}

	featureFlags := featureflag.New(conf.FeatureFlags)
	gen := &generator.Generator{
		Cache:        store,
		FeatureFlags: featureFlags,
	}

	rateLimiter := &ygghttp.RateLimiter{
		RequestsPerSecond: conf.RateLimit,
		Burst:             conf.RateBurst,
		TrustProxy:        conf.TrustProxy,
	}
	go rateLimiter.Run(ctx, time.Minute)

	cors := func(h http.Handler) http.Handler {
		return ygghttp.HandleWithCORS(conf.CORSOrigins, h)
	}

	var service http.ServeMux
	service.Handle("/generate", cors(rateLimiter.Handler(ygghttp.HandleGenerate(gen))))
	service.Handle("/health", cors(http.HandlerFunc(ygghttp.HandleHealthCheck)))
	service.Handle("/ready", cors(ygghttp.HandleReadyCheck(readinessCheck)))
	service.Handle("/version", cors(ygghttp.HandleVersion(version)))
	service.Handle("/smoke-test", smoketest.HandleSmokeTest(smoketest.Options{
		Config: generation,
	}))

	featureFlags.IfNotSet(featureflag.FlagDisableGrowthStreaming, func() {
		service.Handle("/stream", cors(websocket.Server{
			Handler: func(conn *websocket.Conn) {
				defer conn.Close()

				var sh ywebsocket.Handler = &ywebsocket.StreamHandler{
					Generator:         gen,
					ClientIdleTimeout: conf.ClientIdleTimeout,
				}
				h := ywebsocket.HandlerWithLogs(sh, conf.LogSummaryInterval)
				h = ywebsocket.HandlerWithMetrics(h)
				defer h.Close()

				ywebsocket.Handle(ctx, conn, h)
			},
		}))
	})

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", ygghttp.HandleHealthCheck)
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))
	admin.HandleFunc("/ready", ygghttp.HandleReadyCheck(readinessCheck))

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("addr", conf.Addr).
		WithTag("feature_flags", featureFlags.List()).
		Info("starting yggdrasil server")

	ygghttp.ListenAndServe(ctx,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service,
			ygghttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)
}

func newCache(ctx context.Context, conf cacheConfig) (cache.Store, func() bool, error) {
	if conf.RedisURL == "" {
		return cache.NewLRU(conf.Size), func() bool { return true }, nil
	}

	c, err := cache.NewRedis(conf.RedisURL, conf.TTL)
	if err != nil {
		return nil, nil, err
	}
	go func() {
		<-ctx.Done()
		c.Close()
	}()

	readinessCheck := func() bool {
		ctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()

		if err := c.Ping(ctx); err != nil {
			logs.Warn(err)
			return false
		}
		return true
	}
	return c, readinessCheck, nil
}

func export(ctx context.Context, c models.Config, filename string) error {
	var g generator.Generator

	res, err := g.Generate(ctx, c)
	if err != nil {
		return err
	}

	if err := os.WriteFile(filename, res.Encoded, 0o644); err != nil {
		return errors.New("writing document failed").
			WithTag("file_name", filename).
			Wrap(err)
	}

	logs.WithTag("file_name", filename).
		WithTag("seed", res.Document.Seed).
		WithTag("node_count", res.Document.NodeCount).
		WithTag("digest", res.Digest).
		Info("document exported")
	return nil
}
