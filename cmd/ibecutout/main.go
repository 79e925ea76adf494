// Command ibecutout is the HTTP host for the cutout core: it parses a
// cutout request's query parameters, resolves the source FITS file from
// local disk or S3, and streams the result back through core/cutout.
//
// It wires a gorilla/mux router wrapped in gorilla/handlers logging
// middleware, a side goroutine serving Prometheus metrics, and a single
// JSON+env-override config load.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/getsentry/sentry-go"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bonimy/ibe/core/awsutil"
	"github.com/bonimy/ibe/core/config"
	"github.com/bonimy/ibe/core/logger"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON config file (optional; falls back to config.Default())")
	flag.Parse()

	cfg := loadConfig(*configPath)

	lg := &logger.StdOutLogger{}
	lg.SetLogLevel(cfg.LogLevel)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.EnvironmentName,
		}); err != nil {
			lg.Errorf("Sentry initialization failed: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	s3Api, err := newS3Client(cfg)
	if err != nil {
		// A missing AWS session is not fatal - it only matters for
		// s3:// file references, which many deployments never use.
		lg.Errorf("no S3 client available, s3:// file references will fail: %v", err)
	}

	// Side listener so metrics scraping never competes with cutout traffic
	// for the main listener's goroutines.
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		lg.Errorf("metrics listener stopped: %v", http.ListenAndServe(cfg.MetricsAddr, nil))
	}()

	h := &cutoutHandler{cfg: cfg, s3Api: s3Api, log: lg}

	router := mux.NewRouter()
	router.HandleFunc("/cutout", h.ServeHTTP).Methods(http.MethodGet)
	router.Use(prometheusMiddleware)

	lg.Infof("ibecutout listening on %s", cfg.ListenAddr)
	log.Fatal(http.ListenAndServe(cfg.ListenAddr, handlers.CombinedLoggingHandler(os.Stdout, router)))
}

// loadConfig reads the file if one was given, falls back to
// config.Default() otherwise, then prints the resolved config so it
// shows up in the process's own logs.
func loadConfig(path string) config.Config {
	var cfg config.Config
	var err error
	if path != "" {
		cfg, err = config.NewFromFile(path)
		if err != nil {
			log.Fatalf("could not load config from %s: %v", path, err)
		}
	} else {
		cfg = config.Default()
	}

	cfgJSON, err := json.MarshalIndent(cfg, "", "  ")
	if err == nil {
		log.Println(string(cfgJSON))
	}
	return cfg
}

// newS3Client builds one session for the configured region and one S3
// client from it, via core/awsutil.
func newS3Client(cfg config.Config) (s3iface.S3API, error) {
	sess, err := awsutil.GetSessionWithRegion(cfg.S3Region)
	if err != nil {
		return nil, err
	}
	return awsutil.GetS3(sess)
}
