// Package main provides the CLI entry point for api-etl.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/donlluque/api-etl/internal/config"
	"github.com/donlluque/api-etl/pkg/cache"
	"github.com/donlluque/api-etl/pkg/fetcher"
	"github.com/donlluque/api-etl/pkg/logging"
	"github.com/donlluque/api-etl/pkg/record"
	"github.com/donlluque/api-etl/pkg/sink"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitNoData       = 1 // no records retrieved, or the run failed
	ExitInvalidInput = 2 // bad flags, params JSON or output extension
)

var (
	// Global flags
	verbose bool
	quiet   bool
	pretty  bool

	// Extraction flags
	flagURL         string
	flagOutput      string
	flagFields      string
	flagParams      string
	flagMaxPages    int
	flagStartPage   int
	flagPageParam   string
	flagSleep       float64
	flagTimeout     float64
	flagAuthHeader  string
	flagTokenEnv    string
	flagJobFile     string
	flagCacheRedis  string
	flagCacheTTL    float64
	flagMetricsAddr string

	// Build information (set via ldflags during build)
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "api-etl",
	Short: "Extract data from paginated REST APIs to CSV/XLSX",
	Long: `api-etl pulls records from a paginated REST endpoint, optionally
narrows each record to a chosen set of fields, and writes the result
to a CSV or XLSX file.

Examples:
  # Basic extraction from a public API (no auth)
  api-etl --url "https://jsonplaceholder.typicode.com/posts" \
    --output posts.csv --max-pages 2

  # With field filtering and authentication
  api-etl --url "https://api.example.com/users" \
    --output users.xlsx \
    --fields "id,name,email,created_at" \
    --max-pages 5 --token-env MY_API_TOKEN

  # Custom pagination parameter and extra query params
  api-etl --url "https://api.example.com/issues" \
    --output issues.csv \
    --page-param "p" \
    --params '{"state":"open"}' \
    --max-pages 3

Exit codes:
  0 - Extraction succeeded with data
  1 - No data retrieved, or the fetch/write failed
  2 - Invalid input (bad --params JSON, unsupported output extension)`,
	Version: version,
	Run: func(cmd *cobra.Command, _ []string) {
		os.Exit(runExtract(cmd))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log errors")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "human-readable log output")

	rootCmd.Flags().StringVar(&flagURL, "url", "", "API endpoint URL")
	rootCmd.Flags().StringVar(&flagOutput, "output", "", "output file (.csv or .xlsx)")
	rootCmd.Flags().StringVar(&flagFields, "fields", "", "comma-separated fields to extract (e.g. 'id,name,email')")
	rootCmd.Flags().StringVar(&flagParams, "params", "", `additional query params as JSON (e.g. '{"status":"active"}')`)
	rootCmd.Flags().IntVar(&flagMaxPages, "max-pages", 1, "maximum pages to fetch")
	rootCmd.Flags().IntVar(&flagStartPage, "start-page", 1, "first page number to request")
	rootCmd.Flags().StringVar(&flagPageParam, "page-param", "page", "pagination parameter name")
	rootCmd.Flags().Float64Var(&flagSleep, "sleep", 0.5, "seconds to wait between requests")
	rootCmd.Flags().Float64Var(&flagTimeout, "timeout", 30, "per-request timeout in seconds")
	rootCmd.Flags().StringVar(&flagAuthHeader, "auth-header", "Authorization", "authorization header name")
	rootCmd.Flags().StringVar(&flagTokenEnv, "token-env", "API_TOKEN", "environment variable holding the auth token")
	rootCmd.Flags().StringVar(&flagJobFile, "config", "", "YAML job file with extraction defaults")
	rootCmd.Flags().StringVar(&flagCacheRedis, "cache-redis", "", "Redis address enabling the page cache (e.g. localhost:6379)")
	rootCmd.Flags().Float64Var(&flagCacheTTL, "cache-ttl", 300, "page cache TTL in seconds")
	rootCmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitInvalidInput)
	}
}

func runExtract(cmd *cobra.Command) int {
	level := logging.LevelInfo
	if verbose {
		level = logging.LevelDebug
	} else if quiet {
		level = logging.LevelError
	}
	logger := logging.Setup(logging.Config{Level: level, Pretty: pretty, Output: os.Stderr})

	// .env is optional; environment variables win over file entries.
	_ = godotenv.Load()

	var job config.Job
	if flagJobFile != "" {
		var err error
		job, err = config.Load(flagJobFile)
		if err != nil {
			logger.Error().Err(err).Str("config", flagJobFile).Msg("Invalid job file")
			return ExitInvalidInput
		}
	}
	applyJobDefaults(cmd, job)

	if flagURL == "" {
		logger.Error().Msg("An endpoint URL is required (--url)")
		return ExitInvalidInput
	}
	if flagOutput == "" {
		logger.Error().Msg("An output file is required (--output)")
		return ExitInvalidInput
	}

	// Fail on a bad output extension before any request is made.
	out, err := sink.New(flagOutput)
	if err != nil {
		logger.Error().Err(err).Str("output", flagOutput).Msg("Invalid output destination")
		return ExitInvalidInput
	}

	params := url.Values{}
	for k, v := range job.Params {
		params.Set(k, v)
	}
	if flagParams != "" {
		extra, err := parseExtraParams(flagParams)
		if err != nil {
			logger.Error().Err(err).Msg("Invalid JSON in --params")
			return ExitInvalidInput
		}
		for k, vs := range extra {
			params[k] = vs
		}
		logger.Info().Str("params", params.Encode()).Msg("Additional query params")
	}

	headers := map[string]string{}
	if token := os.Getenv(flagTokenEnv); token != "" {
		headers[flagAuthHeader] = "Bearer " + token
		logger.Info().Str("token_env", flagTokenEnv).Msg("Auth token loaded")
	} else {
		logger.Info().Msg("No auth token found, proceeding without authentication")
	}

	fields := splitFields(flagFields)
	if len(fields) == 0 && !cmd.Flags().Changed("fields") {
		fields = job.Fields
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pageCache *cache.Manager
	if flagCacheRedis != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: flagCacheRedis})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Error().Err(err).Str("addr", flagCacheRedis).Msg("Failed to connect to Redis")
			return ExitNoData
		}
		defer redisClient.Close()
		pageCache = cache.NewManager(redisClient)
		logger.Info().Str("addr", flagCacheRedis).Msg("Page cache enabled")
	}

	if flagMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(flagMetricsAddr, mux); err != nil {
				logger.Warn().Err(err).Msg("Metrics listener stopped")
			}
		}()
		logger.Info().Str("addr", flagMetricsAddr).Msg("Serving Prometheus metrics")
	}

	f, err := fetcher.New(fetcher.Config{
		BaseURL:          flagURL,
		Headers:          headers,
		BaseParams:       params,
		PageParam:        flagPageParam,
		StartPage:        flagStartPage,
		MaxPages:         flagMaxPages,
		Sleep:            secondsToDuration(flagSleep),
		Timeout:          secondsToDuration(flagTimeout),
		Cache:            pageCache,
		CacheTTL:         secondsToDuration(flagCacheTTL),
		RateLimitBackoff: 5 * time.Second,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Invalid fetch configuration")
		return ExitInvalidInput
	}

	logger.Info().Str("url", flagURL).Msg("Starting extraction")
	items, err := f.Fetch(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Extraction failed")
		return ExitNoData
	}

	if len(items) == 0 {
		logger.Warn().Msg("No data retrieved, aborting")
		return ExitNoData
	}

	if len(fields) > 0 {
		logger.Info().Strs("fields", fields).Msg("Filtering fields")
		items = record.Project(items, fields)
	}

	if err := out.Write(items); err != nil {
		logger.Error().Err(err).Str("output", flagOutput).Msg("Failed to write output")
		return ExitNoData
	}

	logger.Info().
		Int("rows", len(items)).
		Str("output", flagOutput).
		Msg("Extraction saved")
	return ExitSuccess
}

// applyJobDefaults fills flag values from a job file for flags the
// user did not set explicitly.
func applyJobDefaults(cmd *cobra.Command, job config.Job) {
	fl := cmd.Flags()

	if !fl.Changed("url") && job.URL != "" {
		flagURL = job.URL
	}
	if !fl.Changed("output") && job.Output != "" {
		flagOutput = job.Output
	}
	if !fl.Changed("page-param") && job.PageParam != "" {
		flagPageParam = job.PageParam
	}
	if !fl.Changed("start-page") && job.StartPage > 0 {
		flagStartPage = job.StartPage
	}
	if !fl.Changed("max-pages") && job.MaxPages > 0 {
		flagMaxPages = job.MaxPages
	}
	if !fl.Changed("sleep") && job.SleepS > 0 {
		flagSleep = job.SleepS
	}
	if !fl.Changed("timeout") && job.TimeoutS > 0 {
		flagTimeout = job.TimeoutS
	}
	if !fl.Changed("auth-header") && job.AuthHeader != "" {
		flagAuthHeader = job.AuthHeader
	}
	if !fl.Changed("token-env") && job.TokenEnv != "" {
		flagTokenEnv = job.TokenEnv
	}
	if !fl.Changed("cache-redis") && job.CacheRedis != "" {
		flagCacheRedis = job.CacheRedis
	}
	if !fl.Changed("cache-ttl") && job.CacheTTLS > 0 {
		flagCacheTTL = job.CacheTTLS
	}
}

// parseExtraParams decodes a JSON object of extra query parameters.
// Non-string values are rendered the way they appeared in the JSON.
func parseExtraParams(raw string) (url.Values, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}

	params := url.Values{}
	for k, v := range m {
		switch t := v.(type) {
		case string:
			params.Set(k, t)
		case json.Number:
			params.Set(k, t.String())
		case bool:
			params.Set(k, strconv.FormatBool(t))
		case nil:
			params.Set(k, "")
		default:
			b, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			params.Set(k, string(b))
		}
	}
	return params, nil
}

// splitFields parses the comma-separated --fields value.
func splitFields(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	fields := make([]string, 0, len(parts))
	for _, p := range parts {
		if f := strings.TrimSpace(p); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// secondsToDuration converts a fractional seconds flag to a Duration.
func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
