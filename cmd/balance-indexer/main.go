// balance-indexer streams NEAR blocks from an S3-backed lake bucket and
// persists derived balance-change rows to Postgres.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"

	"github.com/lux-labs/balance-indexer/internal/balances"
	"github.com/lux-labs/balance-indexer/internal/cache"
	"github.com/lux-labs/balance-indexer/internal/config"
	"github.com/lux-labs/balance-indexer/internal/nearclient"
	"github.com/lux-labs/balance-indexer/internal/pipeline"
	"github.com/lux-labs/balance-indexer/internal/retrydo"
	"github.com/lux-labs/balance-indexer/internal/rpcresolver"
	"github.com/lux-labs/balance-indexer/internal/source"
	"github.com/lux-labs/balance-indexer/internal/storage"
	"github.com/lux-labs/balance-indexer/internal/streamer"
	"github.com/lux-labs/balance-indexer/internal/telemetry"
)

const clientIdentifier = "balance-indexer"

func main() {
	app := &cli.App{
		Name:    clientIdentifier,
		Usage:   "index NEAR balance changes into Postgres",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.Uint64Flag{Name: "start-block-height", Usage: "block height to start at; defaults to resuming from the stored watermark"},
			&cli.StringFlag{Name: "chain-id", Value: "mainnet", Usage: "mainnet or testnet"},
			&cli.StringFlag{Name: "near-archival-rpc-url", Required: true, EnvVars: []string{"NEAR_ARCHIVAL_RPC_URL"}},
			&cli.StringFlag{Name: "s3-bucket", Required: true, EnvVars: []string{"S3_BUCKET"}},
			&cli.StringFlag{Name: "s3-region", Value: "eu-central-1", EnvVars: []string{"S3_REGION"}},
			&cli.StringFlag{Name: "database-url", Required: true, EnvVars: []string{"DATABASE_URL"}},
			&cli.IntFlag{Name: "cache-capacity", Value: cache.DefaultCapacity},
			&cli.IntFlag{Name: "insert-chunk-size", Value: storage.DefaultInsertChunkSize},
			&cli.StringFlag{Name: "log-level", Value: "info"},
			&cli.StringFlag{Name: "log-file", Usage: "optional path to also write logs to (rotated via lumberjack)"},
			&cli.IntFlag{Name: "metrics-port", Value: 9090, Usage: "port to serve /metrics on; 0 disables"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// viperFromFlags copies cctx's flag values into a fresh viper.Viper for
// config.Load. cli.Context.FlagNames reports every defined flag, not
// just the ones the caller passed, so start-block-height is special-
// cased: it must reach config.Load as unset when absent so ResumeHeight
// can fall back to the stored watermark instead of being pinned to its
// zero default.
func viperFromFlags(cctx *cli.Context) *viper.Viper {
	v := viper.New()
	for _, name := range cctx.FlagNames() {
		if name == "start-block-height" && !cctx.IsSet(name) {
			continue
		}
		v.Set(name, cctx.Value(name))
	}
	return v
}

func run(cctx *cli.Context) error {
	v := viperFromFlags(cctx)

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	log, err := telemetry.NewLog(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("balance-indexer: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	registry := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(registry)
	if port := cctx.Int("metrics-port"); port != 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server stopped", "err", err)
			}
		}()
		go func() {
			<-ctx.Done()
			_ = srv.Close()
		}()
	}

	store, err := storage.Connect(ctx, cfg.DatabaseURL, cfg.InsertChunkSize)
	if err != nil {
		return fmt.Errorf("balance-indexer: connect storage: %w", err)
	}
	defer store.Close()
	store.WithMetrics(metrics.RowsInserted)

	bc, err := cache.New(cfg.CacheCapacity)
	if err != nil {
		return fmt.Errorf("balance-indexer: build cache: %w", err)
	}
	bc.WithMetrics(metrics.CacheHits, metrics.CacheMisses)

	nc := nearclient.New(cfg.ArchivalRPCURL)
	resolver := rpcresolver.New(nc).WithMetrics(metrics.RpcCallsTotal, metrics.RpcErrorsTotal)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3Region))
	if err != nil {
		return fmt.Errorf("balance-indexer: load aws config: %w", err)
	}
	s3Client := s3.NewFromConfig(awsCfg)

	watermark, present, err := store.Watermark(ctx)
	if err != nil {
		return fmt.Errorf("balance-indexer: read watermark: %w", err)
	}
	startHeight := streamer.ResumeHeight(startHeightOverride(cfg), watermark, present)
	log.Info("starting", "chain_id", cfg.ChainID, "start_height", startHeight)

	src := source.NewS3Source(s3Client, cfg.S3Bucket, startHeight)
	bp := pipeline.NewBlockPipeline(bc, resolverWithRetry(resolver), store)
	strm := streamer.New(src, bp, store, log).WithMetrics(metrics.BlocksProcessed, metrics.BlockProcessSeconds)

	return strm.Run(ctx)
}

func startHeightOverride(cfg config.Config) *uint64 {
	return cfg.StartBlockHeight
}

// retryingResolver wraps an rpcresolver.Resolver so each resolution is
// retried per the same exponential-backoff policy used elsewhere for
// DB inserts and watermark queries, since a transient RPC failure should
// not abort the whole stream (spec.md §7).
type retryingResolver struct {
	inner *rpcresolver.Resolver
}

func resolverWithRetry(r *rpcresolver.Resolver) cache.Resolver {
	return retryingResolver{inner: r}
}

func (r retryingResolver) Resolve(ctx context.Context, account, prevBlockHash string) (balances.Balance, error) {
	var result balances.Balance
	err := retrydo.Do(ctx, func(ctx context.Context) error {
		b, err := r.inner.Resolve(ctx, account, prevBlockHash)
		if err != nil {
			return err
		}
		result = b
		return nil
	})
	return result, err
}
