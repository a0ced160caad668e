// Package config loads and validates the indexer's runtime
// configuration from CLI flags merged with environment variables, using
// viper the way the teacher's go.mod pulls it in for exactly this
// purpose (spec.md §6 "CLI surface").
package config

import (
	"fmt"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/lux-labs/balance-indexer/internal/cache"
	"github.com/lux-labs/balance-indexer/internal/storage"
)

// ChainID selects which NEAR network the indexer targets.
type ChainID string

const (
	ChainMainnet ChainID = "mainnet"
	ChainTestnet ChainID = "testnet"
)

// Config is the fully-resolved, validated runtime configuration.
type Config struct {
	ChainID          ChainID
	StartBlockHeight *uint64 // nil means "resume from watermark"
	ArchivalRPCURL   string
	S3Bucket         string
	S3Region         string
	DatabaseURL      string
	CacheCapacity    int
	InsertChunkSize  int
	LogLevel         string
	LogFile          string
}

// Load merges the given viper instance (already populated from CLI
// flags and env) into a validated Config.
func Load(v *viper.Viper) (Config, error) {
	chain := ChainID(v.GetString("chain-id"))
	if chain != ChainMainnet && chain != ChainTestnet {
		return Config{}, fmt.Errorf("config: --chain-id must be %q or %q, got %q", ChainMainnet, ChainTestnet, chain)
	}

	cfg := Config{
		ChainID:         chain,
		ArchivalRPCURL:  v.GetString("near-archival-rpc-url"),
		S3Bucket:        v.GetString("s3-bucket"),
		S3Region:        v.GetString("s3-region"),
		DatabaseURL:     v.GetString("database-url"),
		CacheCapacity:   v.GetInt("cache-capacity"),
		InsertChunkSize: v.GetInt("insert-chunk-size"),
		LogLevel:        v.GetString("log-level"),
		LogFile:         v.GetString("log-file"),
	}

	if v.IsSet("start-block-height") {
		h, err := cast.ToUint64E(v.Get("start-block-height"))
		if err != nil {
			return Config{}, fmt.Errorf("config: --start-block-height: %w", err)
		}
		cfg.StartBlockHeight = &h
	}

	if cfg.ArchivalRPCURL == "" {
		return Config{}, fmt.Errorf("config: --near-archival-rpc-url is required")
	}
	if cfg.S3Bucket == "" {
		return Config{}, fmt.Errorf("config: --s3-bucket is required")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("config: --database-url (or DATABASE_URL) is required")
	}
	if cfg.CacheCapacity <= 0 {
		cfg.CacheCapacity = cache.DefaultCapacity
	}
	if cfg.InsertChunkSize <= 0 {
		cfg.InsertChunkSize = storage.DefaultInsertChunkSize
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}
