package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/alfredjeanlab/chunks/internal/builder"
)

type Config struct {
	DatabaseURL string // CHUNKS_DATABASE_URL (required)
	HTTPAddr    string // CHUNKS_HTTP_ADDR (default ":8080")
	NATSURL     string // CHUNKS_NATS_URL (optional, empty = no events)
	AuthToken   string // CHUNKS_AUTH_TOKEN (optional, empty = auth disabled)
	EditorToken string // CHUNKS_EDITOR_TOKEN (optional, marks page viewers privileged)
	InstanceID  string // CHUNKS_INSTANCE_ID (default hostname)

	// Rendering settings
	Wrap         bool          // CHUNKS_WRAP (default false)
	CacheTTL     time.Duration // CHUNKS_CACHE_TTL in seconds (default 0 = no expiry)
	CacheSweep   time.Duration // CHUNKS_CACHE_SWEEP (default 1m; 0 = lazy expiry only)
	CacheSize    int           // CHUNKS_CACHE_SIZE (default 10000 entries, least recently used evicted)
	TemplateDir  string        // CHUNKS_TEMPLATE_DIR (optional, enables page rendering)
	BuildersFile string        // CHUNKS_BUILDERS_FILE (optional TOML)

	// Sync settings
	SyncInterval   time.Duration // CHUNKS_SYNC_INTERVAL (default 3m; 0 = disabled)
	SyncS3Bucket   string        // CHUNKS_SYNC_S3_BUCKET (enables S3 when set)
	SyncS3Endpoint string        // CHUNKS_SYNC_S3_ENDPOINT (custom endpoint for MinIO)
	SyncS3Region   string        // CHUNKS_SYNC_S3_REGION (default "us-east-1")
	SyncS3Key      string        // CHUNKS_SYNC_S3_KEY (default "chunks/backup.jsonl")
	SyncGitRepo    string        // CHUNKS_SYNC_GIT_REPO (enables git when set; path to clone)
	SyncGitFile    string        // CHUNKS_SYNC_GIT_FILE (default "chunks.jsonl")
	SyncGitBranch  string        // CHUNKS_SYNC_GIT_BRANCH (default "main")
}

func Load() (*Config, error) {
	c := &Config{
		DatabaseURL:    os.Getenv("CHUNKS_DATABASE_URL"),
		HTTPAddr:       envOrDefault("CHUNKS_HTTP_ADDR", ":8080"),
		NATSURL:        os.Getenv("CHUNKS_NATS_URL"),
		AuthToken:      os.Getenv("CHUNKS_AUTH_TOKEN"),
		EditorToken:    os.Getenv("CHUNKS_EDITOR_TOKEN"),
		InstanceID:     os.Getenv("CHUNKS_INSTANCE_ID"),
		TemplateDir:    os.Getenv("CHUNKS_TEMPLATE_DIR"),
		BuildersFile:   os.Getenv("CHUNKS_BUILDERS_FILE"),
		SyncS3Bucket:   os.Getenv("CHUNKS_SYNC_S3_BUCKET"),
		SyncS3Endpoint: os.Getenv("CHUNKS_SYNC_S3_ENDPOINT"),
		SyncS3Region:   envOrDefault("CHUNKS_SYNC_S3_REGION", "us-east-1"),
		SyncS3Key:      envOrDefault("CHUNKS_SYNC_S3_KEY", "chunks/backup.jsonl"),
		SyncGitRepo:    os.Getenv("CHUNKS_SYNC_GIT_REPO"),
		SyncGitFile:    envOrDefault("CHUNKS_SYNC_GIT_FILE", "chunks.jsonl"),
		SyncGitBranch:  envOrDefault("CHUNKS_SYNC_GIT_BRANCH", "main"),
	}
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("CHUNKS_DATABASE_URL is required")
	}

	if c.InstanceID == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "chunks"
		}
		c.InstanceID = host
	}

	if v := os.Getenv("CHUNKS_WRAP"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("CHUNKS_WRAP: %w", err)
		}
		c.Wrap = b
	}

	if v := os.Getenv("CHUNKS_CACHE_TTL"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("CHUNKS_CACHE_TTL: %w", err)
		}
		if secs < 0 {
			return nil, fmt.Errorf("CHUNKS_CACHE_TTL: must not be negative")
		}
		c.CacheTTL = time.Duration(secs) * time.Second
	}

	sweep, err := time.ParseDuration(envOrDefault("CHUNKS_CACHE_SWEEP", "1m"))
	if err != nil {
		return nil, fmt.Errorf("CHUNKS_CACHE_SWEEP: %w", err)
	}
	c.CacheSweep = sweep

	size, err := strconv.Atoi(envOrDefault("CHUNKS_CACHE_SIZE", "10000"))
	if err != nil {
		return nil, fmt.Errorf("CHUNKS_CACHE_SIZE: %w", err)
	}
	if size <= 0 {
		return nil, fmt.Errorf("CHUNKS_CACHE_SIZE: must be positive")
	}
	c.CacheSize = size

	intervalStr := envOrDefault("CHUNKS_SYNC_INTERVAL", "3m")
	if intervalStr != "" {
		d, err := time.ParseDuration(intervalStr)
		if err != nil {
			return nil, fmt.Errorf("CHUNKS_SYNC_INTERVAL: %w", err)
		}
		c.SyncInterval = d
	}

	return c, nil
}

// buildersFile is the on-disk layout of CHUNKS_BUILDERS_FILE:
//
//	[[builders]]
//	ident = "template"
//	keys  = ["footer", "welcome"]
type buildersFile struct {
	Builders []builder.Spec `toml:"builders"`
}

// LoadBuilders reads the configured builder chain from a TOML file.
// An empty path yields no builders.
func LoadBuilders(path string) ([]builder.Spec, error) {
	if path == "" {
		return nil, nil
	}
	var f buildersFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("decode builders file: %w", err)
	}
	for i, spec := range f.Builders {
		if spec.Ident == "" {
			return nil, fmt.Errorf("builders[%d]: ident is required", i)
		}
	}
	return f.Builders, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
