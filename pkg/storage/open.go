package storage

import (
	"context"
	"fmt"
)

type Config struct {
	Type        string
	BaseDir     string
	S3Bucket    string
	S3Prefix    string
	S3Region    string
	PostgresDSN string
}

// Open returns the backend selected by cfg.Type ("local", "s3" or
// "postgres") and a function releasing its resources.
func Open(ctx context.Context, cfg Config) (Storage, func(), error) {
	switch cfg.Type {
	case "s3":
		s, err := NewS3Storage(ctx, cfg.S3Bucket, cfg.S3Prefix, cfg.S3Region)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create S3 storage: %w", err)
		}
		return s, func() {}, nil
	case "postgres":
		s, err := NewPostgresStorage(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create postgres storage: %w", err)
		}
		return s, s.Close, nil
	case "local", "":
		s, err := NewLocalStorage(cfg.BaseDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create local storage: %w", err)
		}
		return s, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
