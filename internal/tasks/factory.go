package tasks

import (
	"context"
	"fmt"
	"strings"
)

type StoreConfig struct {
	// Mode is one of auto, file, postgres, sqlite. auto selects postgres when
	// DatabaseURL is set and the JSON file otherwise.
	Mode        string
	FilePath    string
	DatabaseURL string
	SQLitePath  string
}

func NewStore(ctx context.Context, cfg StoreConfig) (Store, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" || mode == "auto" {
		mode = "file"
		if strings.TrimSpace(cfg.DatabaseURL) != "" {
			mode = "postgres"
		}
	}

	switch mode {
	case "file":
		return NewFileStore(cfg.FilePath)
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for postgres task store")
		}
		return NewPostgresStore(ctx, cfg.DatabaseURL)
	case "sqlite":
		return OpenSQLiteStore(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported task store mode %q", cfg.Mode)
	}
}
