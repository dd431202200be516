package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/edgar-core/internal/config"
	"github.com/sells-group/edgar-core/internal/store"
	"github.com/sells-group/edgar-core/pkg/edgar"
)

var (
	cfg *config.Config
	idx store.Store
)

var rootCmd = &cobra.Command{
	Use:   "edgar",
	Short: "SEC EDGAR filing toolkit",
	Long:  "Parses EDGAR SGML submissions, stitches XBRL financial statements across filings, and derives trailing-twelve-month metrics.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		if cfg.Edgar.Identity != "" {
			edgar.SetIdentity(cfg.Edgar.Identity)
		}
		if cfg.Store.Path != "" {
			s, err := openStore(cmd.Context(), cfg.Store.Path)
			if err != nil {
				return err
			}
			idx = s
		}
		if len(cfg.Source.TarDirs) > 0 {
			if err := registerTarDirs(cmd.Context(), cfg.Source.TarDirs); err != nil {
				return err
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if idx != nil {
			_ = idx.Close()
			idx = nil
		}
		_ = zap.L().Sync()
	},
}

// openStore opens the filing index database, creating its directory on
// first run.
func openStore(ctx context.Context, path string) (store.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir %s: %w", dir, err)
		}
	}
	s, err := store.NewSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// registerTarDirs scans the configured directories for datamule archives,
// registering them through the filing index when one is open.
func registerTarDirs(ctx context.Context, dirs []string) error {
	var tars []string
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("scan tar dir %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if name := e.Name(); len(name) > 4 && name[len(name)-4:] == ".tar" {
				tars = append(tars, dir+string(os.PathSeparator)+name)
			}
		}
	}
	if len(tars) == 0 {
		return nil
	}
	if idx != nil {
		return edgar.UseDatamuleStorageWithIndex(ctx, idx, tars...)
	}
	return edgar.UseDatamuleStorage(tars...)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
