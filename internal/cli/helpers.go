package cli

import (
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/internal/config"
	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/internal/presentation/tui"
	"github.com/aretw0/espalier/pkg/adapters/memory"
	redisAdapter "github.com/aretw0/espalier/pkg/adapters/redis"
	"github.com/aretw0/espalier/pkg/ports"
)

// NewLogger builds the application logger from the configured level.
// It writes to Stderr so command output on Stdout stays clean.
func NewLogger(level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return logging.New(l)
}

// NewEngine initializes an Engine with the store the configuration names.
// For the redis backend the store's locker doubles as the distributed
// locker so multiple instances can share one database.
func NewEngine(cfg config.Config, logger *slog.Logger, extra ...espalier.Option) (*espalier.Engine, error) {
	opts := append([]espalier.Option{espalier.WithLogger(logger)}, extra...)

	switch cfg.Store.Kind {
	case config.StoreMemory:
		opts = append(opts, espalier.WithStore(memory.NewStore()))
		return espalier.New("", opts...)
	case config.StoreRedis:
		store := redisAdapter.New(cfg.Store.Redis.Addr, cfg.Store.Redis.Password, cfg.Store.Redis.DB)
		var locker ports.DistributedLocker = redisAdapter.NewLocker(store.Client(), "espalier:")
		opts = append(opts, espalier.WithStore(store), espalier.WithLocker(locker))
		return espalier.New("", opts...)
	case config.StoreLoam:
		return espalier.New(cfg.Store.Workspace, opts...)
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Store.Kind)
	}
}

// MaybePrintBanner shows the banner only when Stdout is an interactive
// terminal, so piped output stays parseable.
func MaybePrintBanner() {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		tui.PrintBanner()
	}
}
