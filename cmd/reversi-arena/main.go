// reversi-arena plays Reversi bots against each other and prints how often
// each player won.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jaminalder/reversi/internal/app"
	"github.com/jaminalder/reversi/internal/arena"
	"github.com/jaminalder/reversi/internal/bot"
	"github.com/jaminalder/reversi/internal/config"
	"github.com/jaminalder/reversi/internal/domain"
)

// options holds the command-line flags; flags not given keep the config
// file setting.
type options struct {
	games      int
	player1    string
	player2    string
	strategies string
	rows       int
	cols       int
	players    int
	variant    string
	depth      int
	seed       int64
	workers    int
	logLevel   string
	save       bool

	set map[string]bool
}

func newFlagSet(o *options) *flag.FlagSet {
	fs := flag.NewFlagSet("reversi-arena", flag.ContinueOnError)
	fs.IntVar(&o.games, "n", 0, "Number of games to play")
	fs.StringVar(&o.player1, "1", "", "Strategy for player 1")
	fs.StringVar(&o.player2, "2", "", "Strategy for player 2")
	fs.StringVar(&o.strategies, "strategies", "", "Comma separated strategies, one per player")
	fs.IntVar(&o.rows, "rows", 0, "Board rows")
	fs.IntVar(&o.cols, "cols", 0, "Board columns")
	fs.IntVar(&o.players, "players", 0, "Number of players")
	fs.StringVar(&o.variant, "variant", "", "Starting layout: default, othello or free")
	fs.IntVar(&o.depth, "depth", -1, "Minimax search depth")
	fs.Int64Var(&o.seed, "seed", 0, "Seed for the random strategy")
	fs.IntVar(&o.workers, "workers", 1, "Games played concurrently")
	fs.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	fs.BoolVar(&o.save, "save", false, "Write the resulting settings to the config file")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [flags]\n\nStrategies: %s, or %s<file.lua>\n\n",
			fs.Name(), strings.Join(bot.Names(), ", "), bot.ScriptPrefix)
		fs.PrintDefaults()
	}
	return fs
}

func parseFlags(args []string) (*options, error) {
	o := &options{set: make(map[string]bool)}
	fs := newFlagSet(o)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	return o, nil
}

func main() {
	o, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err == nil {
		err = run(o)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "reversi-arena: %s\n", err)
		os.Exit(1)
	}
}

func run(o *options) error {
	cfg, err := config.InitConfig()
	if err != nil {
		return err
	}
	o.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if o.save {
		if err := cfg.Save(); err != nil {
			return err
		}
	}

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	variant, err := domain.ParseVariant(cfg.Board.Variant)
	if err != nil {
		return err
	}
	seats := make([]bot.Strategy, 0, len(cfg.Arena.Strategies))
	defer func() {
		if err := arena.Close(seats); err != nil {
			logger.Warn("closing strategies", zap.Error(err))
		}
	}()
	for i, name := range cfg.Arena.Strategies {
		// each seat gets its own random stream
		s, err := bot.New(name, bot.Options{Seed: cfg.Arena.Seed + int64(i), Depth: cfg.Arena.Depth})
		if err != nil {
			return err
		}
		seats = append(seats, s)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	svc := app.NewService()
	svc.SetLogger(logger.Named("service"))
	a := arena.New(svc, logger.Named("arena"))
	a.Workers = o.workers

	logger.Info("starting arena",
		zap.Int("games", cfg.Arena.Games),
		zap.Strings("strategies", cfg.Arena.Strategies),
		zap.Int("rows", cfg.Board.Rows),
		zap.Int("cols", cfg.Board.Cols),
		zap.Stringer("variant", variant),
	)
	res, err := a.Run(ctx, cfg.Arena.Games, arena.Setup{
		Rows:    cfg.Board.Rows,
		Cols:    cfg.Board.Cols,
		Players: cfg.Board.Players,
		Variant: variant,
	}, seats)
	if res.Games > 0 {
		if rerr := res.Report(os.Stdout); rerr != nil {
			return rerr
		}
	}
	return err
}

// apply overrides cfg with every flag given on the command line. Bad values
// are left for cfg.Validate to report.
func (o *options) apply(cfg *config.Config) {
	for name := range o.set {
		switch name {
		case "n":
			cfg.Arena.Games = o.games
		case "rows":
			cfg.Board.Rows = o.rows
		case "cols":
			cfg.Board.Cols = o.cols
		case "players":
			cfg.Board.Players = o.players
		case "variant":
			cfg.Board.Variant = o.variant
		case "depth":
			cfg.Arena.Depth = o.depth
		case "seed":
			cfg.Arena.Seed = o.seed
		case "log-level":
			cfg.Log.Level = o.logLevel
		}
	}

	if o.strategies != "" {
		cfg.Arena.Strategies = strings.Split(o.strategies, ",")
	}
	if len(cfg.Arena.Strategies) == 0 {
		cfg.Arena.Strategies = []string{"random"}
	}
	if n := cfg.Board.Players; n > 0 {
		// a player count without strategies seats the configured first strategy everywhere
		for len(cfg.Arena.Strategies) < n {
			cfg.Arena.Strategies = append(cfg.Arena.Strategies, cfg.Arena.Strategies[0])
		}
		if len(cfg.Arena.Strategies) > n && o.strategies == "" {
			cfg.Arena.Strategies = cfg.Arena.Strategies[:n]
		}
	}
	if o.player1 != "" {
		cfg.Arena.Strategies[0] = o.player1
	}
	if o.player2 != "" && len(cfg.Arena.Strategies) > 1 {
		cfg.Arena.Strategies[1] = o.player2
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.OutputPaths = []string{"stderr"}
	return zcfg.Build()
}
