package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/crystal-mush/mushcore/pkg/boltstore"
	"github.com/crystal-mush/mushcore/pkg/events"
	"github.com/crystal-mush/mushcore/pkg/gamedb"
	"github.com/crystal-mush/mushcore/pkg/server"
)

// envDefault returns the environment variable value if set, otherwise the fallback.
func envDefault(envVar, fallback string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return fallback
}

type options struct {
	conf    string
	bolt    string
	metrics string
	backup  string
	console bool
	watch   bool
}

func main() {
	var opts options

	rootCmd := &cobra.Command{
		Use:   "mushcore",
		Short: "Run the softcode evaluator and command queue",
		Long: `mushcore runs the command queue scheduler against a bbolt-backed world.

Environment variables provide flag defaults:
  MUSH_CONF     Path to game config file (.yaml, .toml or netmush-style .conf)
  MUSH_BOLT     Path to bbolt persistent database
  MUSH_METRICS  Address for the Prometheus /metrics listener
  MUSH_BACKUP   File to write a bbolt snapshot to on shutdown
  MUSH_CONSOLE  Set to 'true' to read commands for God from stdin`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	rootCmd.Flags().StringVar(&opts.conf, "conf", envDefault("MUSH_CONF", ""), "Path to game config file (env: MUSH_CONF)")
	rootCmd.Flags().StringVar(&opts.bolt, "bolt", envDefault("MUSH_BOLT", ""), "Path to bbolt database, overrides bolt_path (env: MUSH_BOLT)")
	rootCmd.Flags().StringVar(&opts.metrics, "metrics", envDefault("MUSH_METRICS", ""), "Metrics listen address, overrides metrics_addr (env: MUSH_METRICS)")
	rootCmd.Flags().StringVar(&opts.backup, "backup", envDefault("MUSH_BACKUP", ""), "Write a bbolt snapshot to this file on shutdown (env: MUSH_BACKUP)")
	rootCmd.Flags().BoolVar(&opts.console, "console", os.Getenv("MUSH_CONSOLE") == "true", "Read commands for God from stdin (env: MUSH_CONSOLE)")
	rootCmd.Flags().BoolVar(&opts.watch, "watch", true, "Reload the config file when it changes")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	conf := server.DefaultConf()
	if opts.conf != "" {
		var err error
		conf, err = server.LoadConf(opts.conf)
		if err != nil {
			return err
		}
		log.Printf("Loaded game config from %s", opts.conf)
	}
	if opts.bolt != "" {
		conf.BoltPath = opts.bolt
	}
	if opts.metrics != "" {
		conf.MetricsAddr = opts.metrics
	}

	db, store, err := openWorld(conf.BoltPath)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	game := server.NewGame(conf, db, store, events.NewBus())
	if store == nil || !store.HasData() {
		game.Seed()
		if store != nil {
			if err := store.ImportFromDatabase(db); err != nil {
				return err
			}
		}
	}
	game.Metrics = server.NewMetrics(game, time.Now())

	log.Printf("Starting %s: %d objects, queue limit %d, tick %v",
		conf.MudName, game.ObjectCount(), conf.QueueMaxSize, conf.Tick())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return game.Run(ctx) })
	if conf.MetricsAddr != "" {
		g.Go(func() error { return game.Metrics.Serve(ctx, conf.MetricsAddr) })
	}
	if opts.conf != "" && opts.watch {
		g.Go(func() error { return server.WatchConf(ctx, opts.conf, game.Reload) })
	}
	if opts.console {
		god := conf.God()
		g.Go(func() error { return console(ctx, game, god, os.Stdin, os.Stdout) })
	}

	err = g.Wait()
	log.Printf("Shutting down %s", conf.MudName)
	if opts.backup != "" && store != nil {
		if berr := game.Backup(opts.backup); berr != nil && err == nil {
			err = berr
		}
	}
	return err
}

// openWorld opens the bolt store at path and loads it. An empty path runs
// without persistence.
func openWorld(path string) (*gamedb.Database, *boltstore.Store, error) {
	if path == "" {
		log.Printf("No bolt_path configured, running without persistence")
		return gamedb.NewDatabase(), nil, nil
	}
	store, err := boltstore.Open(path)
	if err != nil {
		return nil, nil, err
	}
	if store.HasData() {
		if err := store.LoadAll(); err != nil {
			store.Close()
			return nil, nil, err
		}
	}
	return store.DB(), store, nil
}

// console feeds lines from in to the game as God and prints what God is
// told.
func console(ctx context.Context, game *server.Game, god gamedb.DBRef, in io.Reader, out io.Writer) error {
	game.Bus.Subscribe(god, events.SubscriberFunc(func(ev events.Event) {
		fmt.Fprintln(out, ev.Text)
	}))

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case text, ok := <-lines:
			if !ok {
				return nil
			}
			if text == "" {
				continue
			}
			if err := game.Input(ctx, server.Line{Player: god, Text: text}); err != nil {
				return nil
			}
		}
	}
}
