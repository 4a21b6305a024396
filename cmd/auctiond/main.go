package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jensholdgaard/auction-block/internal/archive"
	"github.com/jensholdgaard/auction-block/internal/clock"
	"github.com/jensholdgaard/auction-block/internal/config"
	"github.com/jensholdgaard/auction-block/internal/engine"
	"github.com/jensholdgaard/auction-block/internal/health"
	"github.com/jensholdgaard/auction-block/internal/rules"
	"github.com/jensholdgaard/auction-block/internal/telemetry"

	// Register archive drivers so they are available via archive.Open.
	_ "github.com/jensholdgaard/auction-block/internal/archive/postgres"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	resumePath := flag.String("resume", "", "resume from an existing .auctionlog file instead of starting a new auction")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := run(*configPath, *resumePath); err != nil {
		slog.Error("fatal error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath, resumePath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	tp, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("telemetry setup failed, continuing without OTEL export", slog.Any("error", err))
		tp = telemetry.NewNopProvider()
	}
	defer func() {
		if shutdownErr := tp.Shutdown(context.Background()); shutdownErr != nil {
			slog.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	logger := tp.Logger
	clk := clock.Real{}

	// The archive is an optional mirror of the log; the .auctionlog file
	// stays authoritative either way.
	var arch archive.Store
	if cfg.Archive.Enabled {
		arch, err = archive.Open(ctx, cfg.Archive, clk)
		if err != nil {
			return fmt.Errorf("opening archive (driver=%s): %w", cfg.Archive.Driver, err)
		}
		defer arch.Close()
		logger.InfoContext(ctx, "connected to archive", slog.String("driver", cfg.Archive.Driver))
	}

	eng, err := openEngine(ctx, cfg, resumePath, arch, logger, tp, clk)
	if err != nil {
		return err
	}

	checkers := []health.Checker{health.LogFileChecker(eng.LogPath())}
	if arch != nil {
		checkers = append(checkers, health.Checker{Name: "archive", Check: arch.Ping})
	}
	healthHandler := health.NewHandler(clk, checkers...)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthHandler.LivenessHandler())
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler())

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.InfoContext(ctx, "starting health server", slog.Int("port", cfg.Server.Port))
		if listenErr := httpServer.ListenAndServe(); listenErr != nil && listenErr != http.ErrServerClosed {
			logger.ErrorContext(ctx, "health server error", slog.Any("error", listenErr))
		}
	}()

	healthHandler.SetReady(true)
	logger.InfoContext(ctx, "auctiond is running",
		slog.String("version", version),
		slog.String("auction", eng.Name()),
		slog.String("log", eng.LogPath()),
	)

	// The console is the single writer: every mutating engine call happens
	// on this goroutine.
	console(ctx, cancel, eng, logger)

	healthHandler.SetReady(false)
	if closeErr := eng.Close(context.Background()); closeErr != nil {
		logger.Error("engine shutdown error", slog.Any("error", closeErr))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", slog.Any("error", err))
	}

	logger.Info("shutdown complete")
	return nil
}

func openEngine(ctx context.Context, cfg *config.Config, resumePath string, arch archive.Store, logger *slog.Logger, tp *telemetry.Provider, clk clock.Clock) (*engine.Engine, error) {
	if resumePath != "" {
		eng, err := engine.LoadFromLog(ctx, resumePath, arch, logger, tp.TracerProvider, clk)
		if err != nil {
			return nil, fmt.Errorf("resuming from %s: %w", resumePath, err)
		}
		return eng, nil
	}

	setup := engine.SetupConfig{
		Name:    cfg.Auction.Name,
		LogPath: cfg.Log.Path,
		LogDir:  cfg.Log.Dir,
	}
	for _, t := range cfg.Auction.Teams {
		setup.Teams = append(setup.Teams, engine.TeamSetup{Name: t.Name, Money: t.Money})
	}
	for _, p := range cfg.Auction.Players {
		setup.Players = append(setup.Players, engine.PlayerSetup{Name: p.Name, BaseBid: p.BaseBid})
	}
	for _, r := range cfg.Auction.BidIncrementRules {
		setup.Rules = append(setup.Rules, rules.Rule{Threshold: r[0], Increment: r[1]})
	}

	eng, err := engine.SetupNewAuction(ctx, setup, arch, logger, tp.TracerProvider, clk)
	if err != nil {
		return nil, fmt.Errorf("starting auction: %w", err)
	}
	return eng, nil
}

// readLines feeds input lines to the console until EOF or cancellation. The
// channel is closed when the reader stops, and a pending send is abandoned on
// cancellation so the goroutine does not outlive the console.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

// console reads operator commands from stdin until quit or signal.
func console(ctx context.Context, cancel context.CancelFunc, eng *engine.Engine, logger *slog.Logger) {
	lines := readLines(ctx, os.Stdin)

	fmt.Println("auctiond console. Type 'help' for commands.")
	for {
		fmt.Print("> ")
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := dispatch(ctx, eng, logger, line); quit {
				cancel()
				return
			}
		}
	}
}

func dispatch(ctx context.Context, eng *engine.Engine, logger *slog.Logger, line string) (quit bool) {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "":
	case "help":
		printHelp()
	case "quit", "exit":
		return true

	case "select":
		advisory, err := eng.SelectItem(ctx, arg)
		if err != nil {
			fmt.Println("error:", err)
			return false
		}
		if advisory != "" {
			fmt.Println(advisory)
		}
		printRound(eng)

	case "bid":
		price, leader, err := eng.PlaceBid(ctx, arg)
		if err != nil {
			fmt.Println("error:", err)
			return false
		}
		fmt.Printf("%s leads at %d\n", leader, price)

	case "undo":
		price, leader, err := eng.UndoLastBid(ctx)
		if err != nil {
			fmt.Println("error:", err)
			return false
		}
		if leader == "" {
			fmt.Printf("back to opening price %d\n", price)
		} else {
			fmt.Printf("%s leads at %d\n", leader, price)
		}

	case "sell":
		sale, err := eng.SellCurrentItem(ctx)
		if err != nil {
			fmt.Println("error:", err)
			return false
		}
		fmt.Println(sale.Message)

	case "pass":
		name, err := eng.PassCurrentItem(ctx, arg)
		if err != nil {
			fmt.Println("error:", err)
			return false
		}
		fmt.Printf("%s returned to pool\n", name)

	case "teams":
		for _, v := range eng.AllTeamsView() {
			fmt.Printf("%-20s %s\n", v.Name, v.MoneyDisplay)
			for _, owned := range v.Inventory {
				fmt.Printf("    %-16s %d\n", owned.PlayerName, owned.Price)
			}
		}

	case "pool":
		for _, v := range eng.AvailableItemsView() {
			fmt.Printf("%-20s base %d\n", v.Name, v.BaseBid)
		}

	case "round":
		printRound(eng)

	case "history":
		history, err := eng.History(ctx)
		if err != nil {
			fmt.Println("error:", err)
			return false
		}
		for _, row := range history {
			fmt.Printf("%4d  %s  %-40s %s\n", row.Serial, row.RawTime, row.Action, row.Comment)
		}

	case "travel":
		serial, err := strconv.Atoi(arg)
		if err != nil {
			fmt.Println("usage: travel <serial>")
			return false
		}
		if err := eng.TravelTo(ctx, serial); err != nil {
			fmt.Println("error:", err)
			return false
		}
		fmt.Printf("restored state No.%d\n", serial)

	case "rules":
		parsed, warnings, err := rules.ParsePairs([]byte(arg))
		for _, w := range warnings {
			fmt.Println("warning:", w)
		}
		if err != nil {
			fmt.Println("usage: rules [[threshold,increment],...] e.g. rules [[0,10],[200,25]]")
			return false
		}
		eng.SetBidIncrementRules(ctx, parsed)
		fmt.Println("bid increment rules updated")

	case "warnings":
		drained := eng.DrainWarnings()
		if len(drained) == 0 {
			fmt.Println("no warnings")
		}
		for _, w := range drained {
			fmt.Println("warning:", w)
		}

	case "summary":
		fmt.Println(eng.Summary())

	default:
		fmt.Printf("unknown command %q; type 'help'\n", cmd)
	}

	// Non-fatal trouble (log append failures, skipped rows) surfaces here so
	// the operator sees it near the command that caused it.
	for _, w := range eng.DrainWarnings() {
		logger.Warn("engine warning", slog.String("warning", w))
		fmt.Println("warning:", w)
	}
	return false
}

func printRound(eng *engine.Engine) {
	v := eng.CurrentRoundView()
	if v == nil {
		fmt.Println("no item on the block")
		return
	}
	fmt.Printf("%s: %s (base %d, %d bids)\n", v.ItemName, v.StatusText, v.BaseBid, v.Bids)
}

func printHelp() {
	fmt.Print(`commands:
  select <player>   put an available player on the block
  bid <team>        place the next bid for a team
  undo              undo the last bid
  sell              sell to the highest bidder
  pass [reason]     return the contested player to the pool
  teams             show budgets and inventories
  pool              show available players
  round             show the contested player
  history           list recorded state rows
  travel <serial>   restore a recorded state
  rules <json>      replace bid increment rules, e.g. rules [[0,10],[200,25]]
  warnings          show and clear non-fatal warnings
  summary           money conservation summary
  quit              end the session
`)
}
