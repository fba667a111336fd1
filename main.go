package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"btasks/internal/handlers"
	"btasks/internal/store"
)

func main() {
	port, ok := parsePort(os.Args)
	if !ok {
		fmt.Fprintf(os.Stderr, "ERROR: Usage %s PORT\n", os.Args[0])
		os.Exit(1)
	}

	// Configuration
	_ = godotenv.Load()
	dataDir := getEnv("BTASKS_DATA_DIR", filepath.Join(xdg.DataHome, "btasks"))

	// Initialize store and handlers
	s := store.Open(filepath.Join(dataDir, "database.json"))
	h := handlers.New(s)

	if err := run(port, h.Router()); err != nil {
		log.Fatal("server failed", "err", err)
	}
}

// parsePort accepts exactly one positional argument, a TCP port in
// [1, 65535].
func parsePort(args []string) (uint16, bool) {
	if len(args) != 2 {
		return 0, false
	}
	port, err := strconv.ParseUint(args[1], 10, 16)
	if err != nil || port == 0 {
		return 0, false
	}
	return uint16(port), true
}

// run serves HTTP on loopback until SIGINT, then stops accepting, drains
// in-flight requests, and returns.
func run(port uint16, handler http.Handler) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", addr, err)
	}
	fmt.Fprintf(os.Stderr, "* Listening on port %d\n", port)

	srv := &http.Server{Handler: handler}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return srv.Shutdown(context.Background())
	})
	return g.Wait()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
