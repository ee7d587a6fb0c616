package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nick-dorsch/eisen/internal/escalation"
	"github.com/nick-dorsch/eisen/internal/server"
	"github.com/nick-dorsch/eisen/internal/ui"
	"github.com/nick-dorsch/eisen/pkg/models"
)

func (c *cli) runServe(args []string) error {
	serveFlags := flag.NewFlagSet("serve", flag.ContinueOnError)
	serveFlags.SetOutput(c.stderr)
	port := serveFlags.String("port", "", "Port to listen on (default from config, then 3000)")
	applyEscalation := escalationFlags(serveFlags)
	if err := serveFlags.Parse(args); err != nil {
		return err
	}

	cfg, err := c.loadValidConfig(applyEscalation, func(cfg *config) {
		if *port != "" {
			cfg.Port = *port
		}
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := c.openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	scheduler, err := escalation.StartScheduler(ctx, store, cfg.Escalation, escalation.WithLogger(c.logger))
	if err != nil {
		return err
	}

	srv := server.NewServer(store, scheduler)
	srv.SetLogger(c.logger)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		c.logger.Info("listening", "addr", addr)
		if err := srv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		c.logger.Error("http shutdown failed", "error", err)
	}

	// Let an in-flight scan finish before the store is closed.
	<-scheduler.Done()
	return serveErr
}

func (c *cli) runScan(args []string) error {
	scanFlags := flag.NewFlagSet("scan", flag.ContinueOnError)
	scanFlags.SetOutput(c.stderr)
	applyEscalation := escalationFlags(scanFlags)
	if err := scanFlags.Parse(args); err != nil {
		return err
	}

	cfg, err := c.loadValidConfig(applyEscalation)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, closeStore, err := c.openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	result, err := escalation.NewScheduler(store, cfg.Escalation, escalation.WithLogger(c.logger)).RunNow(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.stdout, "Scanned %d open tasks, cutoff %s\n", result.Scanned, result.Cutoff.Format(time.RFC3339))
	if len(result.Escalated) == 0 {
		fmt.Fprintln(c.stdout, "No tasks escalated")
		return nil
	}
	fmt.Fprintf(c.stdout, "Escalated %d tasks:\n", len(result.Escalated))
	for _, t := range result.Escalated {
		fmt.Fprintf(c.stdout, "  ↑ %s  %s\n", t.ID, t.Title)
	}
	return nil
}

func (c *cli) runWatch(args []string) error {
	watchFlags := flag.NewFlagSet("watch", flag.ContinueOnError)
	watchFlags.SetOutput(c.stderr)
	userID := watchFlags.String("user", "", "Only show tasks owned by this user")
	applyEscalation := escalationFlags(watchFlags)
	if err := watchFlags.Parse(args); err != nil {
		return err
	}

	cfg, err := c.loadValidConfig(applyEscalation)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := c.openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// Log lines would corrupt the alternate screen; scan outcomes are shown
	// in the view instead.
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	scheduler, err := escalation.StartScheduler(ctx, store, cfg.Escalation,
		escalation.WithLogger(quiet), escalation.WithEvents(16))
	if err != nil {
		return err
	}

	load := func(ctx context.Context) (map[models.Quadrant][]*models.Task, error) {
		return store.Matrix(ctx, *userID)
	}
	err = ui.RunWatch(ctx, scheduler.Events(), load, cfg.Escalation.ThresholdDays)

	stop()
	<-scheduler.Done()
	return err
}
