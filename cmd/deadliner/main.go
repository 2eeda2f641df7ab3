package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ent0n29/deadliner/internal/app"
	"github.com/ent0n29/deadliner/internal/config"
	"github.com/ent0n29/deadliner/internal/reminder"
	"github.com/ent0n29/deadliner/internal/tasks"
)

var Version = "dev"

func main() {
	_ = godotenv.Load()

	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "deadliner",
		Short:         "Deadline tracker: chat commands, task extraction and threshold reminders",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(serveCmd())
	root.AddCommand(tasksCmd())
	root.AddCommand(remindCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP/websocket server and the reminder scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func tasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect stored tasks",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List tasks sorted by deadline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, _ := cmd.Flags().GetString("format")
			keyword, _ := cmd.Flags().GetString("keyword")
			return runList(cmd.Context(), cmd.OutOrStdout(), format, keyword)
		},
	}
	list.Flags().StringP("format", "f", "table", "Output format (table, json, yaml)")
	list.Flags().StringP("keyword", "k", "", "Only tasks whose name contains the keyword")

	cmd.AddCommand(list)
	return cmd
}

func remindCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Reminder scheduler utilities",
	}
	once := &cobra.Command{
		Use:   "once",
		Short: "Run a single reminder cycle and print due reminders as JSON lines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRemindOnce(cmd.Context(), cmd)
		},
	}
	cmd.AddCommand(once)
	return cmd
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	built, err := app.Build(ctx, cfg, newLogger())
	if err != nil {
		return err
	}
	defer func() {
		if err := built.Cleanup(); err != nil {
			log.Printf("cleanup failed: %v", err)
		}
	}()
	log.Printf("task store: %s", built.Store.Mode())

	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: built.API.Router(),
	}
	ln, err := net.Listen("tcp", cfg.BindAddr)
	if err != nil {
		return fmt.Errorf("listen error: %w", err)
	}

	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()
	built.Sessions.StartJanitor(runCtx, 5*time.Second)
	built.Scheduler.Start(runCtx)
	if strings.TrimSpace(cfg.ReminderChannelID) == "" {
		log.Printf("REMINDER_CHANNEL_ID is not set; reminder cycles will be skipped")
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("server listening on %s", ln.Addr())
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
		log.Printf("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve error: %w", err)
		}
	case <-ctx.Done():
	}

	runCancel()
	built.Scheduler.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
	return nil
}

func runList(ctx context.Context, w io.Writer, format, keyword string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	all, err := store.LoadAll(ctx)
	if err != nil {
		return err
	}
	if keyword = strings.TrimSpace(keyword); keyword != "" {
		all = tasks.Match(all, keyword).Matches
	}
	return renderTasks(w, all, format, time.Now().In(cfg.Location))
}

func runRemindOnce(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	channelID := cfg.ReminderChannelID
	if channelID == "" {
		channelID = "stdout"
	}
	scheduler := reminder.New(reminder.Config{
		ChannelID: channelID,
		Location:  cfg.Location,
	}, store, reminder.NewWriterNotifier(cmd.OutOrStdout()), nil, newLogger())

	res, err := scheduler.RunCycle(ctx, time.Now().In(cfg.Location))
	fmt.Fprintf(cmd.ErrOrStderr(), "scanned %d task(s), sent %d reminder(s)\n", res.Scanned, len(res.Sent))
	return err
}
