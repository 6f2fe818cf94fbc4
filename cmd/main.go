package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	appconfig "github.com/saker-ai/akbar-server/internal/config"
	"github.com/saker-ai/akbar-server/internal/storage"
	"github.com/saker-ai/akbar-server/pkg/runtime"
)

const shutdownTimeout = 5 * time.Second

var configPath string

var rootCmd = &cobra.Command{
	Use:   "akbar-server",
	Short: "AKBAR chat server",
	Long: `akbar-server serves the AKBAR chat front end.

It routes slash commands to text, image, comic, audio and video generation,
keeps the transcript, and resumes unfinished video jobs after a restart.`,
	SilenceUsage: true,
	RunE:         runServer,
}

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "List video jobs that will resume on the next start",
	RunE:  listDrafts,
}

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "List persona overrides found in personas_dir",
	RunE:  listPersonas,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to conf.yaml (default: discovered from the working directory)")
	rootCmd.AddCommand(draftsCmd)
	rootCmd.AddCommand(personasCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server, err := runtime.New(ctx, configPath)
	if err != nil {
		return err
	}
	logger := server.Logger()
	defer logger.Sync()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("http server error", zap.Error(err))
		}
		shutdown(server, logger)
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.String("addr", server.Addr()))
	shutdown(server, logger)
	return <-errCh
}

func shutdown(server *runtime.Server, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}

func listDrafts(cmd *cobra.Command, args []string) error {
	cfg, err := appconfig.LoadConfig(configPath)
	if err != nil {
		return err
	}
	kv, err := storage.Open(cmd.Context(), cfg.Storage)
	if err != nil {
		return err
	}
	defer kv.Close()

	drafts, err := storage.NewDraftStore(kv).All(cmd.Context())
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(drafts)
}

func listPersonas(cmd *cobra.Command, args []string) error {
	cfg, err := appconfig.LoadConfig(configPath)
	if err != nil {
		return err
	}
	files, err := appconfig.ScanPersonas(cfg.PersonasDir)
	if err != nil {
		return err
	}
	for _, file := range files {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", file.ID, file.Name, file.Filename)
	}
	return nil
}
