package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	appconfig "github.com/saker-ai/akbar-server/internal/config"
	"github.com/saker-ai/akbar-server/internal/credential"
	"github.com/saker-ai/akbar-server/internal/engine"
	"github.com/saker-ai/akbar-server/internal/gemini"
	apphttp "github.com/saker-ai/akbar-server/internal/http"
	"github.com/saker-ai/akbar-server/internal/hub"
	applogger "github.com/saker-ai/akbar-server/internal/logger"
	"github.com/saker-ai/akbar-server/internal/media"
	"github.com/saker-ai/akbar-server/internal/persona"
	"github.com/saker-ai/akbar-server/internal/storage"
	"github.com/saker-ai/akbar-server/internal/ws"
)

// Server owns the HTTP listener and everything behind it.
type Server struct {
	cfg    appconfig.Config
	logger *zap.Logger
	server *http.Server
	engine *engine.Engine
	gemini *gemini.Client
	kv     storage.KV
}

// New loads configPath and wires storage, the generation client, the engine
// and the HTTP surface. Persisted video drafts resume before New returns.
func New(ctx context.Context, configPath string) (*Server, error) {
	cfg, err := appconfig.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load akbar config: %w", err)
	}

	logger := applogger.NewOrFallback(cfg.Log)
	logger.Info("akbar config loaded",
		zap.String("config_path", configPath),
		zap.String("root_dir", cfg.RootDir),
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("storage", cfg.Storage.Backend),
	)

	kv, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	registry, err := loadPersonas(cfg.PersonasDir, logger)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	h := hub.New(logger)
	provider := credential.NewProvider(cfg.Gemini.VideoAPIKey, h, cfg.Credentials.RequestTimeout, logger)

	client, err := gemini.New(ctx, cfg.Gemini, cfg.Audio.OutputSampleRate, provider, logger)
	if err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	eng, err := engine.New(engine.Options{
		Generator:      client,
		Credentials:    provider,
		Sink:           h,
		Saver:          media.NewDiskSaver(cfg.Video.DownloadDir, cfg.Video.PublicPath),
		Store:          kv,
		Personas:       registry,
		PollInterval:   cfg.Video.PollInterval,
		MaxUploadBytes: cfg.Uploads.MaxBytes,
		Logger:         logger,
	})
	if err != nil {
		client.Close()
		_ = kv.Close()
		return nil, err
	}
	if err := eng.Start(ctx); err != nil {
		client.Close()
		_ = kv.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	wsHandler := ws.NewHandler(logger, eng, h)
	router := apphttp.NewRouter(cfg, wsHandler, eng, logger)

	return &Server{
		cfg:    cfg,
		logger: logger,
		server: &http.Server{Addr: cfg.HTTPAddr, Handler: router},
		engine: eng,
		gemini: client,
		kv:     kv,
	}, nil
}

func loadPersonas(dir string, logger *zap.Logger) (*persona.Registry, error) {
	registry := persona.NewRegistry()
	files, err := appconfig.ScanPersonas(dir)
	if err != nil {
		return nil, fmt.Errorf("scan personas: %w", err)
	}
	for _, file := range files {
		if err := registry.Register(persona.ID(file.ID), file.SystemInstruction); err != nil {
			return nil, fmt.Errorf("persona %s: %w", file.Filename, err)
		}
		logger.Info("persona loaded", zap.String("id", file.ID), zap.String("file", file.Filename))
	}
	return registry, nil
}

// Logger returns the configured logger.
func (s *Server) Logger() *zap.Logger {
	return s.logger
}

// Run serves until Shutdown is called.
func (s *Server) Run() error {
	if s == nil || s.server == nil {
		return nil
	}
	return ignoreServerClosed(listen(s.server, s.cfg, s.logger))
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	if s == nil || s.server == nil {
		return ""
	}
	return s.server.Addr
}

// Shutdown stops the listener, suspends video polling and releases the
// generation client and storage. Pending drafts stay persisted.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	errs := []error{ignoreServerClosed(s.server.Shutdown(ctx))}
	errs = append(errs, s.engine.Shutdown(ctx))
	s.gemini.Close()
	errs = append(errs, s.kv.Close())
	return errors.Join(errs...)
}

func ignoreServerClosed(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func listen(server *http.Server, cfg appconfig.Config, logger *zap.Logger) error {
	certPath := cfg.Server.TLSCertPath
	keyPath := cfg.Server.TLSKeyPath
	if certPath != "" && keyPath != "" {
		certPath = filepath.Clean(certPath)
		keyPath = filepath.Clean(keyPath)
		if fileExists(certPath) && fileExists(keyPath) {
			logger.Info("starting https server", zap.String("addr", cfg.HTTPAddr))
			return server.ListenAndServeTLS(certPath, keyPath)
		}
		logger.Warn("tls files missing, serving plain http",
			zap.String("cert", certPath),
			zap.String("key", keyPath),
		)
	}
	logger.Info("starting http server", zap.String("addr", cfg.HTTPAddr))
	return server.ListenAndServe()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
