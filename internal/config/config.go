package config

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	appdefaults "github.com/saker-ai/akbar-server/config"

	"github.com/saker-ai/akbar-server/internal/logger"
	"github.com/spf13/viper"
)

const envPrefix = "akbar"

// Storage backends understood by StorageConfig.Backend.
const (
	BackendFile      = "file"
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

// ServerConfig represents a serverConfig.
type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	TLSCertPath string `mapstructure:"tls_cert_path"`
	TLSKeyPath  string `mapstructure:"tls_key_path"`
}

// GeminiConfig configures the generation back end.
type GeminiConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	VideoAPIKey    string        `mapstructure:"video_api_key"`
	TextModel      string        `mapstructure:"text_model"`
	ImageModel     string        `mapstructure:"image_model"`
	ImageEditModel string        `mapstructure:"image_edit_model"`
	VideoModel     string        `mapstructure:"video_model"`
	VideoFastModel string        `mapstructure:"video_fast_model"`
	TTSModel       string        `mapstructure:"tts_model"`
	TTSVoice       string        `mapstructure:"tts_voice"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// StorageConfig selects and configures the key-value backend.
type StorageConfig struct {
	Backend             string `mapstructure:"backend"`
	Dir                 string `mapstructure:"dir"`
	SQLitePath          string `mapstructure:"sqlite_path"`
	FirestoreProject    string `mapstructure:"firestore_project"`
	FirestoreCollection string `mapstructure:"firestore_collection"`
}

// VideoConfig represents a videoConfig.
type VideoConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	DownloadDir  string        `mapstructure:"download_dir"`
	PublicPath   string        `mapstructure:"public_path"`
}

// AudioConfig represents an audioConfig.
type AudioConfig struct {
	OutputSampleRate int `mapstructure:"output_sample_rate"`
}

// UploadsConfig represents an uploadsConfig.
type UploadsConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes"`
}

// CredentialsConfig represents a credentialsConfig.
type CredentialsConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Config represents a config.
type Config struct {
	RootDir     string            `mapstructure:"-"`
	HTTPAddr    string            `mapstructure:"http_addr"`
	Server      ServerConfig      `mapstructure:"server"`
	Gemini      GeminiConfig      `mapstructure:"gemini"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Video       VideoConfig       `mapstructure:"video"`
	Audio       AudioConfig       `mapstructure:"audio"`
	Uploads     UploadsConfig     `mapstructure:"uploads"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	PersonasDir string            `mapstructure:"personas_dir"`
	Log         logger.Config     `mapstructure:"log"`
}

// Load reads conf.yaml from the discovered root directory over the embedded defaults.
func Load() (Config, error) {
	rootDir, err := resolveRootDir()
	if err != nil {
		return Config{}, err
	}

	v, err := newViper()
	if err != nil {
		return Config{}, err
	}
	v.SetConfigName("conf")
	v.AddConfigPath(rootDir)
	if err := v.MergeInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}
	return decode(v, rootDir)
}

// LoadConfig reads the config at configPath, or falls back to Load when it is blank.
func LoadConfig(configPath string) (Config, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		return Load()
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, err
	}

	rootDir := strings.TrimSpace(os.Getenv("AKBAR_ROOT_DIR"))
	if rootDir == "" {
		rootDir = filepath.Dir(absPath)
		if filepath.Base(rootDir) == "config" {
			rootDir = filepath.Dir(rootDir)
		}
	}

	v, err := newViper()
	if err != nil {
		return Config{}, err
	}
	v.SetConfigFile(absPath)
	if err := v.MergeInConfig(); err != nil {
		return Config{}, err
	}
	return decode(v, rootDir)
}

func newViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(appdefaults.Default)); err != nil {
		return nil, fmt.Errorf("load embedded config: %w", err)
	}

	v.SetDefault("http_addr", "")
	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("video.poll_interval", "5s")
	v.SetDefault("uploads.max_bytes", 20<<20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.stdout", true)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v, nil
}

func decode(v *viper.Viper, rootDir string) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	cfg.RootDir = rootDir
	applyEnvKeys(&cfg)
	deriveHTTPAddr(&cfg)
	derivePaths(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports configuration values the server cannot run with.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite, BackendFirestore, BackendMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Storage.Backend == BackendFirestore && c.Storage.FirestoreProject == "" {
		return fmt.Errorf("storage.firestore_project is required for the firestore backend")
	}
	if c.Video.PollInterval <= 0 {
		return fmt.Errorf("video.poll_interval must be positive, got %s", c.Video.PollInterval)
	}
	if c.Uploads.MaxBytes <= 0 {
		return fmt.Errorf("uploads.max_bytes must be positive")
	}
	return nil
}

// applyEnvKeys honors the conventional Gemini key variables when the prefixed ones are unset.
func applyEnvKeys(cfg *Config) {
	if cfg.Gemini.APIKey == "" {
		for _, name := range []string{"GEMINI_API_KEY", "API_KEY"} {
			if key := strings.TrimSpace(os.Getenv(name)); key != "" {
				cfg.Gemini.APIKey = key
				break
			}
		}
	}
}

func deriveHTTPAddr(cfg *Config) {
	if cfg.HTTPAddr != "" {
		return
	}
	host := cfg.Server.Host
	port := cfg.Server.Port
	if port == 0 {
		port = 8101
	}
	if host == "" {
		cfg.HTTPAddr = fmt.Sprintf(":%d", port)
		return
	}
	cfg.HTTPAddr = net.JoinHostPort(host, strconv.Itoa(port))
}

func resolveRootDir() (string, error) {
	if root := strings.TrimSpace(os.Getenv("AKBAR_ROOT_DIR")); root != "" {
		return filepath.Abs(root)
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := wd
	for i := 0; i < 6; i++ {
		if fileExists(filepath.Join(dir, "conf.yaml")) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return wd, nil
}

func derivePaths(cfg *Config) {
	cfg.Storage.Dir = resolvePath(cfg.RootDir, cfg.Storage.Dir, filepath.Join("data", "akbar"))
	cfg.Storage.SQLitePath = resolvePath(cfg.RootDir, cfg.Storage.SQLitePath, filepath.Join("data", "akbar", "akbar.db"))
	cfg.Video.DownloadDir = resolvePath(cfg.RootDir, cfg.Video.DownloadDir, filepath.Join("data", "media"))
	cfg.PersonasDir = resolvePath(cfg.RootDir, cfg.PersonasDir, "personas")
	if cfg.Server.TLSCertPath != "" {
		cfg.Server.TLSCertPath = resolvePath(cfg.RootDir, cfg.Server.TLSCertPath, "")
	}
	if cfg.Server.TLSKeyPath != "" {
		cfg.Server.TLSKeyPath = resolvePath(cfg.RootDir, cfg.Server.TLSKeyPath, "")
	}
	if cfg.Video.PublicPath == "" {
		cfg.Video.PublicPath = "/media"
	}
}

func resolvePath(rootDir string, configured string, fallback string) string {
	path := strings.TrimSpace(configured)
	if path == "" {
		path = fallback
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(rootDir, path)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
