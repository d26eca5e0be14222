package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"ocmods/internal/domain"
	"ocmods/internal/source/catalog"
	"ocmods/internal/storage/config"
	"ocmods/internal/storage/db"
	"ocmods/internal/storage/modsdir"

	"github.com/charmbracelet/log"
)

// DatabaseFile is the install history inside the data directory
const DatabaseFile = "ocmods.db"

// ServiceConfig holds configuration for the core service
type ServiceConfig struct {
	ConfigDir  string      // Directory for configuration files
	ConfigFile string      // Explicit config file, overrides ConfigDir lookup
	DataDir    string      // Directory for database and persistent data
	ModsDir    string      // Overrides mods_dir from the config file
	ServerURL  string      // Overrides server_url from the config file
	Logger     *log.Logger // Optional
}

// Service wires configuration, storage and the catalog together
type Service struct {
	config   *config.Config
	db       *db.DB
	registry *modsdir.Registry
	modsDir  *modsdir.Dir
	log      *log.Logger

	catalogHTTP  *http.Client
	downloadHTTP *http.Client

	configDir string
	dataDir   string
}

// NewService creates a new core service instance
func NewService(cfg ServiceConfig) (*Service, error) {
	var appConfig *config.Config
	var err error
	if cfg.ConfigFile != "" {
		appConfig, err = config.LoadFile(cfg.ConfigFile)
	} else {
		appConfig, err = config.Load(cfg.ConfigDir)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if cfg.ServerURL != "" {
		appConfig.ServerURL = cfg.ServerURL
	}
	if cfg.ModsDir != "" {
		appConfig.ModsDir = cfg.ModsDir
	}
	if appConfig.ModsDir == "" {
		appConfig.ModsDir = filepath.Join(cfg.DataDir, "mods")
	}

	database, err := db.New(filepath.Join(cfg.DataDir, DatabaseFile))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Service{
		config:   appConfig,
		db:       database,
		registry: modsdir.NewRegistry(appConfig.ModsDir),
		modsDir:  modsdir.New(appConfig.ModsDir),
		log:      logger,
		catalogHTTP: &http.Client{
			Timeout: appConfig.RequestTimeout,
		},
		// Transfers may take longer than a catalog request, only the response header is bounded
		downloadHTTP: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: appConfig.RequestTimeout,
				IdleConnTimeout:       90 * time.Second,
			},
		},
		configDir: cfg.ConfigDir,
		dataDir:   cfg.DataDir,
	}, nil
}

// Close releases resources held by the service
func (s *Service) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Config returns the effective configuration
func (s *Service) Config() *config.Config {
	return s.config
}

// ConfigDir returns the configuration directory
func (s *Service) ConfigDir() string {
	return s.configDir
}

// DataDir returns the data directory
func (s *Service) DataDir() string {
	return s.dataDir
}

// DB returns the install history
func (s *Service) DB() *db.DB {
	return s.db
}

// Registry returns the index of installed mods
func (s *Service) Registry() *modsdir.Registry {
	return s.registry
}

// ModsDir returns the mods directory layout
func (s *Service) ModsDir() *modsdir.Dir {
	return s.modsDir
}

// Logger returns the service logger
func (s *Service) Logger() *log.Logger {
	return s.log
}

// NewCatalogClient returns a fresh client; every state machine needs its own
func (s *Service) NewCatalogClient() *catalog.Client {
	c := catalog.NewClient(s.catalogHTTP, s.config.ServerURL)
	c.SetUserAgent(s.config.UserAgent)
	return c
}

// NewPipeline creates an acquisition pipeline bound to this service
func (s *Service) NewPipeline() *Pipeline {
	dl := NewDownloader(s.downloadHTTP)
	dl.SetUserAgent(s.config.UserAgent)

	return NewPipeline(PipelineConfig{
		Catalog:         s.NewCatalogClient(),
		Registry:        s.registry,
		ModsDir:         s.modsDir,
		Downloader:      dl,
		Recorder:        s.db,
		Logger:          s.log,
		ChecksumWorkers: s.config.ChecksumWorkers,
	})
}

// NewListController creates a search controller bound to this service
func (s *Service) NewListController() *ListController {
	return NewListController(ListControllerConfig{
		Catalog:       s.NewCatalogClient(),
		Registry:      s.registry,
		PageSize:      s.config.PageSize,
		RetryCooldown: s.config.RetryCooldown,
		VersionTag:    s.config.VersionTag,
		Logger:        s.log,
	})
}

// NewUpdater creates an updater over the installed mods
func (s *Service) NewUpdater() *Updater {
	return NewUpdater(s.registry)
}

// InstalledEntries waits for the mods directory scan and lists installed mods
func (s *Service) InstalledEntries(ctx context.Context) ([]Entry, error) {
	if err := s.registry.WaitUntilScanComplete(ctx); err != nil {
		return nil, err
	}
	return InstalledEntries(s.registry, s.log), nil
}

// Uninstall removes an installed mod from disk, the registry and the history
func (s *Service) Uninstall(ctx context.Context, id string) (domain.LocalModInfo, error) {
	if err := s.registry.WaitUntilScanComplete(ctx); err != nil {
		return domain.LocalModInfo{}, err
	}

	info, ok := s.registry.Get(id)
	if !ok {
		// Directory gone but history left behind
		if err := s.db.DeleteInstall(id); err == nil {
			return domain.LocalModInfo{ID: id}, nil
		}
		return domain.LocalModInfo{}, fmt.Errorf("mod %s: %w", id, domain.ErrModNotFound)
	}

	if err := s.modsDir.Remove(info.Path); err != nil {
		return info, fmt.Errorf("%w: removing %s: %w", domain.ErrFilesystem, info.Path, err)
	}
	s.registry.RemoveMod(id)

	if err := s.db.DeleteInstall(id); err != nil && !errors.Is(err, domain.ErrModNotFound) {
		return info, fmt.Errorf("updating install history: %w", err)
	}
	s.log.Info("uninstalled", "mod", id, "path", info.Path)
	return info, nil
}
