package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"timelapsebox/internal/catalog"
	"timelapsebox/internal/config"
	"timelapsebox/internal/logging"
	"timelapsebox/internal/session"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger

	catalogOnce sync.Once
	catalog     *catalog.Store
	catalogErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.configPath = resolved
		c.configExists = exists
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// JSONMode reports whether --json was passed.
func (c *commandContext) JSONMode() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// loggerValue builds the process logger on first use and prunes process
// logs past the retention window. It never returns nil.
func (c *commandContext) loggerValue() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg := c.configValue()
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
		if cfg != nil {
			logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, cfg.Paths.LogDir, "*.log")
		}
	})
	return c.logger
}

func (c *commandContext) sessionManager() (*session.Manager, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return session.NewManager(cfg.Paths.DataDir, c.loggerValue()), nil
}

// catalogStore opens the session catalog once per invocation.
func (c *commandContext) catalogStore() (*catalog.Store, error) {
	c.catalogOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.catalogErr = err
			return
		}
		c.catalog, c.catalogErr = catalog.OpenFromConfig(cfg)
	})
	return c.catalog, c.catalogErr
}

// catalogOrWarn returns the catalog, or nil after logging why it is
// unavailable. Stage commands keep working without it.
func (c *commandContext) catalogOrWarn() *catalog.Store {
	store, err := c.catalogStore()
	if err != nil {
		logging.WarnWithContext(c.loggerValue(), "session catalog unavailable", "catalog_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run will not appear in `timelapsebox sessions`"),
		)
		return nil
	}
	return store
}

func (c *commandContext) close() {
	if c.catalog != nil {
		_ = c.catalog.Close()
		c.catalog = nil
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
