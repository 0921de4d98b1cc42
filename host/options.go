package host

import (
	"time"

	"go.uber.org/zap"
)

// Option configures a single Run.
type Option func(*runConfig)

type runConfig struct {
	timeout time.Duration
	entry   string
}

func defaultRunConfig() runConfig {
	return runConfig{
		timeout: 30 * time.Second,
		entry:   "main",
	}
}

// WithTimeout bounds the invocation. Cancellation is observed at function
// call boundaries; the expired call is reported as a trap. Zero disables
// the timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *runConfig) {
		c.timeout = d
	}
}

// WithEntryPoint selects the export to invoke. Default is "main".
func WithEntryPoint(name string) Option {
	return func(c *runConfig) {
		c.entry = name
	}
}

// HostOption configures the Host at creation time.
type HostOption func(*hostConfig)

type hostConfig struct {
	diskCache        bool
	cacheDir         string
	interpreter      bool
	memoryLimitPages uint32 // 0 = wazero default
	moduleCacheSize  int
	logger           *zap.Logger
}

func defaultHostConfig() hostConfig {
	return hostConfig{
		moduleCacheSize: 128,
		logger:          zap.NewNop(),
	}
}

// WithDiskCache persists compiled machine code across processes.
// Optionally provide a directory; otherwise uses ~/.cache/wexpr or
// XDG_CACHE_HOME/wexpr.
func WithDiskCache(dir ...string) HostOption {
	return func(c *hostConfig) {
		c.diskCache = true
		if len(dir) > 0 && dir[0] != "" {
			c.cacheDir = dir[0]
		}
	}
}

// WithInterpreter runs modules on wazero's interpreter instead of the
// compiler.
func WithInterpreter() HostOption {
	return func(c *hostConfig) {
		c.interpreter = true
	}
}

// WithMemoryLimit caps linear memory per instance, in 64KB pages.
func WithMemoryLimit(pages uint32) HostOption {
	return func(c *hostConfig) {
		c.memoryLimitPages = pages
	}
}

// WithModuleCacheSize bounds how many validated modules the Host keeps.
// The least recently used module is evicted first. Default is 128.
func WithModuleCacheSize(n int) HostOption {
	return func(c *hostConfig) {
		if n > 0 {
			c.moduleCacheSize = n
		}
	}
}

// WithLogger sets the logger for stage transitions. Default is a no-op.
func WithLogger(l *zap.Logger) HostOption {
	return func(c *hostConfig) {
		if l != nil {
			c.logger = l
		}
	}
}
