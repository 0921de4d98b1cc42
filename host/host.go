package host

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"
)

var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6D}

// Host is an explicit engine context. It validates module binaries, caches
// the results and creates instances. Every Instance gets its own wazero
// runtime, so instances never share memory, locals or host modules.
// Compiled code is shared through one compilation cache.
//
// Validated modules are kept in a bounded LRU keyed by digest. Evicted
// modules stay usable; they are validated again on their next Load.
//
// Multiple Hosts may coexist; they share no state.
type Host struct {
	runtime   wazero.Runtime // validation only; nothing is instantiated here
	rtConfig  wazero.RuntimeConfig
	cache     wazero.CompilationCache
	modules   *lru.Cache[string, *Module]
	instances map[*Instance]struct{}
	logger    *zap.Logger
	mu        sync.RWMutex
	closed    bool
}

// New creates a Host.
func New(opts ...HostOption) (*Host, error) {
	cfg := defaultHostConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	var cache wazero.CompilationCache
	if cfg.diskCache {
		cacheDir := cfg.cacheDir
		if cacheDir == "" {
			cacheDir = defaultCacheDir()
		}
		var err error
		cache, err = wazero.NewCompilationCacheWithDir(cacheDir)
		if err != nil {
			return nil, fmt.Errorf("create disk cache: %w", err)
		}
	} else {
		cache = wazero.NewCompilationCache()
	}

	rtConfig := wazero.NewRuntimeConfig()
	if cfg.interpreter {
		rtConfig = wazero.NewRuntimeConfigInterpreter()
	}
	rtConfig = rtConfig.
		WithCloseOnContextDone(true).
		WithCompilationCache(cache)
	if cfg.memoryLimitPages > 0 {
		rtConfig = rtConfig.WithMemoryLimitPages(cfg.memoryLimitPages)
	}

	modules, err := lru.NewWithEvict(cfg.moduleCacheSize, func(_ string, m *Module) {
		m.compiled.Close(context.Background())
	})
	if err != nil {
		cache.Close(context.Background())
		return nil, fmt.Errorf("create module cache: %w", err)
	}

	ctx := context.Background()
	h := &Host{
		runtime:   wazero.NewRuntimeWithConfig(ctx, rtConfig),
		rtConfig:  rtConfig,
		cache:     cache,
		modules:   modules,
		instances: make(map[*Instance]struct{}),
		logger:    cfg.logger,
	}
	return h, nil
}

// Load validates bin and returns it as a Module (Unloaded → Validated).
// Identical binaries are validated once while they stay cached.
func (h *Host) Load(ctx context.Context, bin []byte) (*Module, error) {
	digest := digestOf(bin)

	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if m, ok := h.modules.Get(digest); ok {
		return m, nil
	}

	if len(bin) < 8 || !bytes.Equal(bin[:4], wasmMagic) {
		h.logger.Debug("rejected module", zap.String("stage", StateUnloaded.String()), zap.Int("bytes", len(bin)))
		return nil, fmt.Errorf("%w: not a WebAssembly binary", ErrInvalidModule)
	}

	compiled, err := h.runtime.CompileModule(ctx, bin)
	if err != nil {
		h.logger.Debug("rejected module", zap.String("stage", StateUnloaded.String()), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidModule, err)
	}
	m, err := newModule(h, bytes.Clone(bin), digest, compiled)
	if err != nil {
		compiled.Close(ctx)
		return nil, fmt.Errorf("%w: %v", ErrInvalidModule, err)
	}

	// Compilation ran unlocked; keep whichever module was cached first.
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		compiled.Close(ctx)
		return nil, ErrClosed
	}
	if prev, ok := h.modules.Get(digest); ok {
		compiled.Close(ctx)
		return prev, nil
	}
	h.modules.Add(digest, m)

	h.logger.Debug("module validated",
		zap.String("stage", StateValidated.String()),
		zap.String("digest", digest[:12]),
		zap.Int("bytes", len(bin)),
		zap.Int("imports", len(m.imports)),
	)
	return m, nil
}

// Cached reports how many validated modules the Host currently holds.
func (h *Host) Cached() int {
	return h.modules.Len()
}

// track registers a live instance so Close can release it.
func (h *Host) track(inst *Instance) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	h.instances[inst] = struct{}{}
	return nil
}

func (h *Host) untrack(inst *Instance) {
	h.mu.Lock()
	delete(h.instances, inst)
	h.mu.Unlock()
}

// Close releases all instances, validated modules and the compilation cache.
func (h *Host) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	instances := make([]*Instance, 0, len(h.instances))
	for inst := range h.instances {
		instances = append(instances, inst)
	}
	h.mu.Unlock()

	ctx := context.Background()

	var errs []error
	for _, inst := range instances {
		if err := inst.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	h.modules.Purge()
	if err := h.runtime.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := h.cache.Close(ctx); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func digestOf(bin []byte) string {
	sum := sha256.Sum256(bin)
	return hex.EncodeToString(sum[:])
}

func defaultCacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "wexpr")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "wexpr")
	}
	return filepath.Join(os.TempDir(), "wexpr-cache")
}
