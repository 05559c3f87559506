package native

import (
	"log/slog"
	"sync"

	"github.com/nickyhof/flintdb/core"
	"github.com/nickyhof/flintdb/ps"
)

// S3Options configures access to s3:// generic files. Empty fields fall
// back to the AWS default credential chain.
type S3Options struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Defaults apply to tables whose descriptor leaves an option unset.
type Defaults struct {
	Identity   core.Identity
	Cache      int
	Compressor string
}

type runtime struct {
	mu         sync.Mutex
	generation uint64
	memory     map[string]*ps.Persistence
	open       map[uint64]func()
	nextID     uint64
	logger     *slog.Logger
	defaults   Defaults
	s3         S3Options
}

var rt = &runtime{
	generation: 1,
	memory:     make(map[string]*ps.Persistence),
	open:       make(map[uint64]func()),
	logger:     slog.Default(),
	defaults:   Defaults{Identity: core.DefaultIdentity, Cache: 1024},
}

func SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	rt.mu.Lock()
	rt.logger = logger
	rt.mu.Unlock()
}

func SetDefaults(defaults Defaults) {
	if defaults.Identity.Name == "" {
		defaults.Identity = core.DefaultIdentity
	}
	rt.mu.Lock()
	rt.defaults = defaults
	rt.mu.Unlock()
}

func SetS3(opts S3Options) {
	rt.mu.Lock()
	rt.s3 = opts
	rt.mu.Unlock()
}

func (r *runtime) log() *slog.Logger {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.logger
}

func (r *runtime) settings() (Defaults, S3Options) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.defaults, r.s3
}

func (r *runtime) current() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

// track registers the release function of an open table or file so that
// Cleanup can close it.
func (r *runtime) track(release func()) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.open[r.nextID] = release
	return r.nextID
}

func (r *runtime) untrack(id uint64) {
	r.mu.Lock()
	delete(r.open, id)
	r.mu.Unlock()
}

// memoryStore returns the in-memory repository of a STORAGE=memory table,
// creating it when create is set.
func (r *runtime) memoryStore(name string, create bool) (*ps.Persistence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if store, ok := r.memory[name]; ok {
		return store, nil
	}
	if !create {
		return nil, ps.ErrRepoNotFound
	}
	store, err := ps.NewMemoryPersistence()
	if err != nil {
		return nil, err
	}
	r.memory[name] = store
	return store, nil
}

func (r *runtime) dropMemory(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.memory[name]; !ok {
		return false
	}
	delete(r.memory, name)
	return true
}

// Cleanup closes every open table and file, forgets memory tables and
// invalidates all outstanding handles. It may be called any number of
// times.
func Cleanup(e **Fault) {
	rt.mu.Lock()
	releases := make([]func(), 0, len(rt.open))
	for _, release := range rt.open {
		releases = append(releases, release)
	}
	rt.open = make(map[uint64]func())
	tables := len(rt.memory)
	rt.memory = make(map[string]*ps.Persistence)
	rt.generation++
	logger := rt.logger
	rt.mu.Unlock()

	for _, release := range releases {
		release()
	}
	logger.Info("engine cleaned up", "released", len(releases), "memory_tables", tables)
}

// handle carries the liveness of a native object. A handle dies when it is
// freed, when its producer revokes it, or when Cleanup runs.
type handle struct {
	gen     uint64
	freed   bool
	revoked bool
}

func newHandle() handle {
	return handle{gen: rt.current()}
}

func (h *handle) alive() bool {
	return !h.freed && !h.revoked && h.gen == rt.current()
}

func (h *handle) valid(e **Fault, what string) bool {
	if h == nil {
		throw(e, InvalidHandle, "%s is NULL", what)
		return false
	}
	if !h.alive() {
		throw(e, InvalidHandle, "%s handle is no longer valid", what)
		return false
	}
	return true
}
