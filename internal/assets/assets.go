// Package assets loads skeletons, clip libraries and controller definitions
// from an asset tree and caches them.
package assets

import (
	"io/fs"
	"os"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/creaturerig/internal/config"
	"github.com/Faultbox/creaturerig/internal/controller"
	"github.com/Faultbox/creaturerig/pkg/anim"
)

// Manager handles asset loading from a file tree.
// Paths are slash-separated and relative to the tree root.
type Manager struct {
	fsys  fs.FS
	cache *Cache
	log   *zap.Logger

	mu        sync.Mutex
	skeletons map[string]*anim.Skeleton
}

// NewManager creates an asset manager over fsys. A nil logger discards output.
func NewManager(fsys fs.FS, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		fsys:      fsys,
		cache:     NewCache(),
		log:       log,
		skeletons: make(map[string]*anim.Skeleton),
	}
}

// NewDirManager creates an asset manager rooted at a directory on disk.
func NewDirManager(dir string, log *zap.Logger) *Manager {
	return NewManager(os.DirFS(dir), log)
}

// Load reads a file, serving repeated reads from the cache.
func (m *Manager) Load(path string) ([]byte, error) {
	if data, ok := m.cache.Get(path); ok {
		return data, nil
	}

	data, err := fs.ReadFile(m.fsys, path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	m.cache.Set(path, data)
	return data, nil
}

// LoadSkeleton loads and builds the skeleton at path. The result is a
// prototype shared by all callers: clone it before animating.
func (m *Manager) LoadSkeleton(path string) (*anim.Skeleton, error) {
	m.mu.Lock()
	s, ok := m.skeletons[path]
	m.mu.Unlock()
	if ok {
		return s, nil
	}

	data, err := m.Load(path)
	if err != nil {
		return nil, err
	}
	s, err = ParseSkeleton(data)
	if err != nil {
		return nil, errors.Wrapf(err, "skeleton %s", path)
	}

	m.mu.Lock()
	m.skeletons[path] = s
	m.mu.Unlock()

	m.log.Debug("loaded skeleton", zap.String("path", path), zap.String("name", s.Name()), zap.Int("bones", s.Len()))
	return s, nil
}

// LoadClips loads every clip in the file at path.
func (m *Manager) LoadClips(path string) ([]*anim.Clip, error) {
	data, err := m.Load(path)
	if err != nil {
		return nil, err
	}
	clips, err := ParseClips(data)
	if err != nil {
		return nil, errors.Wrapf(err, "clips %s", path)
	}
	m.log.Debug("loaded clips", zap.String("path", path), zap.Int("count", len(clips)))
	return clips, nil
}

// LoadLibrary loads the clip files at paths into one library.
func (m *Manager) LoadLibrary(paths ...string) (*anim.Library, error) {
	var all []*anim.Clip
	for _, p := range paths {
		clips, err := m.LoadClips(p)
		if err != nil {
			return nil, err
		}
		all = append(all, clips...)
	}
	lib, err := anim.NewLibrary(all...)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return lib, nil
}

// LoadController loads the controller definition at path.
func (m *Manager) LoadController(path string) (*controller.Definition, error) {
	data, err := m.Load(path)
	if err != nil {
		return nil, err
	}
	def, err := controller.Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "controller %s", path)
	}
	return def, nil
}

// Glob expands patterns against the tree, sorted and without duplicates.
func (m *Manager) Glob(patterns ...string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, p := range patterns {
		matches, err := fs.Glob(m.fsys, p)
		if err != nil {
			return nil, errors.Wrapf(err, "pattern %q", p)
		}
		for _, match := range matches {
			if !seen[match] {
				seen[match] = true
				out = append(out, match)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// Catalog is everything loaded from an asset tree.
type Catalog struct {
	Skeletons   map[string]*anim.Skeleton
	Library     *anim.Library
	Controllers map[string]*controller.Definition
}

// SkeletonNames returns skeleton names in sorted order.
func (c *Catalog) SkeletonNames() []string {
	names := make([]string, 0, len(c.Skeletons))
	for name := range c.Skeletons {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadCatalog loads every asset matched by cfg's patterns. Controllers are
// compiled against the library so missing clips fail here, not mid-frame.
func (m *Manager) LoadCatalog(cfg config.AssetsConfig) (*Catalog, error) {
	cat := &Catalog{
		Skeletons:   make(map[string]*anim.Skeleton),
		Controllers: make(map[string]*controller.Definition),
	}

	paths, err := m.Glob(cfg.Skeletons...)
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		s, err := m.LoadSkeleton(p)
		if err != nil {
			return nil, err
		}
		if _, dup := cat.Skeletons[s.Name()]; dup {
			return nil, errors.Errorf("skeleton %q defined twice (%s)", s.Name(), p)
		}
		cat.Skeletons[s.Name()] = s
	}

	paths, err = m.Glob(cfg.Clips...)
	if err != nil {
		return nil, err
	}
	if cat.Library, err = m.LoadLibrary(paths...); err != nil {
		return nil, err
	}

	paths, err = m.Glob(cfg.Controllers...)
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		def, err := m.LoadController(p)
		if err != nil {
			return nil, err
		}
		if _, err := def.Behavior(cat.Library); err != nil {
			return nil, errors.Wrapf(err, "controller %s", p)
		}
		if def.Skeleton != "" {
			if _, ok := cat.Skeletons[def.Skeleton]; !ok {
				return nil, errors.Errorf("controller %s: unknown skeleton %q", p, def.Skeleton)
			}
		}
		cat.Controllers[def.Name] = def
	}

	hits, misses := m.cache.Stats()
	m.log.Info("asset catalog loaded",
		zap.Int("skeletons", len(cat.Skeletons)),
		zap.Int("clips", cat.Library.Len()),
		zap.Int("controllers", len(cat.Controllers)),
		zap.Int("cache_hits", hits),
		zap.Int("cache_misses", misses),
	)
	return cat, nil
}

// Close drops all cached data.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skeletons = make(map[string]*anim.Skeleton)
	m.cache.Clear()
}

// Cache is a simple in-memory cache for raw asset bytes.
type Cache struct {
	data map[string][]byte
	mu   sync.Mutex

	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
