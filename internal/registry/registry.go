// Package registry provides the in-memory cache of emulated symbolic links.
//
// The registry maps virtual paths (as seen through the mounted namespace) to
// decoded link descriptors. It is a cache over the sentinel files on the
// backing store: an entry may be missing for a link that exists on disk, but
// an entry is only ever removed through the same operation that removes its
// sentinel. It is rebuilt lazily from sentinel files after a restart.
package registry

import (
	"nlinkfs/internal/logging"

	cache "github.com/patrickmn/go-cache"
)

var (
	logger = logging.GetLogger().WithPrefix("registry")
)

// LinkDescriptor describes one emulated symbolic link.
type LinkDescriptor struct {
	// VirtualPath is the full path of the link inside the mounted
	// namespace. It is the unique key within the registry.
	VirtualPath string

	// Target is the path the link resolves to, stored verbatim. It is
	// never validated or normalized.
	Target string
}

// Registry is the concurrent-safe mapping from virtual path to link
// descriptor. All operations are serialized by the store's single lock;
// no I/O ever happens while it is held.
type Registry struct {
	links *cache.Cache
}

// New creates an empty registry. One registry exists per mount session.
func New() *Registry {
	return &Registry{
		links: cache.New(cache.NoExpiration, 0),
	}
}

// Lookup returns the descriptor registered for the virtual path, if any.
// Read-only, no side effects.
func (r *Registry) Lookup(virtualPath string) (*LinkDescriptor, bool) {
	v, found := r.links.Get(virtualPath)
	if !found {
		return nil, false
	}
	desc, ok := v.(*LinkDescriptor)
	if !ok {
		return nil, false
	}
	logger.Trace("Lookup hit: %q -> %q", virtualPath, desc.Target)
	return desc, true
}

// InsertIfAbsent registers the descriptor unless an entry for the same
// virtual path already exists. First discovery wins, which keeps concurrent
// directory merges racing on the same sentinel from producing duplicates.
// It reports whether an insertion occurred.
func (r *Registry) InsertIfAbsent(desc *LinkDescriptor) bool {
	if err := r.links.Add(desc.VirtualPath, desc, cache.NoExpiration); err != nil {
		logger.Trace("Insert skipped, entry exists: %q", desc.VirtualPath)
		return false
	}
	logger.Debug("Registered link: %q -> %q", desc.VirtualPath, desc.Target)
	return true
}

// Remove deletes the entry for the virtual path if present; no-op otherwise.
func (r *Registry) Remove(virtualPath string) {
	logger.Debug("Removing link entry: %q", virtualPath)
	r.links.Delete(virtualPath)
}

// ClearAll releases every entry. Called once at filesystem teardown and safe
// to call on an already-empty registry.
func (r *Registry) ClearAll() {
	logger.Debug("Clearing %d link entries", r.links.ItemCount())
	r.links.Flush()
}

// Len returns the number of registered links.
func (r *Registry) Len() int {
	return r.links.ItemCount()
}
