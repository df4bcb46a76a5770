package fs

import (
	"path/filepath"
	"strings"

	"nlinkfs/internal/logging"
)

var (
	pathLogger = logging.GetLogger().WithPrefix("path")
)

// VirtualPath represents a path in the mounted namespace.
// All paths are cleaned and absolute.
type VirtualPath struct {
	path string
}

// NewVirtualPath creates a new VirtualPath instance.
// It cleans the path and ensures it's absolute.
func NewVirtualPath(path string) *VirtualPath {
	cleaned := filepath.Clean(path)
	if !strings.HasPrefix(cleaned, "/") {
		cleaned = "/" + cleaned
	}
	pathLogger.Trace("Creating new virtual path: %q -> %q", path, cleaned)
	return &VirtualPath{path: cleaned}
}

// String returns the string representation of the path
func (vp *VirtualPath) String() string {
	return vp.path
}

// Parent returns a VirtualPath representing the parent directory
func (vp *VirtualPath) Parent() *VirtualPath {
	return NewVirtualPath(filepath.Dir(vp.path))
}

// Base returns the last element of the path
func (vp *VirtualPath) Base() string {
	return filepath.Base(vp.path)
}

// Child returns the VirtualPath for a named entry inside this path.
func (vp *VirtualPath) Child(name string) *VirtualPath {
	return NewVirtualPath(vp.path + "/" + name)
}

// IsRoot returns true if this is the root virtual path "/"
func (vp *VirtualPath) IsRoot() bool {
	return vp.path == "/"
}

// PathTranslator maps virtual paths to their real location on the backing
// store by prefix concatenation. It is stateless and never fails.
type PathTranslator struct {
	sourceRoot string
}

// NewPathTranslator creates a translator rooted at the backing-store
// directory. A trailing path separator on the root is stripped so that
// concatenation with an absolute virtual path yields a clean real path.
func NewPathTranslator(sourceRoot string) *PathTranslator {
	trimmed := strings.TrimRight(sourceRoot, "/")
	pathLogger.Debug("Creating path translator for root: %q", trimmed)
	return &PathTranslator{sourceRoot: trimmed}
}

// SourceRoot returns the backing-store root directory.
func (pt *PathTranslator) SourceRoot() string {
	return pt.sourceRoot
}

// RealPath returns the backing-store path for a virtual path.
func (pt *PathTranslator) RealPath(vp *VirtualPath) string {
	real := pt.sourceRoot + vp.String()
	pathLogger.Trace("Translating path: %q -> %q", vp.String(), real)
	return real
}

// SentinelPath returns the backing-store path of the sentinel file that
// would represent an emulated link at the given virtual path.
func (pt *PathTranslator) SentinelPath(vp *VirtualPath) string {
	return pt.RealPath(vp) + sentinelSuffix
}
