package fs

import (
	"os"
	"strconv"
	"time"

	"nlinkfs/internal/logging"
	"nlinkfs/internal/registry"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
	"emperror.dev/errors"
)

var (
	fsLogger = logging.GetLogger().WithPrefix("fs")
)

// NLinkFS presents a backing directory through a mounted namespace in which
// every sentinel file appears as a real POSIX symlink. All other operations
// pass through to the backing store.
type NLinkFS struct {
	sourceDir string             // Root directory of the backing store
	paths     *PathTranslator    // Virtual -> real path translation
	links     *registry.Registry // Cache of discovered/created emulated links
	conn      *fuse.Conn         // FUSE connection
	done      chan struct{}      // Closed when the serve loop exits
	uid       uint32             // User ID reported for synthesized attributes
	gid       uint32             // Group ID reported for synthesized attributes
}

// NewNLinkFS creates a new filesystem session over the given backing
// directory. The registry starts empty and fills lazily as directories are
// listed and links are created.
func NewNLinkFS(sourceDir string) (*NLinkFS, error) {
	fsLogger.Info("Creating new filesystem session")
	fsLogger.Debug("Backing directory: %s", sourceDir)

	paths := NewPathTranslator(sourceDir)

	if _, err := os.ReadDir(paths.SourceRoot()); err != nil {
		return nil, errors.Wrap(err, "backing directory not readable")
	}

	// Get UID/GID from environment if set
	uid := safeIntToUint32(os.Getuid())
	gid := safeIntToUint32(os.Getgid())

	if puidStr := os.Getenv("PUID"); puidStr != "" {
		if puid, err := strconv.ParseUint(puidStr, 10, 32); err == nil {
			uid = uint32(puid)
			fsLogger.Debug("Using PUID from environment: %d", uid)
		}
	}
	if pgidStr := os.Getenv("PGID"); pgidStr != "" {
		if pgid, err := strconv.ParseUint(pgidStr, 10, 32); err == nil {
			gid = uint32(pgid)
			fsLogger.Debug("Using PGID from environment: %d", gid)
		}
	}

	nfs := &NLinkFS{
		sourceDir: paths.SourceRoot(),
		paths:     paths,
		links:     registry.New(),
		uid:       uid,
		gid:       gid,
	}

	fsLogger.Info("Filesystem session created successfully")
	return nfs, nil
}

// Root implements the fusefs.FS interface, returning the root directory node.
func (nfs *NLinkFS) Root() (fusefs.Node, error) {
	fsLogger.Trace("Getting root directory node")
	return &Dir{
		fs:   nfs,
		path: NewVirtualPath("/"),
	}, nil
}

// Destroy implements the fusefs.FSDestroyer interface. The serve loop calls
// it once at unmount, after all other operations have completed.
func (nfs *NLinkFS) Destroy() {
	fsLogger.Info("Tearing down, releasing %d registered links", nfs.links.Len())
	nfs.links.ClearAll()
}

// resolveLink decides whether a virtual path refers to an emulated link.
// The registry is the fast path; on a miss the on-disk sentinel is probed
// directly and registered when valid, so operations issued before the parent
// directory was ever listed still see true links. The re-lookup after a lost
// insert race returns whichever descriptor won.
func (nfs *NLinkFS) resolveLink(vp *VirtualPath) (*registry.LinkDescriptor, bool) {
	if desc, ok := nfs.links.Lookup(vp.String()); ok {
		return desc, true
	}

	target, ok := readSentinel(nfs.paths.SentinelPath(vp))
	if !ok {
		return nil, false
	}

	desc := &registry.LinkDescriptor{VirtualPath: vp.String(), Target: target}
	if !nfs.links.InsertIfAbsent(desc) {
		if winner, ok := nfs.links.Lookup(vp.String()); ok {
			return winner, true
		}
	}
	return desc, true
}

func waitForMount(mountPoint string) error {
	for i := 0; i < 30; i++ {
		info, err := os.Stat(mountPoint)
		if err == nil && info.IsDir() {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return errors.New("mount point not available after 3 seconds")
}

// Mount implements filesystem mounting.
func (nfs *NLinkFS) Mount(mountPoint string, opts ...fuse.MountOption) error {
	fsLogger.Info("Mounting filesystem")
	fsLogger.Debug("Mount point: %s", mountPoint)
	fsLogger.Debug("Backing directory: %s", nfs.sourceDir)
	fsLogger.Debug("UID: %d, GID: %d", nfs.uid, nfs.gid)

	mountOpts := append([]fuse.MountOption{
		fuse.FSName("nlinkfs"),
		fuse.Subtype("nlinkfs"),
	}, opts...)

	fsLogger.Debug("Mounting with options: %+v", mountOpts)

	c, err := fuse.Mount(mountPoint, mountOpts...)
	if err != nil {
		return errors.Wrap(err, "mount failed")
	}
	nfs.conn = c
	nfs.done = make(chan struct{})

	go func() {
		defer close(nfs.done)
		if err := fusefs.Serve(c, nfs); err != nil {
			fsLogger.Error("FUSE server error: %v", err)
		}
		fsLogger.Debug("FUSE server stopped")
	}()

	// Wait for mount to be ready
	if err := waitForMount(mountPoint); err != nil {
		c.Close()
		fsLogger.Error("Mount point not ready: %v", err)
		return errors.Wrap(err, "mount point failed to initialize")
	}

	fsLogger.Info("Filesystem mounted successfully")
	return nil
}

// Wait blocks until the serve loop has exited and teardown has run.
func (nfs *NLinkFS) Wait() {
	if nfs.done != nil {
		<-nfs.done
	}
}

// Unmount cleanly unmounts the filesystem.
func (nfs *NLinkFS) Unmount(mountPoint string) error {
	fsLogger.Info("Unmounting filesystem from: %s", mountPoint)
	if nfs.conn == nil {
		return nil
	}
	if err := fuse.Unmount(mountPoint); err != nil {
		fsLogger.Error("Unmount failed: %v", err)
		return err
	}
	fsLogger.Info("Unmount completed successfully")
	return nil
}
