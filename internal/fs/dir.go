package fs

import (
	"context"
	"os"
	"syscall"
	"time"

	"nlinkfs/internal/logging"
	"nlinkfs/internal/registry"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
	"golang.org/x/sys/unix"
)

var (
	dirLogger = logging.GetLogger().WithPrefix("dir")
)

// Dir represents a directory in the mounted namespace. Every directory maps
// one-to-one onto a real directory on the backing store.
type Dir struct {
	fs   *NLinkFS
	path *VirtualPath
}

// Attr implements the Node interface, returning the real directory's
// attributes.
func (d *Dir) Attr(_ context.Context, a *fuse.Attr) error {
	dirLogger.Trace("Getting attributes for directory: %q", d.path.String())

	info, err := os.Lstat(d.fs.paths.RealPath(d.path))
	if err != nil {
		dirLogger.Warn("Failed to stat directory %q: %v", d.path.String(), err)
		return ToFuseError(err)
	}

	copyFileInfo(info, a, d.fs.uid, d.fs.gid)
	return nil
}

// Lookup implements the NodeStringLookuper interface, finding a child node.
// Emulated links take precedence over the raw backing-store view: a child
// that resolves through the registry (or its on-disk sentinel) is returned
// as a symlink node and its sentinel file stays hidden.
func (d *Dir) Lookup(_ context.Context, name string) (fusefs.Node, error) {
	dirLogger.Debug("Looking up %q in directory %q", name, d.path.String())
	childPath := d.path.Child(name)

	if desc, ok := d.fs.resolveLink(childPath); ok {
		dirLogger.Debug("Found emulated link: %q -> %q", childPath.String(), desc.Target)
		return &Symlink{fs: d.fs, path: childPath}, nil
	}

	info, err := os.Lstat(d.fs.paths.RealPath(childPath))
	if err != nil {
		dirLogger.Trace("Path not found: %q", childPath.String())
		return nil, ToFuseError(err)
	}

	if info.IsDir() {
		return &Dir{fs: d.fs, path: childPath}, nil
	}
	return &File{fs: d.fs, path: childPath}, nil
}

// ReadDirAll implements the HandleReadDirAller interface. The listing is the
// merged view produced by the merge engine: sentinels appear once under
// their stripped names, everything else verbatim.
func (d *Dir) ReadDirAll(_ context.Context) ([]fuse.Dirent, error) {
	dirLogger.Debug("Reading directory contents: %q", d.path.String())

	entries := []fuse.Dirent{
		{Name: ".", Type: fuse.DT_Dir},
		{Name: "..", Type: fuse.DT_Dir},
	}

	err := d.fs.listDirectory(d.path, func(name string, typ fuse.DirentType) error {
		entries = append(entries, fuse.Dirent{Name: name, Type: typ})
		return nil
	})
	if err != nil {
		return nil, ToFuseError(err)
	}

	dirLogger.Debug("Directory %q contains %d entries", d.path.String(), len(entries))
	return entries, nil
}

// Mkdir implements the NodeMkdirer interface, creating a real directory on
// the backing store.
func (d *Dir) Mkdir(_ context.Context, req *fuse.MkdirRequest) (fusefs.Node, error) {
	dirLogger.Info("Creating new directory %q in %q", req.Name, d.path.String())

	newPath := d.path.Child(req.Name)
	if err := os.Mkdir(d.fs.paths.RealPath(newPath), req.Mode.Perm()); err != nil {
		dirLogger.Error("Failed to create directory: %v", err)
		return nil, ToFuseError(err)
	}

	return &Dir{fs: d.fs, path: newPath}, nil
}

// Create implements the NodeCreater interface, creating and opening a
// regular file on the backing store.
func (d *Dir) Create(_ context.Context, req *fuse.CreateRequest, _ *fuse.CreateResponse) (fusefs.Node, fusefs.Handle, error) {
	dirLogger.Debug("Creating file %q in %q", req.Name, d.path.String())

	newPath := d.path.Child(req.Name)
	f, err := os.OpenFile(d.fs.paths.RealPath(newPath),
		int(req.Flags)|os.O_CREATE, req.Mode.Perm())
	if err != nil {
		dirLogger.Error("Failed to create file: %v", err)
		return nil, nil, ToFuseError(err)
	}

	node := &File{fs: d.fs, path: newPath}
	return node, &FileHandle{file: f, path: newPath.String()}, nil
}

// Mknod implements the NodeMknoder interface, creating a special file on the
// backing store. Regular files are created with an exclusive open, FIFOs via
// mkfifo; everything else goes through mknod directly.
func (d *Dir) Mknod(_ context.Context, req *fuse.MknodRequest) (fusefs.Node, error) {
	dirLogger.Debug("Mknod %q in %q (mode %v)", req.Name, d.path.String(), req.Mode)

	newPath := d.path.Child(req.Name)
	realPath := d.fs.paths.RealPath(newPath)

	var err error
	switch {
	case req.Mode.IsRegular():
		var f *os.File
		f, err = os.OpenFile(realPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, req.Mode.Perm())
		if err == nil {
			err = f.Close()
		}
	case req.Mode&os.ModeNamedPipe != 0:
		err = unix.Mkfifo(realPath, uint32(req.Mode.Perm()))
	default:
		err = unix.Mknod(realPath, unixMode(req.Mode), int(req.Rdev))
	}
	if err != nil {
		dirLogger.Error("Mknod failed for %q: %v", newPath.String(), err)
		return nil, ToFuseError(err)
	}

	return &File{fs: d.fs, path: newPath}, nil
}

// Symlink implements the NodeSymlinker interface. The link is materialized
// on the backing store as a sentinel file at the destination's sentinel
// path; the mounted namespace never shows the sentinel itself.
func (d *Dir) Symlink(_ context.Context, req *fuse.SymlinkRequest) (fusefs.Node, error) {
	dirLogger.Info("Creating link %q -> %q in %q", req.NewName, req.Target, d.path.String())

	newPath := d.path.Child(req.NewName)
	sentinelPath := d.fs.paths.SentinelPath(newPath)

	data := encodeSentinel(req.Target)
	f, err := os.OpenFile(sentinelPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		dirLogger.Error("Failed to create sentinel file: %v", err)
		return nil, ToFuseError(err)
	}
	n, err := f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil || n < len(data) {
		// A short sentinel must not linger: a partial write that kept
		// the magic header would decode to a truncated target. The
		// registry stays untouched.
		dirLogger.Error("Short write on sentinel %q (%d/%d bytes): %v",
			sentinelPath, n, len(data), err)
		os.Remove(sentinelPath)
		return nil, ToFuseError(NewFSError(OpSymlink, newPath.String(), ErrShortWrite))
	}

	// An overwritten sentinel must not keep its old target under
	// first-wins insert semantics.
	d.fs.links.Remove(newPath.String())
	d.fs.links.InsertIfAbsent(&registry.LinkDescriptor{
		VirtualPath: newPath.String(),
		Target:      req.Target,
	})

	return &Symlink{fs: d.fs, path: newPath}, nil
}

// Remove implements the NodeRemover interface. Removing an emulated link
// removes its registry entry first and then deletes the sentinel file;
// everything else is removed from the backing store directly.
func (d *Dir) Remove(_ context.Context, req *fuse.RemoveRequest) error {
	dirLogger.Info("Removing %q from directory %q (isDir=%v)",
		req.Name, d.path.String(), req.Dir)

	childPath := d.path.Child(req.Name)

	if !req.Dir {
		if _, ok := d.fs.resolveLink(childPath); ok {
			dirLogger.Debug("Removing emulated link: %q", childPath.String())
			d.fs.links.Remove(childPath.String())
			if err := os.Remove(d.fs.paths.SentinelPath(childPath)); err != nil {
				dirLogger.Error("Failed to remove sentinel: %v", err)
				return ToFuseError(err)
			}
			return nil
		}
	}

	if err := os.Remove(d.fs.paths.RealPath(childPath)); err != nil {
		dirLogger.Warn("Failed to remove %q: %v", childPath.String(), err)
		return ToFuseError(err)
	}
	return nil
}

// Rename implements the NodeRenamer interface. Renaming an emulated link
// moves its sentinel file between sentinel paths and re-keys the registry
// entry under the same target.
func (d *Dir) Rename(_ context.Context, req *fuse.RenameRequest, newDir fusefs.Node) error {
	dirLogger.Info("Renaming %q to %q", req.OldName, req.NewName)

	destDir, ok := newDir.(*Dir)
	if !ok {
		dirLogger.Error("Rename target is not a directory node")
		return syscall.EINVAL
	}

	oldPath := d.path.Child(req.OldName)
	newPath := destDir.path.Child(req.NewName)

	dirLogger.Debug("Rename operation: %q -> %q", oldPath.String(), newPath.String())

	if desc, isLink := d.fs.resolveLink(oldPath); isLink {
		oldSentinel := d.fs.paths.SentinelPath(oldPath)
		newSentinel := d.fs.paths.SentinelPath(newPath)

		if err := os.Rename(oldSentinel, newSentinel); err != nil {
			dirLogger.Error("Failed to move sentinel: %v", err)
			return ToFuseError(err)
		}

		d.fs.links.Remove(oldPath.String())
		d.fs.links.Remove(newPath.String())
		d.fs.links.InsertIfAbsent(&registry.LinkDescriptor{
			VirtualPath: newPath.String(),
			Target:      desc.Target,
		})
		return nil
	}

	if err := os.Rename(d.fs.paths.RealPath(oldPath), d.fs.paths.RealPath(newPath)); err != nil {
		dirLogger.Error("Rename failed: %v", err)
		return ToFuseError(err)
	}
	return nil
}

// Setattr implements the NodeSetattrer interface for directories,
// passing attribute changes through to the real directory.
func (d *Dir) Setattr(_ context.Context, req *fuse.SetattrRequest, _ *fuse.SetattrResponse) error {
	realPath := d.fs.paths.RealPath(d.path)
	dirLogger.Debug("Setting attributes on directory %q (valid=%v)", d.path.String(), req.Valid)

	if req.Valid.Mode() {
		if err := os.Chmod(realPath, req.Mode.Perm()); err != nil {
			return ToFuseError(err)
		}
	}
	if req.Valid.Uid() || req.Valid.Gid() {
		uid, gid := chownIDs(req)
		if err := os.Chown(realPath, uid, gid); err != nil {
			return ToFuseError(err)
		}
	}
	if req.Valid.Atime() || req.Valid.Mtime() {
		atime, mtime := chtimes(req, time.Now())
		if err := os.Chtimes(realPath, atime, mtime); err != nil {
			return ToFuseError(err)
		}
	}
	return nil
}
