package fs

import (
	"context"
	"os"
	"time"

	"nlinkfs/internal/logging"

	"bazil.org/fuse"
	"golang.org/x/sys/unix"
)

var (
	linkLogger = logging.GetLogger().WithPrefix("symlink")
)

// Symlink represents an emulated symbolic link: a node whose backing storage
// is the sentinel file at the virtual path's sentinel location. The mounted
// namespace sees a real POSIX symlink.
type Symlink struct {
	fs   *NLinkFS
	path *VirtualPath
}

// Attr implements the Node interface. The sentinel file provides ownership
// and timestamps, but the reported type is forced to symbolic link, the size
// to the target's length, and the permission bits wide open, since symlink
// permissions are semantically ignored.
func (s *Symlink) Attr(_ context.Context, a *fuse.Attr) error {
	linkLogger.Trace("Getting attributes for link: %q", s.path.String())

	desc, ok := s.fs.resolveLink(s.path)
	if !ok {
		linkLogger.Warn("Link vanished: %q", s.path.String())
		return ToFuseError(NewFSError(OpGetattr, s.path.String(), ErrNotALink))
	}

	info, err := os.Lstat(s.fs.paths.SentinelPath(s.path))
	if err != nil {
		linkLogger.Warn("Failed to stat sentinel for %q: %v", s.path.String(), err)
		return ToFuseError(err)
	}

	copyFileInfo(info, a, s.fs.uid, s.fs.gid)
	a.Mode = os.ModeSymlink | 0777
	a.Size = uint64(len(desc.Target))
	a.Blocks = safeInt64ToUint64((int64(len(desc.Target)) + 511) / 512)

	linkLogger.Trace("Link attributes: target=%q size=%d", desc.Target, a.Size)
	return nil
}

// Readlink implements the NodeReadlinker interface, returning the stored
// target verbatim, bounded at the system path limit the way a readlink
// buffer would bound it.
func (s *Symlink) Readlink(_ context.Context, _ *fuse.ReadlinkRequest) (string, error) {
	linkLogger.Debug("Reading link target for: %q", s.path.String())

	desc, ok := s.fs.resolveLink(s.path)
	if !ok {
		linkLogger.Warn("Readlink on non-link path: %q", s.path.String())
		return "", ToFuseError(NewFSError(OpReadlink, s.path.String(), ErrNotALink))
	}

	return truncateTarget(desc.Target, unix.PathMax), nil
}

// Setattr implements the NodeSetattrer interface for emulated links.
// Ownership and timestamp changes land on the sentinel file, never on the
// target; mode changes are accepted and ignored, as for real symlinks.
func (s *Symlink) Setattr(_ context.Context, req *fuse.SetattrRequest, _ *fuse.SetattrResponse) error {
	sentinelPath := s.fs.paths.SentinelPath(s.path)
	linkLogger.Debug("Setting attributes on link %q (valid=%v)", s.path.String(), req.Valid)

	if req.Valid.Uid() || req.Valid.Gid() {
		uid, gid := chownIDs(req)
		if err := os.Chown(sentinelPath, uid, gid); err != nil {
			linkLogger.Error("Failed to chown sentinel: %v", err)
			return ToFuseError(err)
		}
	}
	if req.Valid.Atime() || req.Valid.Mtime() {
		atime, mtime := chtimes(req, time.Now())
		if err := os.Chtimes(sentinelPath, atime, mtime); err != nil {
			return ToFuseError(err)
		}
	}
	return nil
}
