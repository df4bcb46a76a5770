package fs

import (
	"context"
	"io"
	"os"
	"time"

	"nlinkfs/internal/logging"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
)

var (
	fileLogger = logging.GetLogger().WithPrefix("file")
)

// File represents a regular file passed through to the backing store.
type File struct {
	fs   *NLinkFS
	path *VirtualPath
}

// Attr implements the Node interface, returning the real file's attributes.
func (f *File) Attr(_ context.Context, a *fuse.Attr) error {
	fileLogger.Trace("Getting attributes for file: %q", f.path.String())

	info, err := os.Lstat(f.fs.paths.RealPath(f.path))
	if err != nil {
		fileLogger.Warn("Failed to stat file %q: %v", f.path.String(), err)
		return ToFuseError(err)
	}

	copyFileInfo(info, a, f.fs.uid, f.fs.gid)
	fileLogger.Trace("File attributes: mode=%v, size=%d, mtime=%v",
		a.Mode, a.Size, a.Mtime)
	return nil
}

// Open implements the NodeOpener interface, opening the underlying file with
// the caller's flags.
func (f *File) Open(_ context.Context, req *fuse.OpenRequest, _ *fuse.OpenResponse) (fusefs.Handle, error) {
	fileLogger.Debug("Opening file %q with flags %v", f.path.String(), req.Flags)

	file, err := os.OpenFile(f.fs.paths.RealPath(f.path), int(req.Flags), 0)
	if err != nil {
		fileLogger.Warn("Failed to open file: %v", err)
		return nil, ToFuseError(err)
	}

	return &FileHandle{
		file: file,
		path: f.path.String(),
	}, nil
}

// Fsync implements the NodeFsyncer interface, flushing file contents to the
// backing store.
func (f *File) Fsync(_ context.Context, _ *fuse.FsyncRequest) error {
	fileLogger.Debug("Syncing file %q", f.path.String())

	file, err := os.Open(f.fs.paths.RealPath(f.path))
	if err != nil {
		return ToFuseError(err)
	}
	defer file.Close()

	if err := file.Sync(); err != nil {
		fileLogger.Error("Failed to sync file: %v", err)
		return ToFuseError(err)
	}
	return nil
}

// Setattr implements the NodeSetattrer interface, passing attribute changes
// through to the real file.
func (f *File) Setattr(_ context.Context, req *fuse.SetattrRequest, _ *fuse.SetattrResponse) error {
	realPath := f.fs.paths.RealPath(f.path)
	fileLogger.Debug("Setting attributes on file %q (valid=%v)", f.path.String(), req.Valid)

	if req.Valid.Size() {
		if err := os.Truncate(realPath, int64(req.Size)); err != nil {
			fileLogger.Error("Failed to truncate: %v", err)
			return ToFuseError(err)
		}
	}
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

// FileHandle represents an open file. Reads and writes go straight to the
// open descriptor, so they stay valid across a concurrent rename of the path.
type FileHandle struct {
	file *os.File
	path string // For logging purposes
}

// Read implements the HandleReader interface, reading data from the file.
func (fh *FileHandle) Read(_ context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	fileLogger.Trace("Reading %d bytes from file %q at offset %d",
		req.Size, fh.path, req.Offset)

	buf := make([]byte, req.Size)
	n, err := fh.file.ReadAt(buf, req.Offset)
	if err != nil && err != io.EOF {
		fileLogger.Error("Failed to read from file: %v", err)
		return ToFuseError(err)
	}

	resp.Data = buf[:n]
	return nil
}

// Write implements the HandleWriter interface, writing data to the file.
func (fh *FileHandle) Write(_ context.Context, req *fuse.WriteRequest, resp *fuse.WriteResponse) error {
	fileLogger.Trace("Writing %d bytes to file %q at offset %d",
		len(req.Data), fh.path, req.Offset)

	n, err := fh.file.WriteAt(req.Data, req.Offset)
	resp.Size = n
	if err != nil {
		fileLogger.Error("Failed to write to file: %v", err)
		return ToFuseError(err)
	}
	return nil
}

// Attr reports attributes from the open descriptor rather than re-resolving
// the path, matching fstat semantics for handle-based queries.
func (fh *FileHandle) Attr(_ context.Context, a *fuse.Attr) error {
	info, err := fh.file.Stat()
	if err != nil {
		return ToFuseError(err)
	}
	copyFileInfo(info, a, 0, 0)
	return nil
}

// Flush implements the HandleFlusher interface. Nothing is buffered in this
// process, so flush only has to report descriptor state.
func (fh *FileHandle) Flush(_ context.Context, _ *fuse.FlushRequest) error {
	fileLogger.Trace("Flushing file %q", fh.path)
	return nil
}

// Release implements the HandleReleaser interface, closing the file handle.
func (fh *FileHandle) Release(_ context.Context, _ *fuse.ReleaseRequest) error {
	fileLogger.Debug("Closing file %q", fh.path)
	return ToFuseError(fh.file.Close())
}
