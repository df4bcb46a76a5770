package fs

import (
	"os"
	"syscall"
	"time"

	"bazil.org/fuse"
	"golang.org/x/sys/unix"
)

func safeInt64ToUint64(n int64) uint64 {
	if n < 0 {
		return 0
	}
	return uint64(n)
}

func safeIntToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	return uint32(n)
}

// copyFileInfo fills FUSE attributes from a backing-store stat result.
// Ownership falls back to the session's uid/gid when the underlying stat
// carries none.
func copyFileInfo(info os.FileInfo, a *fuse.Attr, uid, gid uint32) {
	a.Mode = info.Mode()
	a.Size = safeInt64ToUint64(info.Size())
	a.Mtime = info.ModTime()
	a.Atime = info.ModTime()
	a.Ctime = info.ModTime()
	a.Uid = uid
	a.Gid = gid
	a.BlockSize = 4096
	a.Blocks = safeInt64ToUint64((info.Size() + 511) / 512)

	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		a.Uid = st.Uid
		a.Gid = st.Gid
		a.Atime = time.Unix(st.Atim.Sec, st.Atim.Nsec)
		a.Ctime = time.Unix(st.Ctim.Sec, st.Ctim.Nsec)
	}
}

// chownIDs extracts the uid/gid pair for a chown from a setattr request,
// leaving the unset half as -1 so the kernel keeps it unchanged.
func chownIDs(req *fuse.SetattrRequest) (int, int) {
	uid, gid := -1, -1
	if req.Valid.Uid() {
		uid = int(req.Uid)
	}
	if req.Valid.Gid() {
		gid = int(req.Gid)
	}
	return uid, gid
}

// chtimes extracts the atime/mtime pair for a utimes from a setattr
// request, substituting now for the half the request does not carry.
func chtimes(req *fuse.SetattrRequest, now time.Time) (time.Time, time.Time) {
	atime, mtime := now, now
	if req.Valid.Atime() {
		atime = req.Atime
	}
	if req.Valid.Mtime() {
		mtime = req.Mtime
	}
	return atime, mtime
}

// unixMode converts an os.FileMode to the raw mode bits mknod expects,
// including the file type.
func unixMode(mode os.FileMode) uint32 {
	m := uint32(mode.Perm())
	switch {
	case mode&os.ModeCharDevice != 0:
		m |= unix.S_IFCHR
	case mode&os.ModeDevice != 0:
		m |= unix.S_IFBLK
	case mode&os.ModeNamedPipe != 0:
		m |= unix.S_IFIFO
	case mode&os.ModeSocket != 0:
		m |= unix.S_IFSOCK
	case mode&os.ModeSymlink != 0:
		m |= unix.S_IFLNK
	default:
		m |= unix.S_IFREG
	}
	return m
}
