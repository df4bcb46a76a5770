package fs

import (
	"os"

	"nlinkfs/internal/logging"
	"nlinkfs/internal/registry"

	"bazil.org/fuse"
	"github.com/karrick/godirwalk"
)

var (
	mergeLogger = logging.GetLogger().WithPrefix("merge")
)

// emitFunc receives one directory entry of the merged (virtual) listing.
// Returning an error stops the merge; the error is surfaced to the caller.
type emitFunc func(name string, typ fuse.DirentType) error

// listDirectory enumerates the real directory behind vp and emits the
// virtual-namespace view of it: each valid sentinel file appears once under
// its stripped name as a symlink, everything else appears verbatim.
// Sentinels discovered here are registered, which is how links created by a
// prior process invocation enter the registry.
func (nfs *NLinkFS) listDirectory(vp *VirtualPath, emit emitFunc) error {
	realDir := nfs.paths.RealPath(vp)
	mergeLogger.Debug("Listing directory %q (real: %q)", vp.String(), realDir)

	dirents, err := godirwalk.ReadDirents(realDir, nil)
	if err != nil {
		mergeLogger.Warn("Failed to read directory %q: %v", realDir, err)
		return err
	}

	for _, de := range dirents {
		name := de.Name()

		// Cheap suffix test first so only .LNK-named files are opened.
		if isSentinelName(name) {
			target, ok := readSentinel(realDir + "/" + name)
			if ok {
				stripped := stripSentinelSuffix(name)
				childPath := vp.Child(stripped)
				nfs.links.InsertIfAbsent(&registry.LinkDescriptor{
					VirtualPath: childPath.String(),
					Target:      target,
				})
				mergeLogger.Trace("Merged sentinel %q as link %q -> %q",
					name, stripped, target)
				if err := emit(stripped, fuse.DT_Link); err != nil {
					return err
				}
				continue
			}
			// Not a true sentinel; falls through as a plain file.
			mergeLogger.Trace("Entry %q has the suffix but is not a sentinel", name)
		}

		if err := emit(name, direntType(de.ModeType())); err != nil {
			return err
		}
	}

	mergeLogger.Debug("Directory %q merged, registry now holds %d links",
		vp.String(), nfs.links.Len())
	return nil
}

// direntType maps a file mode to the FUSE directory entry type.
func direntType(mode os.FileMode) fuse.DirentType {
	switch {
	case mode.IsDir():
		return fuse.DT_Dir
	case mode&os.ModeSymlink != 0:
		return fuse.DT_Link
	case mode&os.ModeNamedPipe != 0:
		return fuse.DT_FIFO
	case mode&os.ModeSocket != 0:
		return fuse.DT_Socket
	case mode&os.ModeCharDevice != 0:
		return fuse.DT_Char
	case mode&os.ModeDevice != 0:
		return fuse.DT_Block
	default:
		return fuse.DT_File
	}
}
