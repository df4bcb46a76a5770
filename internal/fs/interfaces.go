// internal/fs/interfaces.go

package fs

import (
	fusefs "bazil.org/fuse/fs"
)

// Node represents a filesystem node (file, directory, or link)
type Node interface {
	fusefs.Node
	fusefs.NodeSetattrer
}

// Directory represents a directory in the mounted namespace
type Directory interface {
	Node
	fusefs.NodeStringLookuper
	fusefs.HandleReadDirAller
	fusefs.NodeMkdirer
	fusefs.NodeCreater
	fusefs.NodeMknoder
	fusefs.NodeSymlinker
	fusefs.NodeRemover
	fusefs.NodeRenamer
}

// Link represents an emulated symbolic link
type Link interface {
	Node
	fusefs.NodeReadlinker
}

// FileInterface represents a regular file passed through to the backing store
type FileInterface interface {
	Node
	fusefs.NodeOpener
	fusefs.NodeFsyncer
}

// FileHandleInterface represents an open file handle
type FileHandleInterface interface {
	fusefs.Handle
	fusefs.HandleReader
	fusefs.HandleWriter
	fusefs.HandleFlusher
	fusefs.HandleReleaser
}

// Conformance checks
var (
	_ fusefs.FS           = (*NLinkFS)(nil)
	_ fusefs.FSDestroyer  = (*NLinkFS)(nil)
	_ Directory           = (*Dir)(nil)
	_ Link                = (*Symlink)(nil)
	_ FileInterface       = (*File)(nil)
	_ FileHandleInterface = (*FileHandle)(nil)
)
