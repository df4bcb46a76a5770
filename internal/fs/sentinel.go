package fs

import (
	"bytes"
	"os"

	"nlinkfs/internal/logging"
)

// On-disk sentinel format: the magic constant, one '\n', then the target
// path bytes with no trailing terminator. A file is a valid sentinel only
// if it is at least len(magic)+1 bytes and its prefix matches exactly.
const (
	sentinelMagic  = "NLINKFS"
	sentinelSep    = '\n'
	sentinelSuffix = ".LNK"
)

var (
	sentinelLogger = logging.GetLogger().WithPrefix("sentinel")

	sentinelHeader = []byte(sentinelMagic + string(sentinelSep))
)

// encodeSentinel produces the on-disk byte sequence for a link target.
func encodeSentinel(target string) []byte {
	buf := make([]byte, 0, len(sentinelHeader)+len(target))
	buf = append(buf, sentinelHeader...)
	buf = append(buf, target...)
	return buf
}

// decodeSentinel extracts the link target from sentinel file contents.
// It reports ok=false for anything that is not a well-formed sentinel;
// malformed input is "not a link", never an error.
func decodeSentinel(data []byte) (string, bool) {
	if !bytes.HasPrefix(data, sentinelHeader) {
		return "", false
	}
	return string(data[len(sentinelHeader):]), true
}

// readSentinel reads and decodes the candidate sentinel file at realPath.
// Any read failure (file vanished, unreadable, truncated) degrades to
// ok=false so callers fall back to treating the entry as a regular file.
func readSentinel(realPath string) (string, bool) {
	data, err := os.ReadFile(realPath)
	if err != nil {
		sentinelLogger.Trace("Not a sentinel (read failed): %q: %v", realPath, err)
		return "", false
	}
	target, ok := decodeSentinel(data)
	if !ok {
		sentinelLogger.Trace("Not a sentinel (bad magic): %q", realPath)
		return "", false
	}
	return target, true
}

// isSentinelName reports whether a directory entry name is a sentinel
// candidate: it carries the suffix and has at least one byte of name
// before it. The cheap name test runs before any file is opened.
func isSentinelName(name string) bool {
	return len(name) > len(sentinelSuffix) &&
		name[len(name)-len(sentinelSuffix):] == sentinelSuffix
}

// stripSentinelSuffix returns the virtual entry name for a sentinel
// file name. Callers must have checked isSentinelName first.
func stripSentinelSuffix(name string) string {
	return name[:len(name)-len(sentinelSuffix)]
}

// truncateTarget bounds a link target to a reader's buffer capacity: targets
// longer than size are cut at exactly size bytes with no error, and a
// non-positive size is valid input yielding an empty result.
func truncateTarget(target string, size int) string {
	if size <= 0 {
		return ""
	}
	if len(target) > size {
		return target[:size]
	}
	return target
}
