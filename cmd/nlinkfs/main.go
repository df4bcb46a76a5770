package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"nlinkfs/internal/fs"
	"nlinkfs/internal/logging"

	"bazil.org/fuse"
	"emperror.dev/errors"
)

var (
	logger = logging.GetLogger()
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] <source-dir> <mount-point>\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Mounts <source-dir> at <mount-point>, presenting every sentinel\n")
	fmt.Fprintf(os.Stderr, "file (<name>.LNK) as a POSIX symbolic link.\n\nFlags:\n")
	flag.PrintDefaults()
}

func run() error {
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	allowOther := flag.Bool("allow-other", false, "Allow other users to access the mount")
	readOnly := flag.Bool("read-only", false, "Mount the filesystem read-only")
	fsName := flag.String("fsname", "nlinkfs", "Filesystem name reported to the kernel")
	flag.Usage = usage
	flag.Parse()

	if *verbose {
		logger.SetLevel(logging.LevelDebug)
	}

	if flag.NArg() != 2 {
		usage()
		return errors.New("source directory and mount point are required")
	}

	// The backing root is the first positional argument, trailing
	// separator stripped; the rest of the invocation drives the mount.
	sourceDir := flag.Arg(0)
	mountPoint := flag.Arg(1)

	logger.Info("Starting nlinkfs...")
	logger.Debug("Source directory: %s", sourceDir)
	logger.Debug("Mount point: %s", mountPoint)

	nfs, err := fs.NewNLinkFS(sourceDir)
	if err != nil {
		return errors.Wrap(err, "failed to create filesystem")
	}

	mountOpts := []fuse.MountOption{fuse.FSName(*fsName)}
	if *allowOther {
		mountOpts = append(mountOpts, fuse.AllowOther())
	}
	if *readOnly {
		mountOpts = append(mountOpts, fuse.ReadOnly())
	}

	if err := nfs.Mount(mountPoint, mountOpts...); err != nil {
		return errors.Wrap(err, "failed to mount filesystem")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("Received signal %v", sig)
		if err := nfs.Unmount(mountPoint); err != nil {
			logger.Error("Unmount error: %v", err)
		}
	}()

	logger.Info("Filesystem mounted and ready")
	nfs.Wait()
	logger.Info("Clean shutdown complete")
	return nil
}

func main() {
	if err := run(); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}
