//go:build linux

package main

import (
	"fmt"
	"io"
	"os"
	"unsafe"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// blockDeviceSize returns the size in bytes of an open block device or
// regular file.
func blockDeviceSize(f *os.File) (int64, error) {
	// Seeking works for regular files (test fixtures).
	if size, err := f.Seek(0, io.SeekEnd); err == nil && size > 0 {
		_, _ = f.Seek(0, io.SeekStart)
		return size, nil
	}

	var size uint64
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), unix.BLKGETSIZE64, uintptr(unsafe.Pointer(&size)))
	if errno != 0 {
		return 0, fmt.Errorf("cannot determine device size: %v", errno)
	}
	return int64(size), nil
}

// probeDeviceSize opens the device node read-only and asks the kernel for
// its exact byte size. Requires read permission on the node, so callers
// treat failure as "no better information than sysfs".
func probeDeviceSize(path string) (int64, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return 0, fmt.Errorf("open device: %w", err)
	}
	defer f.Close()
	return blockDeviceSize(f)
}

// recheckSize cross-checks the sysfs-reported size against the kernel's
// answer for the open node. The smaller value wins, so the gate's
// size-mismatch check can only get stricter. Best-effort: without read
// permission the sysfs value stands.
func recheckSize(dev Device, log logrus.FieldLogger) Device {
	size, err := probeDeviceSize(dev.Path)
	if err != nil || size <= 0 {
		log.WithField("device", dev.Path).Debug("cannot probe device size, using sysfs value")
		return dev
	}
	if size < dev.Size {
		log.WithFields(logrus.Fields{"device": dev.Path, "sysfs": dev.Size, "ioctl": size}).
			Debug("kernel reports smaller device size")
		dev.Size = size
	}
	return dev
}
