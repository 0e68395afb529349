//go:build linux

package main

import (
	"os"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

const mountTable = "/proc/mounts"

// mountPointsFor returns the mount points of every entry in a
// line-oriented mount table whose source device is the given device or
// one of its partitions ("/dev/sdb" matches "/dev/sdb" and "/dev/sdb1").
func mountPointsFor(table, devPath string) []string {
	var points []string
	for _, line := range strings.Split(table, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if strings.HasPrefix(fields[0], devPath) {
			points = append(points, fields[1])
		}
	}
	return points
}

// unmountTarget unmounts every filesystem backed by the target device.
// Failures are logged and ignored: if the device is still busy the raw
// block write that follows will fail loudly on its own.
func unmountTarget(dev Device, log logrus.FieldLogger) {
	data, err := os.ReadFile(mountTable)
	if err != nil {
		log.WithError(err).Warn("cannot read mount table")
		return
	}
	for _, mp := range mountPointsFor(string(data), dev.Path) {
		log.WithField("mountpoint", mp).Debug("unmounting")
		if err := exec.Command("umount", mp).Run(); err != nil {
			log.WithError(err).WithField("mountpoint", mp).Warn("umount failed")
		}
	}
}
