//go:build linux

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Device is one removable USB disk that survived every catalog filter.
// Instances are immutable snapshots; re-enumeration produces fresh ones.
type Device struct {
	Name      string // kernel name, e.g. "sdb"
	Path      string // device node, e.g. "/dev/sdb"
	Size      int64  // bytes
	Model     string
	Removable bool
	Transport string // usb / nvme / mmc / ata / unknown
}

// minDeviceSize guards against empty card-reader slots.
const minDeviceSize = 100_000_000

// virtualPrefixes are kernel names that can never be a writable target:
// loopback, RAM-backed, software RAID, device-mapper and optical drives.
var virtualPrefixes = []string{"loop", "ram", "zram", "dm-", "md", "sr"}

// SizeHuman formats the device size in decimal GB/MB, matching how
// drive vendors label capacity.
func (d Device) SizeHuman() string {
	gb := float64(d.Size) / 1e9
	if gb >= 1.0 {
		return fmt.Sprintf("%.1f GB", gb)
	}
	return fmt.Sprintf("%.0f MB", float64(d.Size)/1e6)
}

// Label is the one-line form used by list output and the picker.
func (d Device) Label() string {
	return fmt.Sprintf("%s  %s  %s  [%s]", d.Path, d.SizeHuman(), d.Model, d.Transport)
}

// catalog enumerates candidate target devices. The roots are fields so
// tests can point it at a fixture tree.
type catalog struct {
	sysBlock string // /sys/block
	devDir   string // /dev
}

func defaultCatalog() catalog {
	return catalog{sysBlock: "/sys/block", devDir: "/dev"}
}

// enumerate walks the block-device metadata tree and returns every device
// that passes all safety filters. Missing sysfs yields an empty slice,
// never an error. Filter order matters: the cheap name and removable
// checks run before symlink resolution.
func (c catalog) enumerate() []Device {
	entries, err := os.ReadDir(c.sysBlock)
	if err != nil {
		return nil
	}

	var devices []Device
	for _, entry := range entries {
		name := entry.Name()
		if hasVirtualPrefix(name) {
			continue
		}
		sysPath := filepath.Join(c.sysBlock, name)

		// Primary internal-disk protection: the removable attribute
		// must be exactly "1".
		if v, ok := sysfsRead(filepath.Join(sysPath, "removable")); !ok || v != "1" {
			continue
		}

		// Second gate: the resolved transport must be usb. This blocks
		// eSATA enclosures and internal media misreported as removable.
		transport := resolveTransport(sysPath)
		if transport != "usb" {
			continue
		}

		// Stale sysfs entries have no node under /dev.
		devPath := filepath.Join(c.devDir, name)
		if _, err := os.Stat(devPath); err != nil {
			continue
		}

		// The sysfs size attribute counts 512-byte sectors regardless
		// of the device's logical block size.
		var sectors int64
		if v, ok := sysfsRead(filepath.Join(sysPath, "size")); ok {
			sectors, _ = strconv.ParseInt(v, 10, 64)
		}
		size := sectors * 512
		if size < minDeviceSize {
			continue
		}

		devices = append(devices, Device{
			Name:      name,
			Path:      devPath,
			Size:      size,
			Model:     resolveModel(sysPath),
			Removable: true,
			Transport: transport,
		})
	}
	return devices
}

func hasVirtualPrefix(name string) bool {
	for _, p := range virtualPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// resolveTransport follows the device's canonical sysfs symlink and
// pattern-matches the resolved path for the bus it hangs off.
func resolveTransport(sysPath string) string {
	real, err := filepath.EvalSymlinks(filepath.Join(sysPath, "device"))
	if err != nil {
		return "unknown"
	}
	switch {
	case strings.Contains(real, "/usb"):
		return "usb"
	case strings.Contains(real, "nvme"):
		return "nvme"
	case strings.Contains(real, "mmc"):
		return "mmc"
	case strings.Contains(real, "ata"):
		return "ata"
	}
	return "unknown"
}

// resolveModel prefers the SCSI model attribute, falls back to the USB
// product string, then to a generic label.
func resolveModel(sysPath string) string {
	if v, ok := sysfsRead(filepath.Join(sysPath, "device", "model")); ok && v != "" {
		return v
	}
	// Not filepath.Join: the ".." must be resolved by the kernel after
	// following the device symlink, not cleaned away lexically.
	if v, ok := sysfsRead(sysPath + "/device/../product"); ok && v != "" {
		return v
	}
	return "USB Drive"
}

func sysfsRead(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}
