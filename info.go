package main

import (
	"fmt"
	"io"

	"github.com/jaypipes/ghw"
)

// printDeviceInfo renders the catalog view of a device plus the partition
// layout from the host's block-storage inventory.
func printDeviceInfo(out io.Writer, dev Device) error {
	fmt.Fprintf(out, "Device info: %s\n", dev.Path)
	fmt.Fprintf(out, "  %-12s %s\n", "Model", dev.Model)
	fmt.Fprintf(out, "  %-12s %s\n", "Size", dev.SizeHuman())
	fmt.Fprintf(out, "  %-12s %v\n", "Removable", dev.Removable)
	fmt.Fprintf(out, "  %-12s %s\n", "Transport", dev.Transport)

	block, err := ghw.Block()
	if err != nil {
		return fmt.Errorf("block inventory: %w", err)
	}
	for _, disk := range block.Disks {
		if disk.Name != dev.Name {
			continue
		}
		if disk.SerialNumber != "" && disk.SerialNumber != "unknown" {
			fmt.Fprintf(out, "  %-12s %s\n", "Serial", disk.SerialNumber)
		}
		if len(disk.Partitions) == 0 {
			fmt.Fprintln(out, "  Partitions:  none")
			break
		}
		fmt.Fprintln(out, "  Partitions:")
		for _, part := range disk.Partitions {
			fmt.Fprintf(out, "    %-12s %10s  %-8s %s\n",
				"/dev/"+part.Name, humanBytes(int64(part.SizeBytes)), part.Type, part.MountPoint)
		}
		break
	}
	return nil
}
