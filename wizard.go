package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"usbburn/picker"
)

// runWizard sequences the interactive flow: pick an operation, pick an
// image and device, confirm, run. All safety decisions stay in the gate
// and the catalog; the wizard only wires them together.
func runWizard(cat catalog, run *runFlag, dryRun bool, log logrus.FieldLogger) error {
	ops := []string{
		"Write image to USB drive",
		"Verify USB drive against image",
		"List USB drives",
		"Show device info",
	}
	op, err := picker.Pick("usbburn wizard", ops)
	if errors.Is(err, picker.ErrCancelled) {
		return nil
	}
	if err != nil {
		return err
	}

	in := bufio.NewReader(os.Stdin)
	out := os.Stdout

	switch op {
	case 0:
		image, err := promptImagePath(in, out)
		if err != nil {
			return err
		}
		dev, err := chooseDevice(cat, in, out)
		if errors.Is(err, errNoDevices) {
			printNoDevices(out)
			return nil
		}
		if errors.Is(err, picker.ErrCancelled) {
			return nil
		}
		if err != nil {
			return err
		}
		dev = recheckSize(dev, log)
		ok, err := confirmWrite(in, out, image, dev)
		if err != nil || !ok {
			return err
		}
		verify, err := promptYN(in, out, "Verify checksum after write?")
		if err != nil {
			return err
		}
		return writeImage(WriteRequest{Image: image, Target: dev, Verify: verify, DryRun: dryRun}, run, out, log)

	case 1:
		image, err := promptImagePath(in, out)
		if err != nil {
			return err
		}
		dev, err := chooseDevice(cat, in, out)
		if errors.Is(err, errNoDevices) {
			printNoDevices(out)
			return nil
		}
		if errors.Is(err, picker.ErrCancelled) {
			return nil
		}
		if err != nil {
			return err
		}
		return verifyImage(image, dev, run, out, log)

	case 2:
		printDeviceList(out, cat.enumerate())
		return nil

	case 3:
		dev, err := chooseDevice(cat, in, out)
		if errors.Is(err, errNoDevices) {
			printNoDevices(out)
			return nil
		}
		if errors.Is(err, picker.ErrCancelled) {
			return nil
		}
		if err != nil {
			return err
		}
		return printDeviceInfo(out, dev)
	}
	return nil
}

// chooseDevice enumerates and lets the user select a target.
func chooseDevice(cat catalog, in *bufio.Reader, out io.Writer) (Device, error) {
	devices := cat.enumerate()
	if len(devices) == 0 {
		return Device{}, errNoDevices
	}
	return chooseDeviceFrom(devices, in, out)
}

// chooseDeviceFrom prefers the fullscreen picker and falls back to a
// numbered prompt when no usable terminal screen is available.
func chooseDeviceFrom(devices []Device, in *bufio.Reader, out io.Writer) (Device, error) {
	labels := make([]string, len(devices))
	for i, d := range devices {
		labels[i] = d.Label()
	}
	idx, err := picker.Pick("Select target USB drive", labels)
	if err == nil {
		return devices[idx], nil
	}
	if errors.Is(err, picker.ErrCancelled) {
		return Device{}, err
	}
	return promptDevice(devices, in, out)
}

func promptDevice(devices []Device, in *bufio.Reader, out io.Writer) (Device, error) {
	fmt.Fprintln(out, "Select target USB drive:")
	for i, d := range devices {
		fmt.Fprintf(out, "  [%d] %s\n", i, d.Label())
	}
	for {
		s, err := promptLine(in, out, "Enter number", "0")
		if err != nil {
			return Device{}, err
		}
		idx, err := strconv.Atoi(s)
		if err != nil || idx < 0 || idx >= len(devices) {
			fmt.Fprintln(out, "invalid index, try again")
			continue
		}
		return devices[idx], nil
	}
}

// resolveDevice maps a --device argument onto the catalog. An explicit
// path is accepted only if the catalog itself offers it; the catalog
// stays the single authority on what is writable.
func resolveDevice(cat catalog, path string, in *bufio.Reader, out io.Writer) (Device, error) {
	devices := cat.enumerate()
	if len(devices) == 0 {
		return Device{}, errNoDevices
	}
	if path == "" {
		return chooseDeviceFrom(devices, in, out)
	}
	for _, d := range devices {
		if d.Path == path {
			return d, nil
		}
	}
	return Device{}, fmt.Errorf("%q is not a detected removable USB drive; see 'usbburn list'", path)
}

func promptImagePath(in *bufio.Reader, out io.Writer) (string, error) {
	path, err := promptLine(in, out, "Path to image file", "")
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", errors.New("image path is required")
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("image not found: %w", err)
	}
	return path, nil
}

func printNoDevices(out io.Writer) {
	fmt.Fprintln(out, "No removable USB drives detected.")
	fmt.Fprintln(out, "  - Make sure the drive is plugged in")
	fmt.Fprintln(out, "  - To inspect manually: lsblk -d -o NAME,TRAN,RM,SIZE,MODEL")
}

func printDeviceList(out io.Writer, devices []Device) {
	if len(devices) == 0 {
		printNoDevices(out)
		return
	}
	fmt.Fprintln(out, "Removable USB drives:")
	for _, d := range devices {
		fmt.Fprintf(out, "  %s\n", d.Label())
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Writing to any of these will erase all data on it.")
}
