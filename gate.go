package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// WriteRequest is the validated intent handed to the write orchestrator.
// It is only ever constructed after confirmWrite returns true.
type WriteRequest struct {
	Image  string
	Target Device
	Verify bool
	DryRun bool
}

// confirmWrite validates an image/device pair and runs the two-step
// confirmation protocol. It returns false on size mismatch or on any
// non-affirmative answer; the only error case is an unreadable image.
// One prompt is too easy to accept by reflex, hence two with different
// wording, both defaulting to no.
func confirmWrite(in *bufio.Reader, out io.Writer, image string, dev Device) (bool, error) {
	st, err := os.Stat(image)
	if err != nil {
		return false, fmt.Errorf("stat image: %w", err)
	}
	imageSize := st.Size()

	if imageSize > dev.Size {
		fmt.Fprintf(out, "image (%s) is larger than the target device (%s); refusing to write\n",
			humanBytes(imageSize), dev.SizeHuman())
		return false, nil
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "  WARNING: ALL DATA ON THE TARGET DEVICE WILL BE ERASED")
	fmt.Fprintln(out, "  ----------------------------------------------------")
	fmt.Fprintf(out, "  Image:         %s\n", filepath.Base(image))
	fmt.Fprintf(out, "  Image size:    %s\n", humanBytes(imageSize))
	fmt.Fprintf(out, "  Target device: %s\n", dev.Path)
	fmt.Fprintf(out, "  Device model:  %s\n", dev.Model)
	fmt.Fprintf(out, "  Device size:   %s\n", dev.SizeHuman())
	fmt.Fprintln(out)

	first, err := promptYN(in, out, fmt.Sprintf("Write to %s? (%s)", dev.Path, dev.Model))
	if err != nil {
		return false, err
	}
	if !first {
		fmt.Fprintln(out, "Cancelled.")
		return false, nil
	}

	second, err := promptYN(in, out, "FINAL WARNING: are you absolutely sure? This cannot be undone")
	if err != nil {
		return false, err
	}
	if !second {
		fmt.Fprintln(out, "Cancelled.")
	}
	return second, nil
}

// promptYN asks a yes/no question defaulting to no. Anything but an
// explicit y/yes counts as no.
func promptYN(in *bufio.Reader, out io.Writer, label string) (bool, error) {
	fmt.Fprintf(out, "%s (y/N): ", label)
	s, err := in.ReadString('\n')
	if err != nil && s == "" {
		return false, fmt.Errorf("read answer: %w", err)
	}
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "y" || s == "yes", nil
}

// promptLine reads one line of free-form input, returning def when the
// answer is empty.
func promptLine(in *bufio.Reader, out io.Writer, label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(out, "%s: ", label)
	}
	s, err := in.ReadString('\n')
	if err != nil && s == "" {
		return "", fmt.Errorf("read answer: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	return s, nil
}
