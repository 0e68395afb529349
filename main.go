// usbburn writes a disk image to a removable USB drive using dd and
// optionally verifies the written data with md5sum. Devices are taken
// exclusively from the catalog, which only ever yields removable USB
// disks; internal disks cannot be selected at all.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"usbburn/picker"
)

func main() {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	run := newRunFlag()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		run.Stop()
		fmt.Fprintln(os.Stderr, "\ninterrupted")
		os.Exit(130)
	}()

	var (
		verbose bool
		dryRun  bool
	)

	root := &cobra.Command{
		Use:   "usbburn",
		Short: "Write disk images to removable USB drives, safely",
		Long: `usbburn writes a disk image to a removable USB drive and optionally
verifies the result. Only drives the kernel reports as removable and
attached over USB are ever offered as targets; internal disks are
never touched.`,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
			if dryRun {
				fmt.Println("dry-run mode: nothing will be written")
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "show what would happen without writing")

	cat := defaultCatalog()

	var (
		input      string
		devicePath string
		verify     bool
	)
	writeCmd := &cobra.Command{
		Use:   "write",
		Short: "Write an image to a USB drive",
		RunE: func(_ *cobra.Command, _ []string) error {
			in := bufio.NewReader(os.Stdin)
			image := input
			if image == "" {
				var err error
				image, err = promptImagePath(in, os.Stdout)
				if err != nil {
					return err
				}
			} else if _, err := os.Stat(image); err != nil {
				return fmt.Errorf("image not found: %w", err)
			}
			dev, err := resolveDevice(cat, devicePath, in, os.Stdout)
			if errors.Is(err, errNoDevices) {
				printNoDevices(os.Stdout)
				return nil
			}
			if errors.Is(err, picker.ErrCancelled) {
				return nil
			}
			if err != nil {
				return err
			}
			dev = recheckSize(dev, log)
			ok, err := confirmWrite(in, os.Stdout, image, dev)
			if err != nil || !ok {
				return err
			}
			req := WriteRequest{Image: image, Target: dev, Verify: verify, DryRun: dryRun}
			return writeImage(req, run, os.Stdout, log)
		},
	}
	writeCmd.Flags().StringVarP(&input, "input", "i", "", "path to the image file")
	writeCmd.Flags().StringVarP(&devicePath, "device", "d", "", "target device (e.g. /dev/sdb), picked interactively if omitted")
	writeCmd.Flags().BoolVar(&verify, "verify", false, "verify checksum after write")

	var (
		verifyInput  string
		verifyDevice string
	)
	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a USB drive against an image",
		RunE: func(_ *cobra.Command, _ []string) error {
			in := bufio.NewReader(os.Stdin)
			image := verifyInput
			if image == "" {
				var err error
				image, err = promptImagePath(in, os.Stdout)
				if err != nil {
					return err
				}
			} else if _, err := os.Stat(image); err != nil {
				return fmt.Errorf("image not found: %w", err)
			}
			dev, err := resolveDevice(cat, verifyDevice, in, os.Stdout)
			if errors.Is(err, errNoDevices) {
				printNoDevices(os.Stdout)
				return nil
			}
			if errors.Is(err, picker.ErrCancelled) {
				return nil
			}
			if err != nil {
				return err
			}
			return verifyImage(image, dev, run, os.Stdout, log)
		},
	}
	verifyCmd.Flags().StringVarP(&verifyInput, "input", "i", "", "path to the image file")
	verifyCmd.Flags().StringVarP(&verifyDevice, "device", "d", "", "device to verify (e.g. /dev/sdb)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List removable USB drives",
		Run: func(_ *cobra.Command, _ []string) {
			printDeviceList(os.Stdout, cat.enumerate())
		},
	}

	var infoDevice string
	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Show device info",
		RunE: func(_ *cobra.Command, _ []string) error {
			in := bufio.NewReader(os.Stdin)
			dev, err := resolveDevice(cat, infoDevice, in, os.Stdout)
			if errors.Is(err, errNoDevices) {
				printNoDevices(os.Stdout)
				return nil
			}
			if errors.Is(err, picker.ErrCancelled) {
				return nil
			}
			if err != nil {
				return err
			}
			return printDeviceInfo(os.Stdout, dev)
		},
	}
	infoCmd.Flags().StringVarP(&infoDevice, "device", "d", "", "device to inspect (e.g. /dev/sdb)")

	wizardCmd := &cobra.Command{
		Use:   "wizard",
		Short: "Interactive wizard",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runWizard(cat, run, dryRun, log)
		},
	}

	root.AddCommand(writeCmd, verifyCmd, listCmd, infoCmd, wizardCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
