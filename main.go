package main

import (
	"errors"
	goflag "flag"
	"fmt"
	"math"
	"os"

	"github.com/Jon-Bright/mmcmectl/mmcme"
	"github.com/Jon-Bright/mmcmectl/regs"
	"github.com/golang/glog"
	"github.com/spf13/cobra"
)

// Set by ldflags
var buildVersion = "dev"

var (
	parentRate string
	parentName string
	clockName  string
	baseAddr   uint64
	windowSize int
	simulate   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mmcmectl",
		Short: "Control the output clock of a SpinalHDL MMCME2 clock generator",
		Long: `mmcmectl solves divider settings for an MMCME2 clock generator and
programs them through its memory-mapped reconfiguration registers.`,
		Version:      buildVersion,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			// glog wants its flags parsed; cobra has already done that for us.
			return goflag.CommandLine.Parse(nil)
		},
	}

	rootCmd.PersistentFlags().StringVar(&parentRate, "parent", "100M", "Parent clock rate in Hz (k/M/G suffixes allowed)")
	rootCmd.PersistentFlags().StringVar(&parentName, "parent-name", "periph_clock", "Name of the parent clock, for logging")
	rootCmd.PersistentFlags().StringVar(&clockName, "name", mmcme.DefaultName, "Name of this clock, for logging")
	rootCmd.PersistentFlags().Uint64Var(&baseAddr, "base", 0, "Physical base address of the MMCME2 register window")
	rootCmd.PersistentFlags().IntVar(&windowSize, "size", 0x200, "Size of the register window in bytes")
	rootCmd.PersistentFlags().BoolVar(&simulate, "sim", false, "Use simulated in-memory registers instead of /dev/mem")
	rootCmd.PersistentFlags().AddGoFlagSet(goflag.CommandLine)
	// Our own version flag, so cobra doesn't claim -v from glog.
	rootCmd.Flags().Bool("version", false, "Print the version")

	rootCmd.AddCommand(solveCmd())
	rootCmd.AddCommand(setCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(serveCmd())

	err := rootCmd.Execute()
	glog.Flush()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parent() (uint64, error) {
	p, err := parseHz(parentRate)
	if err != nil {
		return 0, fmt.Errorf("bad --parent: %v", err)
	}
	return p, nil
}

// openClock returns a clock on either the real register window or a
// simulated one, and a function to release it.
func openClock() (*mmcme.Clock, func() error, error) {
	if windowSize <= 0 || windowSize%4 != 0 || uint64(windowSize) > math.MaxUint32 {
		return nil, nil, fmt.Errorf("bad --size %d: want a positive multiple of 4", windowSize)
	}
	if simulate {
		glog.Infof("Using %d bytes of simulated registers", windowSize)
		return mmcme.New(clockName, parentName, regs.NewMem(uint32(windowSize))), func() error { return nil }, nil
	}
	if baseAddr == 0 {
		return nil, nil, errors.New("--base is required unless --sim is set")
	}
	w, err := regs.Map(uintptr(baseAddr), windowSize)
	if err != nil {
		return nil, nil, fmt.Errorf("couldn't map registers at %08X: %v", baseAddr, err)
	}
	return mmcme.New(clockName, parentName, w), w.Close, nil
}
