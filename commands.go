package main

import (
	"fmt"

	"github.com/Jon-Bright/mmcmectl/mmcme"
	"github.com/spf13/cobra"
)

func solveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "solve TARGET...",
		Short: "Show the divider settings for target rates without touching hardware",
		Long: `Solve each target rate against the parent rate and print the chosen
multiplier, dividers, VCO frequency and achieved rate.

Examples:
  mmcmectl solve 148.5M 74.25M --parent 100M`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSolve,
	}
}

func runSolve(cmd *cobra.Command, args []string) error {
	p, err := parent()
	if err != nil {
		return err
	}
	for _, a := range args {
		target, err := parseHz(a)
		if err != nil {
			return err
		}
		c, err := mmcme.Solve(target, p)
		if err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%d Hz: %v\n", target, err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d Hz: mul %d prediv %d postdiv %d, vco %d Hz, output %d Hz (error %d Hz)\n",
			target, c.Mul, c.PreDiv, c.PostDiv, c.VCO(p), c.Rate, int64(c.Rate)-int64(target))
	}
	return nil
}

func setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set TARGET",
		Short: "Program the clock to the closest achievable rate",
		Args:  cobra.ExactArgs(1),
		RunE:  runSet,
	}
}

func runSet(cmd *cobra.Command, args []string) error {
	p, err := parent()
	if err != nil {
		return err
	}
	target, err := parseHz(args[0])
	if err != nil {
		return err
	}
	clk, closer, err := openClock()
	if err != nil {
		return err
	}
	defer closer()
	rate, err := clk.SetRate(target, p)
	if err != nil {
		return fmt.Errorf("couldn't set %s to %d Hz: %w", clk.Name(), target, err)
	}
	c, _ := clk.Config()
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d Hz (%v)\n", clk.Name(), rate, c)
	return nil
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Read the current configuration back from hardware",
		Args:  cobra.NoArgs,
		RunE:  runShow,
	}
}

func runShow(cmd *cobra.Command, _ []string) error {
	p, err := parent()
	if err != nil {
		return err
	}
	clk, closer, err := openClock()
	if err != nil {
		return err
	}
	defer closer()
	rv, err := clk.Registers()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, r := range rv {
		fmt.Fprintf(out, "%-12s @%#03x = %08X\n", r.Reg.Name, r.Reg.Offset(), r.Val)
	}
	c, err := clk.Sync(p)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %v, vco %d Hz\n", clk.Name(), c, c.VCO(p))
	return nil
}
