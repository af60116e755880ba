package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sweeney/fridge-monitor/internal/logic"
)

var durationCmd = &cobra.Command{
	Use:   "duration <seconds|P<d>DT<h>H<m>M<s>S>",
	Short: "Convert between seconds and the record duration format.",
	Long: `Given a number of seconds, prints it in the duration format used in
records (for example 3725 prints P0DT1H2M5S). Given a duration, prints the
number of seconds it represents.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := convertDuration(args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
		return err
	},
}

func convertDuration(arg string) (string, error) {
	if secs, err := strconv.ParseUint(arg, 10, 32); err == nil {
		return logic.FormatDuration(uint32(secs)), nil
	}
	d, err := logic.ParseDuration(arg)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(d.TotalSeconds(), 10), nil
}
