package commands

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var verbose bool

func Execute() error {
	root := &cobra.Command{
		Use:   "twrsim",
		Short: "Two-way ranging over a simulated UWB link",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logrus.SetLevel(logrus.InfoLevel)
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(rangeCmd(), aesCmd())
	return root.Execute()
}
