package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/worklab/sessiond/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the sessiond version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Version)
	},
}

func init() {
	RootCmd.AddCommand(versionCmd)
}
