package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version はビルド時に -ldflags "-X main.version=..." で上書きする
var version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "バージョンを表示する",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "camscout %s\n", version)
		},
	}
}
