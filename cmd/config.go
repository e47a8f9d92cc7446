package main

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "有効な設定をYAMLで表示する",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cfg.YAML()
			if err != nil {
				return err
			}

			if file := loader.ConfigFile(); file != "" {
				pterm.Info.Printfln("設定ファイル: %s", file)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
