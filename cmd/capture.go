package main

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"camscout/internal/capture"
	"camscout/internal/frame"
	"camscout/internal/history"
)

func newCaptureCmd() *cobra.Command {
	var (
		url       string
		save      bool
		outputDir string
		format    string
	)

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "カメラURLから1枚取得する",
		RunE: func(cmd *cobra.Command, args []string) error {
			quietLogs(os.Stderr)

			opts := cfg.Capture
			if outputDir != "" {
				opts.OutputDir = outputDir
			}
			if format != "" {
				opts.Format = format
			}

			store := frame.NewStore()
			adapter, err := capture.NewAdapter(opts, store, history.New(1))
			if err != nil {
				return err
			}

			msg, err := adapter.Capture(cmd.Context(), url)
			if err != nil {
				return err
			}

			snap, _ := store.Get()
			b := snap.Image.Bounds()
			pterm.Success.Printfln("%s (%dx%d)", msg, b.Dx(), b.Dy())

			if !save {
				return nil
			}

			filename, err := adapter.Save(cmd.Context())
			if err != nil {
				return err
			}
			pterm.Success.Printfln("Saved scan as %s", filename)
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "カメラのURL")
	cmd.Flags().BoolVar(&save, "save", false, "取得した画像を保存する")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "保存先ディレクトリ")
	cmd.Flags().StringVar(&format, "format", "", "保存形式 (png, bmp, tiff)")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}
