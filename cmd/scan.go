package main

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"camscout/internal/camera"
	"camscout/internal/scanner"
)

// cliReporter はスキャン進捗をプログレスバーに反映する
type cliReporter struct {
	bar *pterm.ProgressbarPrinter

	mu    sync.Mutex
	found []scanner.PortFound
}

// OnProgress はエンジン側で直列化されて呼ばれる
func (r *cliReporter) OnProgress(p scanner.Progress) {
	r.bar.UpdateTitle(fmt.Sprintf("%s:%d", p.IP, p.Port))
	r.bar.Increment()
}

func (r *cliReporter) OnPortFound(f scanner.PortFound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.found = append(r.found, f)
}

func newScanCmd() *cobra.Command {
	var (
		subnet  string
		ports   []int
		timeout time.Duration
		preset  string
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "LANをスキャンしてカメラ候補を表示する",
		RunE: func(cmd *cobra.Command, args []string) error {
			quietLogs(os.Stderr)

			opts := cfg.Scan
			if subnet != "" {
				opts.SubnetBase = subnet
			}
			if len(ports) > 0 {
				opts.Ports = ports
			}
			if timeout > 0 {
				opts.ConnectTimeout = timeout
			}
			if err := opts.Validate(); err != nil {
				return err
			}

			var p camera.Preset
			if preset != "" {
				found, ok := camera.FindPreset(preset)
				if !ok {
					return fmt.Errorf("プリセットが見つかりません: %s", preset)
				}
				p = found
			}

			total := (opts.HostEnd - opts.HostStart + 1) * len(opts.Ports)
			bar, err := pterm.DefaultProgressbar.WithTotal(total).WithTitle("スキャン中").Start()
			if err != nil {
				return err
			}

			reporter := &cliReporter{bar: bar}
			start := time.Now()
			cameras, err := scanner.NewEngine(opts, nil, reporter).Scan(cmd.Context())
			_, _ = bar.Stop()
			if err != nil {
				return err
			}

			printPorts(reporter.found)

			if len(cameras) == 0 {
				pterm.Warning.Printfln("カメラ候補は見つかりませんでした (%s)", time.Since(start).Round(time.Millisecond))
				return nil
			}

			sort.Strings(cameras)
			pterm.Success.Printfln("%d 件のカメラ候補 (%s)", len(cameras), time.Since(start).Round(time.Millisecond))
			for _, c := range cameras {
				if preset == "" {
					pterm.Println("  " + c)
					continue
				}
				url, err := camera.ExpandPreset(p, c)
				if err != nil {
					return err
				}
				pterm.Println("  " + url)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&subnet, "subnet", "", "スキャンするサブネット (例: 192.168.0, auto)")
	cmd.Flags().IntSliceVarP(&ports, "ports", "p", nil, "スキャンするポート (例: 80,8080)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "接続タイムアウト")
	cmd.Flags().StringVar(&preset, "preset", "", "候補URLに当てはめるプリセット (ip-camera, droidcam, webcam)")

	return cmd
}

// printPorts は開いていたポートを表で出す
func printPorts(found []scanner.PortFound) {
	if len(found) == 0 {
		return
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].IP != found[j].IP {
			return found[i].IP < found[j].IP
		}
		return found[i].Port < found[j].Port
	})

	data := pterm.TableData{{"IP", "Port", "Service"}}
	for _, f := range found {
		data = append(data, []string{f.IP, fmt.Sprint(f.Port), f.ServiceHint})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
