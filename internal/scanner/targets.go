package scanner

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// parseSubnetBase は "192.168.1" 形式の文字列を検証し3オクテットを返す
func parseSubnetBase(base string) ([3]byte, error) {
	var out [3]byte
	parts := strings.Split(base, ".")
	if len(parts) != 3 {
		return out, fmt.Errorf("無効なサブネット: %q", base)
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return out, fmt.Errorf("無効なサブネット: %q", base)
		}
		out[i] = byte(n)
	}
	return out, nil
}

// BuildTargets はアドレスとポートの直積を決定的な順序で生成する
// 順序はアドレス昇順、その中でポートの指定順
func BuildTargets(base string, opts Options) ([]Target, error) {
	if _, err := parseSubnetBase(base); err != nil {
		return nil, err
	}

	targets := make([]Target, 0, (opts.HostEnd-opts.HostStart+1)*len(opts.Ports))
	for host := opts.HostStart; host <= opts.HostEnd; host++ {
		addr := fmt.Sprintf("%s.%d", base, host)
		for _, port := range opts.Ports {
			targets = append(targets, Target{Address: addr, Port: uint16(port)})
		}
	}
	return targets, nil
}

// CameraURL はカメラ候補のベースURLを返す
func CameraURL(addr string, port uint16) string {
	return fmt.Sprintf("http://%s:%d", addr, port)
}

// DetectSubnetBase は最初に見つかった非ループバックIPv4インターフェースの /24 を返す
func DetectSubnetBase() (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", fmt.Errorf("ネットワークインターフェースの取得に失敗: %w", err)
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			if ip4 := ipNet.IP.To4(); ip4 != nil {
				return fmt.Sprintf("%d.%d.%d", ip4[0], ip4[1], ip4[2]), nil
			}
		}
	}

	return "", fmt.Errorf("利用可能なIPv4インターフェースが見つかりません")
}

// resolveBase は SubnetBase を具体的な値に解決する
func resolveBase(opts Options) (string, error) {
	if opts.SubnetBase == SubnetAuto {
		return DetectSubnetBase()
	}
	return opts.SubnetBase, nil
}
