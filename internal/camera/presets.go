package camera

import (
	"fmt"
	"net/url"
	"strings"
)

var presets = []Preset{
	{
		ID:       "ip-camera",
		Name:     "IP Camera",
		Pattern:  "http://{ip}:{port}/video",
		Examples: []string{"http://192.168.1.100:8080/video"},
	},
	{
		ID:       "droidcam",
		Name:     "DroidCam",
		Pattern:  "http://{ip}:4747/video",
		Examples: []string{"http://192.168.1.100:4747/video"},
	},
	{
		ID:       "webcam",
		Name:     "WebCam",
		Pattern:  "http://{ip}/video",
		Examples: []string{"http://192.168.1.100/video"},
	},
}

// Presets はプリセット一覧のコピーを返す
func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// FindPreset はIDからプリセットを探す
func FindPreset(id string) (Preset, bool) {
	for _, p := range presets {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}

// ExpandPreset はスキャン結果のURL (http://ip:port) をプリセットに当てはめる
func ExpandPreset(p Preset, candidate string) (string, error) {
	u, err := url.Parse(candidate)
	if err != nil || u.Hostname() == "" {
		return "", fmt.Errorf("カメラ候補のURLが不正です: %q", candidate)
	}

	port := u.Port()
	if port == "" {
		port = "80"
	}

	r := strings.NewReplacer("{ip}", u.Hostname(), "{port}", port)
	return r.Replace(p.Pattern), nil
}
