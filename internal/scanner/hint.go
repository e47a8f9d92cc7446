package scanner

// serviceHints はポート番号からサービス名への固定テーブル
var serviceHints = map[uint16]string{
	20:   "FTP Data",
	21:   "FTP Control",
	22:   "SSH",
	23:   "Telnet",
	25:   "SMTP",
	53:   "DNS",
	80:   "HTTP",
	110:  "POP3",
	143:  "IMAP",
	443:  "HTTPS",
	445:  "SMB",
	554:  "RTSP",
	1883: "MQTT",
	3306: "MySQL",
	3389: "RDP",
	4747: "IP Camera",
	5432: "PostgreSQL",
	8080: "HTTP Alt/Camera",
	8081: "HTTP Alt/Camera",
	8082: "HTTP Alt/Camera",
	8443: "HTTPS Alt",
}

// UnknownService はテーブルにないポートのラベル
const UnknownService = "Unknown"

// defaultPorts はスキャン対象の標準ポート一覧
var defaultPorts = []int{
	20, 21, 22, 23, 25, 53, 80, 110, 143, 443, 445, 554,
	1883, 3306, 3389, 4747, 5432, 8080, 8081, 8082, 8443,
}

// defaultCameraPorts はHTTPカメラが待ち受けている可能性が高いポート
var defaultCameraPorts = []int{80, 8080, 8081, 8082, 4747, 554}

// ServiceHint はポート番号に対応するサービス名を返す
func ServiceHint(port uint16) string {
	if hint, ok := serviceHints[port]; ok {
		return hint
	}
	return UnknownService
}

// DefaultPorts は標準ポート一覧のコピーを返す
func DefaultPorts() []int {
	out := make([]int, len(defaultPorts))
	copy(out, defaultPorts)
	return out
}

// DefaultCameraPorts はカメラ候補ポート一覧のコピーを返す
func DefaultCameraPorts() []int {
	out := make([]int, len(defaultCameraPorts))
	copy(out, defaultCameraPorts)
	return out
}
