// Package camera LAN上のHTTPカメラの検出とプレビューの窓口を担う
//
// # 責務
// - ポートスキャンによるカメラ候補の検出
// - URLからの単発キャプチャと可逆形式での保存
// - セッションごとのストリームループの開始と停止
// - スキャン進捗とフレームのイベント通知
//
// # 仕様
// - Service: ホスト (HTTPサーバー / CLI) から呼ばれるコマンドの集合
// - Discovery: カメラ候補の検出 (NetworkDiscovery / MockDiscovery)
// - 共有フレームは1枚だけで、キャプチャとストリームの両方が書き込む
// - 1セッションにつきストリームは1本。再開始すると古いループを止める
// - Thread-safe な操作をサポート
package camera
