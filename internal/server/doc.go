// Package server は、HTTPサーバーとServer-Sent Eventsによる通知を管理します。
//
// このパッケージは、HTTPサーバーの起動、ルーティング、
// リクエスト検証、イベント配信を担当します。
//
// 責務:
//   - HTTPサーバーの起動と管理
//   - カメラ操作コマンドのエンドポイント提供
//   - 埋め込みAPI定義 (openapi.yaml) によるリクエスト検証
//   - スキャン進捗とストリーム更新のSSE配信
//
// 仕様:
//   - gin を使用
//   - ストリーム更新は X-Session-ID ごとに振り分ける
//   - グレースフルシャットダウンに対応
//   - 複数クライアントの同時接続をサポート
package server
