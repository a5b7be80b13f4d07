package app

import "strings"

// Command はアプリケーションの起動モードを表す。
// 1つのバイナリでAPIサーバーとクロールワーカーの両方を動かすため、
// 先頭の引数でモードを切り替える。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	// 分析・管理者・レビュー生成の各ルートを提供する。
	CommandServe Command = "serve"
	// CommandWorker はクロールワーカーモードで起動することを示す。
	// スケジューラーが即時に起動し、店舗統計の収集を開始する。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションのみ実行して終了することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// commands は認識するサブコマンドの一覧。
var commands = map[string]Command{
	"serve":       CommandServe,
	"worker":      CommandWorker,
	"migrate":     CommandMigrate,
	"healthcheck": CommandHealthcheck,
}

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 大文字小文字は区別しない。引数が空またはサポート外のコマンドの
// 場合はCommandServeを返す。後続の引数はモード側で解釈するため無視する。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	if cmd, ok := commands[strings.ToLower(args[0])]; ok {
		return cmd
	}
	return CommandServe
}
