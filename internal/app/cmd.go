package app

import (
	"fmt"
	"strconv"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はWebサーバーモード。引数なしの場合もこのモードで起動する。
	CommandServe Command = "serve"
	// CommandWorker はクリーンアップワーカーモード。
	CommandWorker Command = "worker"
	// CommandMigrate はマイグレーションの適用。`migrate down N` で直近N件を巻き戻す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はdistrolessコンテナのヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

var commands = map[string]Command{
	string(CommandServe):       CommandServe,
	string(CommandWorker):      CommandWorker,
	string(CommandMigrate):     CommandMigrate,
	string(CommandHealthcheck): CommandHealthcheck,
}

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}
	if cmd, ok := commands[args[0]]; ok {
		return cmd
	}
	return CommandServe
}

// migrateAction はmigrateサブコマンドの動作。
type migrateAction struct {
	down  bool
	steps int
}

// parseMigrateArgs は`migrate`以降の引数を解析する。
// 引数なしは全適用、`down`は1件、`down N`はN件の巻き戻し。
func parseMigrateArgs(args []string) (migrateAction, error) {
	if len(args) == 0 || args[0] == "up" {
		return migrateAction{}, nil
	}
	if args[0] != "down" {
		return migrateAction{}, fmt.Errorf("unknown migrate action %q", args[0])
	}

	action := migrateAction{down: true, steps: 1}
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return migrateAction{}, fmt.Errorf("invalid rollback steps %q", args[1])
		}
		action.steps = n
	}
	return action, nil
}
