package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/zurustar/tinyscript/pkg/logger"
	"github.com/zurustar/tinyscript/pkg/opcode"
	"github.com/zurustar/tinyscript/pkg/script"
)

// サブコマンド
const (
	CommandRun     = "run"
	CommandCompile = "compile"
	CommandAST     = "ast"
)

// Config はコマンドライン引数・環境変数・設定ファイルから組み立てた設定を保持する
type Config struct {
	Command    string `toml:"-"`              // サブコマンド（run, compile, ast）
	ScriptPath string `toml:"-"`              // スクリプトファイルのパス
	ConfigFile string `toml:"-"`              // 読み込んだ設定ファイル
	ShowHelp   bool   `toml:"-"`              // ヘルプ表示フラグ
	LogLevel   string `toml:"log_level"`      // ログレベル（debug, info, warn, error）
	LogFormat  string `toml:"log_format"`     // ログ形式（text, json）
	Encoding   string `toml:"encoding"`       // スクリプトの文字コード
	LabelStyle string `toml:"label_style"`    // compile のラベル表示（flat, nested）
	MaxDepth   int    `toml:"max_call_depth"` // 関数呼び出しの深さの上限（0は無制限）
	Output     string `toml:"output"`         // 出力先ファイル（空なら標準出力）
}

// DefaultConfig 組み込みのデフォルト設定を返す
func DefaultConfig() *Config {
	return &Config{
		Command:    CommandRun,
		LogLevel:   "info",
		LogFormat:  "text",
		Encoding:   script.Auto,
		LabelStyle: "flat",
	}
}

// 環境変数名
const (
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"
	EnvEncoding  = "TINYSCRIPT_ENCODING"
)

// flagValues はコマンドラインフラグの値を一時的に保持する
type flagValues struct {
	logLevel   string
	logFormat  string
	encoding   string
	labelStyle string
	maxDepth   int
	output     string
	configFile string
	help       bool
}

// ParseArgs コマンドライン引数を解析してConfigを返す
// 優先順位は デフォルト < 設定ファイル < 環境変数 < コマンドラインフラグ
func ParseArgs(args []string) (*Config, error) {
	// 引数を並べ替え：フラグを前に、位置引数を後ろに
	reorderedArgs := reorderArgs(args)

	fs := flag.NewFlagSet("tinyscript", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var fv flagValues
	fs.StringVar(&fv.logLevel, "log-level", "", "ログレベル（debug, info, warn, error）")
	fs.StringVar(&fv.logLevel, "l", "", "ログレベル（短縮形）")
	fs.StringVar(&fv.logFormat, "log-format", "", "ログ形式（text, json）")
	fs.StringVar(&fv.encoding, "encoding", "", "スクリプトの文字コード")
	fs.StringVar(&fv.encoding, "e", "", "スクリプトの文字コード（短縮形）")
	fs.StringVar(&fv.labelStyle, "label-style", "", "ラベルの表示形式（flat, nested）")
	fs.IntVar(&fv.maxDepth, "max-call-depth", 0, "関数呼び出しの深さの上限")
	fs.StringVar(&fv.output, "output", "", "出力先ファイル")
	fs.StringVar(&fv.output, "o", "", "出力先ファイル（短縮形）")
	fs.StringVar(&fv.configFile, "config", "", "設定ファイル（TOML）")
	fs.StringVar(&fv.configFile, "c", "", "設定ファイル（短縮形）")
	fs.BoolVar(&fv.help, "help", false, "ヘルプを表示")
	fs.BoolVar(&fv.help, "h", false, "ヘルプを表示（短縮形）")

	if err := fs.Parse(reorderedArgs); err != nil {
		return nil, err
	}

	config := DefaultConfig()
	config.ShowHelp = fv.help

	// 設定ファイル
	if fv.configFile != "" {
		if err := loadConfigFile(fv.configFile, config); err != nil {
			return nil, err
		}
		config.ConfigFile = fv.configFile
	}

	// 環境変数からの設定（コマンドラインフラグが優先）
	applyEnv(config)

	// 明示的に指定されたフラグだけを反映する
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "log-level", "l":
			config.LogLevel = strings.ToLower(fv.logLevel)
		case "log-format":
			config.LogFormat = strings.ToLower(fv.logFormat)
		case "encoding", "e":
			config.Encoding = fv.encoding
		case "label-style":
			config.LabelStyle = strings.ToLower(fv.labelStyle)
		case "max-call-depth":
			config.MaxDepth = fv.maxDepth
		case "output", "o":
			config.Output = fv.output
		}
	})

	if err := parsePositional(fs.Args(), config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// loadConfigFile TOML の設定ファイルを config に読み込む
// 未知のキーはタイプミスの可能性が高いのでエラーにする
func loadConfigFile(path string, config *Config) error {
	md, err := toml.DecodeFile(path, config)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return fmt.Errorf("unknown keys in config file %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// applyEnv 環境変数の値で設定を上書きする
func applyEnv(config *Config) {
	if v := os.Getenv(EnvLogLevel); v != "" {
		config.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		config.LogFormat = strings.ToLower(v)
	}
	if v := os.Getenv(EnvEncoding); v != "" {
		config.Encoding = v
	}
}

// parsePositional 位置引数（サブコマンドとスクリプトのパス）を解釈する
// サブコマンドを省略してファイルだけを渡した場合は run として扱う
func parsePositional(args []string, config *Config) error {
	switch len(args) {
	case 0:
		if config.ShowHelp {
			return nil
		}
		return fmt.Errorf("missing script file")
	case 1:
		if isCommand(args[0]) {
			if config.ShowHelp {
				config.Command = args[0]
				return nil
			}
			return fmt.Errorf("missing script file for %s", args[0])
		}
		config.Command = CommandRun
		config.ScriptPath = args[0]
	case 2:
		if !isCommand(args[0]) {
			return fmt.Errorf("unknown command: %s (must be run, compile, or ast)", args[0])
		}
		config.Command = args[0]
		config.ScriptPath = args[1]
	default:
		return fmt.Errorf("too many arguments: %s", strings.Join(args, " "))
	}
	return nil
}

func isCommand(s string) bool {
	switch s {
	case CommandRun, CommandCompile, CommandAST:
		return true
	}
	return false
}

// Validate 設定値を検証する
func (c *Config) Validate() error {
	// ログレベルの検証
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	// ログ形式の検証
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.LogFormat)
	}

	// ラベル表示形式の検証
	if _, err := opcode.ParseStyle(c.LabelStyle); err != nil {
		return err
	}

	// 文字コードの検証
	if _, err := script.Decoder(c.Encoding); err != nil {
		return err
	}

	if c.MaxDepth < 0 {
		return fmt.Errorf("max call depth must be non-negative, got %d", c.MaxDepth)
	}
	return nil
}

// reorderArgs 引数を並べ替えて、フラグを前に、位置引数を後ろに配置する
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// "--" 以降はすべて位置引数
		if arg == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}

		// フラグかどうかを判定（-または--で始まる）
		if len(arg) > 1 && arg[0] == '-' {
			flags = append(flags, arg)

			// 次の引数が値である可能性をチェック
			// （-l debug のような場合。--log-level=debug の形は1つで完結する）
			if strings.Contains(arg, "=") || isBoolFlag(arg) {
				continue
			}
			if i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			// 位置引数
			positional = append(positional, arg)
		}
	}

	// フラグを前に、位置引数を後ろに配置
	return append(flags, positional...)
}

func isBoolFlag(arg string) bool {
	switch strings.TrimLeft(arg, "-") {
	case "h", "help":
		return true
	}
	return false
}

// PrintHelp ヘルプメッセージを表示
func PrintHelp(w io.Writer) {
	fmt.Fprintf(w, `tinyscript - tinyscript interpreter and compiler

Usage:
  tinyscript [options] [command] <file>

Commands:
  run        スクリプトを評価して実行する（省略時のデフォルト）
  compile    スタックマシンの命令列を出力する
  ast        構文木を出力する

Options:
  -l, --log-level <level>     ログレベル: debug, info, warn, error（デフォルト: info）
  --log-format <format>       ログ形式: text, json（デフォルト: text）
  -e, --encoding <name>       スクリプトの文字コード: auto, utf-8, shift_jis, euc-jp など（デフォルト: auto）
  --label-style <style>       compile のラベル表示: flat, nested（デフォルト: flat）
  --max-call-depth <n>        関数呼び出しの深さの上限（デフォルト: 0 = 無制限）
  -o, --output <file>         出力先ファイル（デフォルト: 標準出力）
  -c, --config <file>         設定ファイル（TOML）
  -h, --help                  このヘルプを表示

Environment Variables:
  LOG_LEVEL=<level>           ログレベル
  LOG_FORMAT=<format>         ログ形式
  TINYSCRIPT_ENCODING=<name>  スクリプトの文字コード

Config file keys:
  log_level, log_format, encoding, label_style, max_call_depth, output

Examples:
  tinyscript hello.tiny                     スクリプトを実行
  tinyscript compile --label-style nested fact.tiny
  tinyscript ast fact.tiny
  tinyscript -e shift_jis run legacy.tiny   Shift-JIS のスクリプトを実行
  LOG_LEVEL=debug tinyscript run fact.tiny  デバッグログを有効化
`)
}
