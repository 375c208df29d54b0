package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/zurustar/tinyscript/pkg/cli"
	"github.com/zurustar/tinyscript/pkg/compiler"
	"github.com/zurustar/tinyscript/pkg/compiler/ast"
	"github.com/zurustar/tinyscript/pkg/interpreter"
	"github.com/zurustar/tinyscript/pkg/logger"
	"github.com/zurustar/tinyscript/pkg/opcode"
	"github.com/zurustar/tinyscript/pkg/script"
)

// Application はアプリケーションのメインロジックを管理する
type Application struct {
	config *cli.Config
	log    *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

// Option は Application の設定を変更する
type Option func(*Application)

// WithStdout スクリプトの出力先を差し替える
func WithStdout(w io.Writer) Option {
	return func(app *Application) {
		app.stdout = w
	}
}

// WithStderr ログとヘルプ以外の診断の出力先を差し替える
func WithStderr(w io.Writer) Option {
	return func(app *Application) {
		app.stderr = w
	}
}

// New Applicationを作成
func New(opts ...Option) *Application {
	app := &Application{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// Run アプリケーションを実行
func (app *Application) Run(args []string) error {
	// 1. コマンドライン引数の解析
	if err := app.parseArgs(args); err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}

	if app.config.ShowHelp {
		cli.PrintHelp(app.stdout)
		return nil
	}

	// 2. ロガーの初期化
	if err := app.initLogger(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.log.Debug("Application started",
		"command", app.config.Command,
		"script", app.config.ScriptPath,
		"config", app.config.ConfigFile)

	// 3. 出力先の準備
	out, closeOut, err := app.openOutput()
	if err != nil {
		return err
	}
	defer closeOut()

	// 4. スクリプトファイルの読み込み
	s, err := script.NewLoader(app.config.Encoding).Load(app.config.ScriptPath)
	if err != nil {
		return fmt.Errorf("failed to load script: %w", err)
	}

	app.log.Debug("Script loaded", "name", s.FileName, "size", s.Size, "encoding", s.Encoding)
	app.log.Debug("Script content preview", "name", s.FileName, "preview", truncate(s.Content, 100))

	// 5. サブコマンドの実行
	switch app.config.Command {
	case cli.CommandAST:
		err = app.dumpAST(s, out)
	case cli.CommandCompile:
		err = app.compile(s, out)
	default:
		err = app.run(s, out)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", s.FileName, err)
	}

	app.log.Debug("Application terminated normally")
	return nil
}

// parseArgs コマンドライン引数を解析
func (app *Application) parseArgs(args []string) error {
	config, err := cli.ParseArgs(args)
	if err != nil {
		return err
	}
	app.config = config
	return nil
}

// initLogger ロガーを初期化
func (app *Application) initLogger() error {
	if err := logger.InitLogger(app.stderr, app.config.LogLevel, app.config.LogFormat); err != nil {
		return err
	}
	app.log = logger.GetLogger()
	return nil
}

// openOutput 出力先を開く。--output がなければ標準出力を使う
func (app *Application) openOutput() (io.Writer, func(), error) {
	if app.config.Output == "" {
		return app.stdout, func() {}, nil
	}
	f, err := os.Create(app.config.Output)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open output: %w", err)
	}
	return f, func() {
		if err := f.Close(); err != nil {
			app.log.Warn("Failed to close output", "path", app.config.Output, "error", err)
		}
	}, nil
}

// dumpAST 構文木を出力する
func (app *Application) dumpAST(s *script.Script, out io.Writer) error {
	program, err := compiler.Parse(s.Content)
	if err != nil {
		return err
	}
	return ast.Fprint(out, program)
}

// compile 命令列を生成して出力する
func (app *Application) compile(s *script.Script, out io.Writer) error {
	style, err := opcode.ParseStyle(app.config.LabelStyle)
	if err != nil {
		return err
	}

	prog, err := compiler.CompileWithOptions(s.Content, compiler.CompileOptions{Logger: app.log})
	if err != nil {
		return err
	}

	app.log.Debug("Script compiled successfully",
		"instructions", len(prog.Instructions()),
		"functions", len(prog.Functions))
	app.log.Debug("Instructions generated", "preview", formatPreview(prog.Code, 10))

	return opcode.Render(out, prog.Code, style)
}

// run スクリプトを評価する
// 実行時エラーまでに出力された内容はそのまま残る
func (app *Application) run(s *script.Script, out io.Writer) error {
	program, err := compiler.Parse(s.Content)
	if err != nil {
		return err
	}

	in := interpreter.New(
		interpreter.WithOutput(out),
		interpreter.WithLogger(app.log),
		interpreter.WithMaxCallDepth(app.config.MaxDepth),
	)
	result, err := in.Run(program)
	if err != nil {
		return compiler.WithSourceContext(err, s.Content)
	}

	app.log.Debug("Script finished", "result", result.Literal())
	return nil
}

// truncate 文字列を指定の長さ（ルーン数）で切り詰める
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

// formatPreview 先頭 maxCount 個の命令を1行にまとめる
func formatPreview(code []opcode.Instruction, maxCount int) string {
	n := min(len(code), maxCount)
	parts := make([]string, 0, n+1)
	for _, ins := range code[:n] {
		parts = append(parts, strings.TrimSpace(ins.String()))
	}
	if len(code) > maxCount {
		parts = append(parts, fmt.Sprintf("... (%d more)", len(code)-maxCount))
	}
	return strings.Join(parts, "; ")
}
