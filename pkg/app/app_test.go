package app

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/zurustar/tinyscript/pkg/diag"
	"github.com/zurustar/tinyscript/pkg/opcode"
)

// writeScript はテスト用スクリプトを作成してパスを返す
func writeScript(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create script: %v", err)
	}
	return path
}

// runApp はアプリケーションを実行して標準出力と標準エラー出力を返す
func runApp(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	for _, name := range []string{"LOG_LEVEL", "LOG_FORMAT", "TINYSCRIPT_ENCODING"} {
		t.Setenv(name, "")
	}
	var stdout, stderr bytes.Buffer
	err := New(WithStdout(&stdout), WithStderr(&stderr)).Run(args)
	return stdout.String(), stderr.String(), err
}

func TestRun_Script(t *testing.T) {
	path := writeScript(t, "fact.tiny", `func fact(n)
  if n <= 1 then ret 1 else ret n * fact(n - 1) end
end
println fact(5)
`)

	stdout, stderr, err := runApp(t, "run", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stdout != "120\n" {
		t.Errorf("stdout = %q, want %q", stdout, "120\n")
	}
	if stderr != "" {
		t.Errorf("stderr should be empty at info level, got %q", stderr)
	}
}

func TestRun_DefaultCommand(t *testing.T) {
	path := writeScript(t, "hello.tiny", "println 'hello, ' + 'world'")

	stdout, _, err := runApp(t, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stdout != "hello, world\n" {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestRun_Compile(t *testing.T) {
	path := writeScript(t, "loop.tiny", "i := 0\nwhile i < 3 do println i i := i + 1 end")

	stdout, _, err := runApp(t, "compile", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{".test_0:\n", "\tJMPZ .exit_0\n", "\tJMP .test_0\n", ".exit_0:\n", "\tHALT\n"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("listing should contain %q:\n%s", want, stdout)
		}
	}
}

func TestRun_CompileNested(t *testing.T) {
	path := writeScript(t, "if.tiny", "x := 1\nif x then\nif x then println 1 end\nend")

	flat, _, err := runApp(t, "compile", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	nested, _, err := runApp(t, "compile", "--label-style", "nested", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if flat == nested {
		t.Error("nested style should indent inner labels")
	}
	if strings.ReplaceAll(nested, "  .", ".") != flat {
		t.Errorf("styles should differ only in label indentation:\nflat:\n%s\nnested:\n%s", flat, nested)
	}
}

func TestRun_AST(t *testing.T) {
	path := writeScript(t, "ast.tiny", "x := 1 + 2")

	stdout, _, err := runApp(t, "ast", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Statements\n  Assignment x\n    BinOp \"+\"\n      Number 1\n      Number 2\n"
	if stdout != want {
		t.Errorf("stdout = %q, want %q", stdout, want)
	}
}

func TestRun_OutputFile(t *testing.T) {
	path := writeScript(t, "out.tiny", "print 42")
	outPath := filepath.Join(t.TempDir(), "result.txt")

	stdout, _, err := runApp(t, "-o", outPath, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stdout != "" {
		t.Errorf("stdout should be empty, got %q", stdout)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if string(data) != "42" {
		t.Errorf("output file = %q, want %q", data, "42")
	}
}

func TestRun_ShiftJIS(t *testing.T) {
	encoded, _, err := transform.String(japanese.ShiftJIS.NewEncoder(), "println 'こんにちは'")
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}
	path := writeScript(t, "sjis.tiny", encoded)

	stdout, _, err := runApp(t, "--encoding", "shift_jis", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stdout != "こんにちは\n" {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestRun_DebugLogging(t *testing.T) {
	path := writeScript(t, "log.tiny", "println 1")

	_, stderr, err := runApp(t, "--log-level", "debug", "--log-format", "json", "compile", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stderr, `"msg":"Script compiled successfully"`) {
		t.Errorf("expected JSON debug log on stderr, got %q", stderr)
	}
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name       string
		command    string
		source     string
		wantKind   diag.Kind
		wantStdout string
	}{
		{name: "parse error", command: "run", source: "x := ", wantKind: diag.ParseError},
		{name: "runtime name error keeps output", command: "run", source: "println 1\nprintln y", wantKind: diag.NameError, wantStdout: "1\n"},
		{name: "type error", command: "run", source: "println 'a' - 1", wantKind: diag.TypeError},
		{name: "compile name error", command: "compile", source: "println y", wantKind: diag.NameError},
		{name: "ast lex error", command: "ast", source: "x := 'open", wantKind: diag.LexError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScript(t, "bad.tiny", tt.source)

			stdout, _, err := runApp(t, tt.command, path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if got := diag.KindOf(err); got != tt.wantKind {
				t.Errorf("error kind = %q, want %q (%v)", got, tt.wantKind, err)
			}
			if !strings.HasPrefix(err.Error(), "bad.tiny: ") {
				t.Errorf("error should be prefixed with the file name: %q", err.Error())
			}
			if !strings.Contains(err.Error(), "^") {
				t.Errorf("error should carry source context: %q", err.Error())
			}
			if stdout != tt.wantStdout {
				t.Errorf("stdout = %q, want %q", stdout, tt.wantStdout)
			}
		})
	}
}

func TestRun_MaxCallDepth(t *testing.T) {
	path := writeScript(t, "deep.tiny", "func r(n) ret r(n + 1) end\nr(0)")

	_, _, err := runApp(t, "--max-call-depth", "100", path)
	if !diag.Is(err, diag.StackOverflow) {
		t.Errorf("expected StackOverflow, got %v", err)
	}
}

func TestRun_ArgErrors(t *testing.T) {
	if _, _, err := runApp(t); err == nil {
		t.Error("expected error without a script")
	}
	if _, _, err := runApp(t, filepath.Join(t.TempDir(), "missing.tiny")); err == nil {
		t.Error("expected error for a missing script")
	}
}

func TestRun_Help(t *testing.T) {
	stdout, _, err := runApp(t, "--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "Usage:") {
		t.Errorf("help should be printed to stdout, got %q", stdout)
	}
}

func TestFormatPreview(t *testing.T) {
	code := []opcode.Instruction{
		opcode.New(opcode.Pop),
		opcode.New(opcode.Pop),
		opcode.New(opcode.Halt),
	}
	if got := formatPreview(code, 2); got != "POP; POP; ... (1 more)" {
		t.Errorf("formatPreview() = %q", got)
	}
	if got := formatPreview(code, 10); got != "POP; POP; HALT" {
		t.Errorf("formatPreview() = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("こんにちは", 3); got != "こんに..." {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("abc", 3); got != "abc" {
		t.Errorf("truncate() = %q", got)
	}
}
