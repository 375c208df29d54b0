package script

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/zurustar/tinyscript/pkg/fileutil"
)

func TestNewLoader(t *testing.T) {
	loader := NewLoader("")
	if loader == nil {
		t.Fatal("NewLoader returned nil")
	}
	if loader.Encoding() != Auto {
		t.Errorf("expected encoding %q, got %q", Auto, loader.Encoding())
	}

	if got := NewLoader("shift_jis").Encoding(); got != "shift_jis" {
		t.Errorf("expected encoding 'shift_jis', got %q", got)
	}
}

// writeFile はテスト用ファイルを一時ディレクトリに作成してパスを返す
func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

func TestLoad_UTF8(t *testing.T) {
	testContent := "x := 1\nprintln x + 'です'"
	path := writeFile(t, "test.tiny", []byte(testContent))

	script, err := NewLoader(Auto).Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if script.FileName != "test.tiny" {
		t.Errorf("expected filename 'test.tiny', got %q", script.FileName)
	}
	if script.Content != testContent {
		t.Errorf("content mismatch:\nexpected: %q\ngot: %q", testContent, script.Content)
	}
	if script.Size != int64(len(testContent)) {
		t.Errorf("expected size %d, got %d", len(testContent), script.Size)
	}
	if script.Encoding != Auto {
		t.Errorf("expected encoding %q, got %q", Auto, script.Encoding)
	}
}

func TestLoad_UTF8BOM(t *testing.T) {
	// BOM は取り除かれる
	data := append([]byte{0xEF, 0xBB, 0xBF}, "println 1"...)
	path := writeFile(t, "bom.tiny", data)

	script, err := NewLoader(Auto).Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if script.Content != "println 1" {
		t.Errorf("expected BOM to be stripped, got %q", script.Content)
	}
}

func TestLoad_UTF16BOM(t *testing.T) {
	testContent := "println 'こんにちは'"

	// BOM 付き UTF-16LE は Auto でも指定どおりのエンコーディングでも読める
	encoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	data, _, err := transform.String(encoder, testContent)
	if err != nil {
		t.Fatalf("failed to encode to UTF-16: %v", err)
	}
	path := writeFile(t, "utf16.tiny", []byte(data))

	for _, enc := range []string{Auto, "shift_jis"} {
		script, err := NewLoader(enc).Load(path)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", enc, err)
		}
		if script.Content != testContent {
			t.Errorf("%s: content mismatch:\nexpected: %q\ngot: %q", enc, testContent, script.Content)
		}
	}
}

func TestLoad_ShiftJIS(t *testing.T) {
	testContent := "println 'これはShift-JISのテストです'"

	// UTF-8からShift-JISに変換
	encoder := japanese.ShiftJIS.NewEncoder()
	shiftJISContent, _, err := transform.String(encoder, testContent)
	if err != nil {
		t.Fatalf("failed to encode to Shift-JIS: %v", err)
	}
	path := writeFile(t, "sjis.tiny", []byte(shiftJISContent))

	script, err := NewLoader("sjis").Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if script.Content != testContent {
		t.Errorf("content mismatch:\nexpected: %q\ngot: %q", testContent, script.Content)
	}
}

func TestLoad_CaseInsensitive(t *testing.T) {
	path := writeFile(t, "Fact.TINY", []byte("println 120"))
	lower := filepath.Join(filepath.Dir(path), "fact.tiny")

	script, err := NewLoader(Auto).Load(lower)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if script.Content != "println 120" {
		t.Errorf("unexpected content %q", script.Content)
	}
}

func TestLoad_FileSystem(t *testing.T) {
	sjis, _, err := transform.String(japanese.ShiftJIS.NewEncoder(), "println '埋め込み'")
	if err != nil {
		t.Fatalf("failed to encode to Shift-JIS: %v", err)
	}
	fsys := fstest.MapFS{
		"scripts/Legacy.TINY": {Data: []byte(sjis)},
		"scripts/lib":         {Mode: fs.ModeDir},
	}
	loader := NewLoader("shift_jis", WithFileSystem(fileutil.NewFS(fsys, "scripts")))

	script, err := loader.Load("legacy.tiny")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if script.Content != "println '埋め込み'" {
		t.Errorf("unexpected content %q", script.Content)
	}
	if script.FileName != "Legacy.TINY" || script.Path != "scripts/Legacy.TINY" {
		t.Errorf("unexpected name %q / path %q", script.FileName, script.Path)
	}
	if script.Size != int64(len(sjis)) {
		t.Errorf("Size = %d, want %d", script.Size, len(sjis))
	}

	if _, err := loader.Load("lib"); err == nil {
		t.Error("expected error for a directory")
	}
	if _, err := loader.Load("missing.tiny"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	path := writeFile(t, "ok.tiny", []byte("println 1"))

	testCases := []struct {
		name     string
		encoding string
		path     string
	}{
		{name: "存在しないファイル", encoding: Auto, path: filepath.Join(t.TempDir(), "missing.tiny")},
		{name: "ディレクトリ", encoding: Auto, path: t.TempDir()},
		{name: "不明なエンコーディング", encoding: "no-such-encoding", path: path},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewLoader(tc.encoding).Load(tc.path); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestDecode(t *testing.T) {
	testCases := []struct {
		name     string
		input    []byte
		encoding string
		want     string
		wantErr  bool
	}{
		{
			name:     "英数字",
			input:    []byte("Hello World 123"),
			encoding: "utf-8",
			want:     "Hello World 123",
		},
		{
			name:     "Windows-1252",
			input:    []byte{'c', 'a', 'f', 0xE9},
			encoding: "windows-1252",
			want:     "café",
		},
		{
			name:     "EUC-JP",
			input:    []byte{0xA4, 0xA2},
			encoding: "euc-jp",
			want:     "あ",
		},
		{
			name:     "不正なUTF-8は置換文字になる",
			input:    []byte{'a', 0xFF, 'b'},
			encoding: Auto,
			want:     "a�b",
		},
		{
			name:     "不明なエンコーディング",
			input:    []byte("x"),
			encoding: "klingon",
			wantErr:  true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode(tc.input, tc.encoding)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Decode() error = %v, wantErr %v", err, tc.wantErr)
			}
			if !tc.wantErr && got != tc.want {
				t.Errorf("Decode() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDecode_ShiftJISRoundTrip(t *testing.T) {
	for _, input := range []string{"こんにちは世界", "Hello こんにちは 123"} {
		encoder := japanese.ShiftJIS.NewEncoder()
		data, _, err := transform.String(encoder, input)
		if err != nil {
			t.Fatalf("failed to encode to Shift-JIS: %v", err)
		}

		got, err := Decode([]byte(data), "shift_jis")
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if got != input {
			t.Errorf("Decode() = %q, want %q", got, input)
		}
	}
}
