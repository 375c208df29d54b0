package script

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/zurustar/tinyscript/pkg/fileutil"
)

// Auto は BOM を見て UTF-8 / UTF-16 を判別し、BOM がなければ UTF-8 として読む
const Auto = "auto"

// Script はスクリプトファイルを表す
type Script struct {
	FileName string // ファイル名
	Path     string // 読み込んだパス
	Content  string // UTF-8に変換された内容
	Size     int64  // ファイルサイズ
	Encoding string // デコードに使ったエンコーディング名
}

// Loader はスクリプトファイルの読み込みを行う
type Loader struct {
	encoding string
	fsys     fileutil.FileSystem
}

// LoaderOption は Loader の設定を変更する
type LoaderOption func(*Loader)

// WithFileSystem 読み込み元のファイルシステムを差し替える
// デフォルトはカレントディレクトリを基準にした実ファイルシステム
func WithFileSystem(fsys fileutil.FileSystem) LoaderOption {
	return func(l *Loader) {
		l.fsys = fsys
	}
}

// NewLoader Loaderを作成
// encoding が空文字列のときは Auto を使う
func NewLoader(encoding string, opts ...LoaderOption) *Loader {
	if encoding == "" {
		encoding = Auto
	}
	l := &Loader{
		encoding: encoding,
		fsys:     fileutil.NewRealFS(""),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Encoding ローダーが使うエンコーディング名を返す
func (l *Loader) Encoding() string {
	return l.encoding
}

// Load 単一のスクリプトファイルを読み込み、UTF-8に変換する
// ファイル名の大文字小文字が一致しなくても、同じディレクトリにあれば読み込む
func (l *Loader) Load(name string) (*Script, error) {
	// デコーダーを先に作り、不正なエンコーディング名はファイルを開く前に弾く
	dec, err := Decoder(l.encoding)
	if err != nil {
		return nil, err
	}

	// 実際のパスを解決してファイル情報を取得
	resolved, err := l.fsys.Resolve(name)
	if err != nil {
		return nil, fmt.Errorf("failed to find file: %w", err)
	}
	info, err := l.fsys.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", resolved)
	}

	// ファイルを読み込む
	data, err := l.fsys.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	content, _, err := transform.Bytes(dec, data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s as %s: %w", resolved, l.encoding, err)
	}

	return &Script{
		FileName: path.Base(filepath.ToSlash(resolved)),
		Path:     resolved,
		Content:  string(content),
		Size:     info.Size(),
		Encoding: l.encoding,
	}, nil
}

// Decode data を name のエンコーディングとして UTF-8 文字列に変換する
func Decode(data []byte, name string) (string, error) {
	dec, err := Decoder(name)
	if err != nil {
		return "", err
	}
	out, _, err := transform.Bytes(dec, data)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return string(out), nil
}

// Decoder エンコーディング名からデコーダーを作る
//
// どのエンコーディングでも先頭に UTF-8 / UTF-16 の BOM があればそちらを優先する。
// 名前は "auto"、"shift_jis" 系の別名、WHATWG のラベル（"utf-16le"、
// "euc-jp"、"windows-1252" など）を受け付ける。
func Decoder(name string) (transform.Transformer, error) {
	enc, err := lookup(name)
	if err != nil {
		return nil, err
	}
	return unicode.BOMOverride(enc.NewDecoder()), nil
}

// lookup エンコーディング名を解決する
func lookup(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", Auto, "utf-8", "utf8":
		return unicode.UTF8, nil
	case "shift_jis", "shift-jis", "sjis", "cp932", "windows-31j":
		// Shift-JIS は CP932 の拡張文字も含めて japanese.ShiftJIS で読む
		return japanese.ShiftJIS, nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	return enc, nil
}
