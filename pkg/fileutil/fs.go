package fileutil

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FileSystem はスクリプトの読み込み元を抽象化する
// 実ファイルシステムと fs.FS（embed.FS や fstest.MapFS）を同じように扱う
type FileSystem interface {
	// Resolve は name を実在するパスに解決する
	// そのままでは見つからないとき、最後の要素だけ大文字小文字を無視して探す
	Resolve(name string) (string, error)
	// Stat は Resolve 済みのパスの情報を返す
	Stat(name string) (fs.FileInfo, error)
	// ReadFile は Resolve 済みのパスの内容を読み込む
	ReadFile(name string) ([]byte, error)
}

// RealFS は実ファイルシステムへのアクセスを提供する
type RealFS struct {
	basePath string
}

// NewRealFS は実ファイルシステム用の FileSystem を作成する
// basePath が空でなければ、相対パスは basePath から解決する
func NewRealFS(basePath string) *RealFS {
	return &RealFS{basePath: basePath}
}

// BasePath はベースパスを返す
func (r *RealFS) BasePath() string {
	return r.basePath
}

func (r *RealFS) Resolve(name string) (string, error) {
	p := name
	if r.basePath != "" && !filepath.IsAbs(name) {
		p = filepath.Join(r.basePath, name)
	}

	// まず直接アクセスを試みる
	_, err := os.Stat(p)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	// 大文字小文字を無視して検索
	found, ferr := FindFileCaseInsensitive(filepath.Dir(p), filepath.Base(p))
	if ferr != nil {
		return "", err
	}
	return found, nil
}

func (r *RealFS) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

func (r *RealFS) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

// FS は fs.FS 上のファイルへのアクセスを提供する
type FS struct {
	fsys     fs.FS
	basePath string
}

// NewFS は fs.FS 用の FileSystem を作成する
// パスは "/" 区切りで、basePath が空でなければその下から解決する
func NewFS(fsys fs.FS, basePath string) *FS {
	return &FS{fsys: fsys, basePath: basePath}
}

func (f *FS) Resolve(name string) (string, error) {
	// 先頭の "/" や "\" を除去し、区切りを "/" に揃える
	clean := strings.TrimLeft(strings.ReplaceAll(name, "\\", "/"), "/")
	p := path.Clean(clean)
	if f.basePath != "" {
		p = path.Join(f.basePath, p)
	}

	_, err := fs.Stat(f.fsys, p)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	found, ferr := FindFileCaseInsensitiveFS(f.fsys, path.Dir(p), path.Base(p))
	if ferr != nil {
		return "", err
	}
	return found, nil
}

func (f *FS) Stat(name string) (fs.FileInfo, error) {
	return fs.Stat(f.fsys, name)
}

func (f *FS) ReadFile(name string) ([]byte, error) {
	return fs.ReadFile(f.fsys, name)
}
