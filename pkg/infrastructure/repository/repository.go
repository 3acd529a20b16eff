package repository

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/miu200521358/motion_supporter/pkg/config/merr"
	"github.com/pkg/errors"
)

// IRepository はモデル・モーションの読み書き
type IRepository interface {
	CanLoad(path string) (bool, error)
	Load(path string) (any, error)
	// Save は data を path に保存する。includeSystem が false の場合、処理用ボーンは書き出さない
	Save(path string, data any, includeSystem bool) error
}

// canLoad は拡張子と存在確認
func canLoad(path string, exts ...string) (bool, error) {
	if path == "" {
		return false, merr.NewNameNotFoundError(path)
	}
	ext := filepath.Ext(path)
	matched := false
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			matched = true
			break
		}
	}
	if !matched {
		return false, errors.Errorf("unsupported extension: %s", path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, errors.WithStack(err)
	}
	if info.IsDir() {
		return false, errors.Errorf("directory: %s", path)
	}
	return true, nil
}

// createFile は出力先ディレクトリを作成してファイルを開く
func createFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.WithStack(err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return f, nil
}
