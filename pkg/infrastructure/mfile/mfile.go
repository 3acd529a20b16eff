package mfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// ゆらぎ複製の複製番号の置換文字列
	NOISE_COPY_PLACEHOLDER = "nxxx"
	// ゆらぎ複製のモチベーション倍率の置換文字列
	NOISE_SCALE_PLACEHOLDER = "axxx"

	timestampFormat = "20060102_150405"
)

// now は出力ファイル名のタイムスタンプ
var now = time.Now

// SplitPath はパスをディレクトリ、ファイル名(拡張子なし)、拡張子に分ける
func SplitPath(path string) (dir, name, ext string) {
	if path == "" {
		return "", "", ""
	}
	dir = filepath.Dir(path)
	ext = filepath.Ext(path)
	name = strings.TrimSuffix(filepath.Base(path), ext)
	return dir, name, ext
}

// CreateOutputPath は <dir>/<name>_<label>_<yyyymmdd_hhmmss><ext> を返す
func CreateOutputPath(originalPath, label string) string {
	return CreateOutputPathWithExt(originalPath, label, "")
}

// CreateOutputPathWithExt は拡張子を差し替えた出力パス。ext が空の場合は元の拡張子
func CreateOutputPathWithExt(originalPath, label, ext string) string {
	dir, name, originalExt := SplitPath(originalPath)
	if name == "" {
		return ""
	}
	if ext == "" {
		ext = originalExt
	}

	fileName := name
	if label != "" {
		fileName = fmt.Sprintf("%s_%s", fileName, label)
	}
	fileName = fmt.Sprintf("%s_%s%s", fileName, now().Format(timestampFormat), ext)

	return filepath.Join(dir, fileName)
}

// CreateNoiseOutputPath は <dir>/<name>_N<size>_<yyyymmdd_hhmmss>_nxxx<ext> を返す
func CreateNoiseOutputPath(originalPath string, noiseSize int, motivation bool) string {
	dir, name, ext := SplitPath(originalPath)
	if name == "" {
		return ""
	}

	placeholder := NOISE_COPY_PLACEHOLDER
	if motivation {
		placeholder = fmt.Sprintf("%s_%s", NOISE_COPY_PLACEHOLDER, NOISE_SCALE_PLACEHOLDER)
	}

	return filepath.Join(dir, fmt.Sprintf("%s_N%d_%s_%s%s",
		name, noiseSize, now().Format(timestampFormat), placeholder, ext))
}

// ReplaceNoisePlaceholders は複製番号(1始まり)とモチベーション倍率をパスに埋め込む
func ReplaceNoisePlaceholders(path string, copyNo int, scale float64) string {
	dir, name, ext := SplitPath(path)
	name = strings.ReplaceAll(name, NOISE_COPY_PLACEHOLDER, fmt.Sprintf("n%03d", copyNo))
	name = strings.ReplaceAll(name, NOISE_SCALE_PLACEHOLDER,
		fmt.Sprintf("a%+03d", int(scale*100+0.5)-100))
	return filepath.Join(dir, name+ext)
}

// ExistsFile はファイルが存在するか
func ExistsFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}
