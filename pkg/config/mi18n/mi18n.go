package mi18n

import (
	"encoding/json"
	"io/fs"
	"path"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

var (
	mu        sync.RWMutex
	bundle    = i18n.NewBundle(language.Japanese)
	localizer = i18n.NewLocalizer(bundle, "ja")
	lang      = "ja"
)

// Initialize は i18n ディレクトリ配下のメッセージカタログを読み込み、表示言語を設定する
func Initialize(files fs.FS, langName string) error {
	mu.Lock()
	defer mu.Unlock()

	b := i18n.NewBundle(language.Japanese)
	b.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := fs.ReadDir(files, "i18n")
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".json" {
			continue
		}
		name := path.Join("i18n", entry.Name())
		data, err := fs.ReadFile(files, name)
		if err != nil {
			return err
		}
		if _, err := b.ParseMessageFileBytes(data, name); err != nil {
			return err
		}
	}

	if langName != "en" {
		langName = "ja"
	}
	bundle = b
	lang = langName
	localizer = i18n.NewLocalizer(bundle, langName)

	return nil
}

func Lang() string {
	mu.RLock()
	defer mu.RUnlock()
	return lang
}

// T はメッセージを取得する。未定義の場合はキーをそのまま返す
func T(key string, params ...map[string]interface{}) string {
	mu.RLock()
	defer mu.RUnlock()

	config := &i18n.LocalizeConfig{MessageID: key}
	if len(params) > 0 {
		config.TemplateData = params[0]
	}

	message, err := localizer.Localize(config)
	if err != nil || message == "" {
		return key
	}
	return message
}
