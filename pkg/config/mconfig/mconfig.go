package mconfig

import (
	"bytes"
	"io/fs"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// AppConfig はアプリ全体の設定
type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	Env     string `mapstructure:"-"`

	Lang     string `mapstructure:"lang"`
	LogLevel string `mapstructure:"log_level"`
	LogDir   string `mapstructure:"log_dir"`

	// 不要キー削除の許容誤差
	ReduceDegree float64 `mapstructure:"reduce_degree"`
	ReduceLength float64 `mapstructure:"reduce_length"`

	// IK
	IkMaxCount   int     `mapstructure:"ik_max_count"`
	IkEpsilon    float64 `mapstructure:"ik_epsilon"`
	IkNoiseFloor float64 `mapstructure:"ik_noise_floor"`

	// 並列数の上限
	MaxWorkersLight int `mapstructure:"max_workers_light"`
	MaxWorkersHeavy int `mapstructure:"max_workers_heavy"`

	// 進捗ログの間隔(フレーム数)
	ProgressInterval int `mapstructure:"progress_interval"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("name", "MotionSupporter")
	v.SetDefault("version", "0.0.1")
	v.SetDefault("lang", "ja")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_dir", "logs")
	v.SetDefault("reduce_degree", 0.5)
	v.SetDefault("reduce_length", 0.05)
	v.SetDefault("ik_max_count", 10)
	v.SetDefault("ik_epsilon", 0.1)
	v.SetDefault("ik_noise_floor", 0.05)
	v.SetDefault("max_workers_light", 32)
	v.SetDefault("max_workers_heavy", 5)
	v.SetDefault("progress_interval", 1000)
}

// NewViper は既定値を設定した viper を返す
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("MOTION_SUPPORTER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// LoadAppConfig は埋め込み設定(app/app_config.yaml)、設定ファイル、フラグの順に上書きして設定を読み込む
func LoadAppConfig(appFiles fs.FS, configPath string, flags *pflag.FlagSet) (*AppConfig, error) {
	v := NewViper()

	if appFiles != nil {
		if data, err := fs.ReadFile(appFiles, "app/app_config.yaml"); err == nil {
			v.SetConfigType("yaml")
			if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
				return nil, errors.Wrap(err, "embedded app config")
			}
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, errors.Wrapf(err, "config file %s", configPath)
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*AppConfig, error) {
	config := &AppConfig{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errors.WithStack(err)
	}
	return config, nil
}

// DefaultAppConfig は既定値のみの設定
func DefaultAppConfig() *AppConfig {
	config, _ := unmarshal(NewViper())
	return config
}
