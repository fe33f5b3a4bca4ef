package config

import (
	"fmt"
	"path/filepath"
	"strings"

	internal "github.com/zpeng1989/bertology-sklearn/bertology"
	"github.com/zpeng1989/bertology-sklearn/bertology/features"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Bertology BertologyConfig `mapstructure:"bertology"`
}

// BertologyConfig stores encoding-pipeline configurations.
type BertologyConfig struct {
	Encoding EncodingConfig `mapstructure:"encoding"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Workers  int            `mapstructure:"workers"`
	// ModelName identifies the pretrained model; it participates in cache keys.
	ModelName string `mapstructure:"modelName"`
	// VocabPath points at the tokenizer vocab.txt (file or containing directory).
	VocabPath string `mapstructure:"vocabPath"`
}

// EncodingConfig mirrors the encoder option surface.
type EncodingConfig struct {
	MaxSeqLength        int    `mapstructure:"maxSeqLength"`
	ClsToken            string `mapstructure:"clsToken"`
	ClsTokenAtEnd       bool   `mapstructure:"clsTokenAtEnd"`
	ClsTokenSegmentID   int64  `mapstructure:"clsTokenSegmentId"`
	SepToken            string `mapstructure:"sepToken"`
	SepTokenExtra       bool   `mapstructure:"sepTokenExtra"`
	PadOnLeft           bool   `mapstructure:"padOnLeft"`
	PadToken            int64  `mapstructure:"padToken"`
	PadTokenSegmentID   int64  `mapstructure:"padTokenSegmentId"`
	PadTokenLabelID     int64  `mapstructure:"padTokenLabelId"`
	SequenceASegmentID  int64  `mapstructure:"sequenceASegmentId"`
	MaskPaddingWithZero bool   `mapstructure:"maskPaddingWithZero"`
	Nested              bool   `mapstructure:"nested"`
}

// Options converts the decoded encoding section into encoder options.
func (c EncodingConfig) Options() features.Options {
	return features.Options{
		MaxSeqLength:        c.MaxSeqLength,
		ClsToken:            c.ClsToken,
		ClsTokenAtEnd:       c.ClsTokenAtEnd,
		ClsTokenSegmentID:   c.ClsTokenSegmentID,
		SepToken:            c.SepToken,
		SepTokenExtra:       c.SepTokenExtra,
		PadOnLeft:           c.PadOnLeft,
		PadToken:            c.PadToken,
		PadTokenSegmentID:   c.PadTokenSegmentID,
		PadTokenLabelID:     c.PadTokenLabelID,
		SequenceASegmentID:  c.SequenceASegmentID,
		MaskPaddingWithZero: c.MaskPaddingWithZero,
		Nested:              c.Nested,
	}
}

// CacheConfig stores dataset-cache settings.
type CacheConfig struct {
	Path           string `mapstructure:"path"`
	OverwriteCache bool   `mapstructure:"overwriteCache"`
}

var AppConfig Config

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("..")
		viper.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		viper.AddConfigPath(internal.DefaultConfigPath)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Set default values
	viper.SetDefault("bertology.encoding.maxSeqLength", 128)
	viper.SetDefault("bertology.encoding.clsToken", "[CLS]")
	viper.SetDefault("bertology.encoding.clsTokenSegmentId", 1)
	viper.SetDefault("bertology.encoding.sepToken", "[SEP]")
	viper.SetDefault("bertology.encoding.padToken", 0)
	viper.SetDefault("bertology.encoding.padTokenSegmentId", 0)
	viper.SetDefault("bertology.encoding.padTokenLabelId", -100)
	viper.SetDefault("bertology.encoding.sequenceASegmentId", 0)
	viper.SetDefault("bertology.encoding.maskPaddingWithZero", true)
	viper.SetDefault("bertology.cache.path", internal.DefaultCacheDB)
	viper.SetDefault("bertology.workers", 0) // 0 selects the builder default
	viper.SetDefault("bertology.modelName", internal.DefaultModelName)

	viper.AutomaticEnv()                                   // Read in environment variables that match
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // e.g. bertology.encoding.maxSeqLength becomes BERTOLOGY_ENCODING_MAXSEQLENGTH

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; defaults will be used.
	}

	err := viper.Unmarshal(&AppConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &AppConfig, nil
}
