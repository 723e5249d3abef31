// Package config loads tool settings from YAML with flag overrides.
package config

import (
	"fmt"

	"github.com/Faultbox/mmdkit/pkg/model"
	"github.com/Faultbox/mmdkit/pkg/pmx"
)

// Config holds all mmdkit tool settings.
type Config struct {
	Codec   CodecConfig   `yaml:"codec"`
	Logging LoggingConfig `yaml:"logging"`
}

// CodecConfig controls how models are parsed and written.
type CodecConfig struct {
	// TextEncoding selects the string encoding for written models,
	// "utf16" or "utf8". Empty keeps the document's own encoding.
	TextEncoding string `yaml:"text_encoding"`
	// PreserveIndexWidths re-emits parsed index widths instead of
	// recomputing minimal ones.
	PreserveIndexWidths bool `yaml:"preserve_index_widths"`
	// LenientIndex clamps out-of-range references during parsing
	// instead of failing.
	LenientIndex bool `yaml:"lenient_index"`
	// LenientText substitutes undecodable characters instead of
	// failing.
	LenientText bool `yaml:"lenient_text"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Codec: CodecConfig{
			TextEncoding:        "",
			PreserveIndexWidths: false,
			LenientIndex:        false,
			LenientText:         false,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports configuration values the tools cannot act on.
func (c *Config) Validate() error {
	switch c.Codec.TextEncoding {
	case "", "utf16", "utf8":
	default:
		return fmt.Errorf("config: unknown text encoding %q", c.Codec.TextEncoding)
	}
	return nil
}

// ParseOptions maps the codec settings onto PMX parse options.
func (c *CodecConfig) ParseOptions() pmx.ParseOptions {
	return pmx.ParseOptions{
		LenientIndex: c.LenientIndex,
		LenientText:  c.LenientText,
	}
}

// EncodeOptions maps the codec settings onto PMX encode options.
func (c *CodecConfig) EncodeOptions() pmx.EncodeOptions {
	opts := pmx.EncodeOptions{
		PreserveIndexWidths: c.PreserveIndexWidths,
	}
	switch c.TextEncoding {
	case "utf16":
		enc := model.TextUTF16
		opts.TextEncoding = &enc
	case "utf8":
		enc := model.TextUTF8
		opts.TextEncoding = &enc
	}
	return opts
}
