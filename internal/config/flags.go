package config

import "flag"

var (
	flagConfig   string
	flagDebug    bool
	flagLenient  bool
	flagPreserve bool
	flagEncoding string
)

// AddFlags registers the shared tool flags on fs. Each subcommand calls
// this on its own flag set before parsing.
func AddFlags(fs *flag.FlagSet) {
	fs.StringVar(&flagConfig, "config", "", "Path to config file")
	fs.BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	fs.BoolVar(&flagLenient, "lenient", false, "Clamp bad references and substitute undecodable text")
	fs.BoolVar(&flagPreserve, "preserve-widths", false, "Keep parsed index widths when writing")
	fs.StringVar(&flagEncoding, "encoding", "", "Output text encoding: utf16 or utf8")
}

// ConfigPath returns the explicit config path if provided via -config.
func ConfigPath() string {
	return flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if flagDebug {
		cfg.Logging.Level = "debug"
	}
	if flagLenient {
		cfg.Codec.LenientIndex = true
		cfg.Codec.LenientText = true
	}
	if flagPreserve {
		cfg.Codec.PreserveIndexWidths = true
	}
	if flagEncoding != "" {
		cfg.Codec.TextEncoding = flagEncoding
	}
}
