package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/mmdkit/pkg/model"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Codec.TextEncoding != "" {
		t.Errorf("Codec.TextEncoding = %q, want empty", cfg.Codec.TextEncoding)
	}
	if cfg.Codec.LenientIndex || cfg.Codec.LenientText {
		t.Error("codec should be strict by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Codec.TextEncoding = "shift_jis"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown text encoding")
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yaml")

	cfg := Default()
	cfg.Codec.TextEncoding = "utf8"
	cfg.Codec.PreserveIndexWidths = true
	cfg.Logging.Level = "debug"

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("loadFromFile: %v", err)
	}

	if loaded.Codec.TextEncoding != "utf8" {
		t.Errorf("TextEncoding = %q, want utf8", loaded.Codec.TextEncoding)
	}
	if !loaded.Codec.PreserveIndexWidths {
		t.Error("PreserveIndexWidths not round-tripped")
	}
	if loaded.Logging.Level != "debug" {
		t.Errorf("Level = %q, want debug", loaded.Logging.Level)
	}
}

func TestLoadFilePreservesUnsetDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	// Partial file: codec section only.
	partial := "codec:\n  lenient_index: true\n"
	if err := os.WriteFile(path, []byte(partial), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, path); err != nil {
		t.Fatalf("loadFromFile: %v", err)
	}

	if !cfg.Codec.LenientIndex {
		t.Error("lenient_index not applied")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("untouched Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestCodecOptions(t *testing.T) {
	cc := CodecConfig{
		TextEncoding:        "utf16",
		PreserveIndexWidths: true,
		LenientIndex:        true,
	}

	po := cc.ParseOptions()
	if !po.LenientIndex || po.LenientText {
		t.Errorf("ParseOptions = %+v", po)
	}

	eo := cc.EncodeOptions()
	if !eo.PreserveIndexWidths {
		t.Error("PreserveIndexWidths not mapped")
	}
	if eo.TextEncoding == nil || *eo.TextEncoding != model.TextUTF16 {
		t.Errorf("TextEncoding = %v, want utf16", eo.TextEncoding)
	}

	cc.TextEncoding = ""
	if opts := cc.EncodeOptions(); opts.TextEncoding != nil {
		t.Error("empty encoding must not force a text encoding")
	}
}
