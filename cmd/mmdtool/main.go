// mmdtool is a CLI utility for inspecting and rewriting MMD model,
// motion and pose files.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/mmdkit/internal/config"
	"github.com/Faultbox/mmdkit/internal/logger"
	"github.com/Faultbox/mmdkit/pkg/model"
	"github.com/Faultbox/mmdkit/pkg/pmx"
	"github.com/Faultbox/mmdkit/pkg/vmd"
	"github.com/Faultbox/mmdkit/pkg/vpd"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "bones":
		cmdBones(args)
	case "morphs":
		cmdMorphs(args)
	case "validate":
		cmdValidate(args)
	case "roundtrip":
		cmdRoundtrip(args)
	case "fix-order":
		cmdFixOrder(args)
	case "motion-info":
		cmdMotionInfo(args)
	case "pose-info":
		cmdPoseInfo(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`mmdtool - MMD model, motion and pose file utility

Usage:
  mmdtool <command> [options] <args>

Commands:
  info <model.pmx>                  Show model summary
  bones <model.pmx>                 List the skeleton
  morphs <model.pmx>                List morphs
  validate <model.pmx>              Check structure and references
  roundtrip <in.pmx> <out.pmx>      Parse and rewrite a model
  fix-order <in.pmx> <out.pmx>      Renumber bones densely and rewrite
  motion-info <motion.vmd>          Show motion summary
  pose-info <pose.vpd> [model.pmx]  Show a pose, resolved against a model

Shared options (before positional args):
  -config <path>     Explicit config file
  -debug             Debug logging
  -lenient           Clamp bad references, substitute undecodable text
  -preserve-widths   Keep parsed index widths when writing
  -encoding <enc>    Output text encoding: utf16 or utf8

Examples:
  mmdtool info miku.pmx
  mmdtool roundtrip -encoding utf8 miku.pmx miku_utf8.pmx
  mmdtool pose-info wave.vpd miku.pmx`)
}

// setup parses args with the shared flags registered, loads the config
// and initializes logging. Every subcommand funnels through here.
func setup(name string, args []string, positional int, usage string) (*config.Config, []string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	config.AddFlags(fs)
	_ = fs.Parse(args)

	if fs.NArg() < positional {
		fmt.Fprintln(os.Stderr, "Usage: mmdtool "+usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := initLogging(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg, fs.Args()
}

func initLogging(cfg *config.Config) error {
	if cfg.Logging.LogFile != "" {
		return logger.InitWithFile(cfg.Logging.Level, logger.DefaultFileConfig(cfg.Logging.LogFile))
	}
	return logger.Init(cfg.Logging.Level)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func loadModel(cfg *config.Config, path string) *model.Document {
	data, err := os.ReadFile(path)
	if err != nil {
		fatal(err)
	}
	doc, diags, err := pmx.ParseWithOptions(data, cfg.Codec.ParseOptions())
	if err != nil {
		fatal(err)
	}
	for _, d := range diags {
		logger.Warn("clamped reference", zap.String("file", path), zap.String("detail", d.String()))
	}
	return doc
}

func cmdInfo(args []string) {
	cfg, rest := setup("info", args, 1, "info <model.pmx>")
	doc := loadModel(cfg, rest[0])

	enc := "utf16"
	if doc.Encoding == model.TextUTF8 {
		enc = "utf8"
	}

	fmt.Printf("Model:     %s\n", doc.Name)
	if doc.NameEN != "" {
		fmt.Printf("Name (en): %s\n", doc.NameEN)
	}
	fmt.Printf("Version:   %.1f\n", doc.Version)
	fmt.Printf("Encoding:  %s\n", enc)
	fmt.Printf("Extra UVs: %d\n", doc.ExtraUVCount)
	fmt.Println()
	fmt.Printf("Vertices:       %d\n", len(doc.Vertices))
	fmt.Printf("Faces:          %d\n", len(doc.Faces))
	fmt.Printf("Textures:       %d\n", len(doc.Textures))
	fmt.Printf("Materials:      %d\n", len(doc.Materials))
	fmt.Printf("Bones:          %d\n", len(doc.Bones))
	fmt.Printf("Morphs:         %d\n", len(doc.Morphs))
	fmt.Printf("Display frames: %d\n", len(doc.DisplayFrames))
	fmt.Printf("Rigid bodies:   %d\n", len(doc.RigidBodies))
	fmt.Printf("Joints:         %d\n", len(doc.Joints))

	if l := doc.Layout; l != nil {
		fmt.Println()
		fmt.Printf("Index widths: vertex=%d texture=%d material=%d bone=%d morph=%d rigid=%d\n",
			l.Vertex, l.Texture, l.Material, l.Bone, l.Morph, l.RigidBody)
	}
}

func cmdBones(args []string) {
	cfg, rest := setup("bones", args, 1, "bones <model.pmx>")
	doc := loadModel(cfg, rest[0])

	for _, b := range doc.Bones {
		parent := "-"
		if b.Parent.Valid() {
			if p := doc.BoneByIndex(int(b.Parent)); p != nil {
				parent = p.Name
			} else {
				parent = b.Parent.String()
			}
		}
		marks := ""
		if b.IK != nil {
			marks += " [IK]"
		}
		if b.Auxiliary {
			marks += " [aux]"
		}
		fmt.Printf("%4d  %-24s parent=%s%s\n", b.Index, b.Name, parent, marks)
	}
}

func morphKindName(k model.MorphKind) string {
	switch k {
	case model.MorphGroup:
		return "group"
	case model.MorphVertex:
		return "vertex"
	case model.MorphBone:
		return "bone"
	case model.MorphUV:
		return "uv"
	case model.MorphMaterial:
		return "material"
	}
	return fmt.Sprintf("kind(%d)", k)
}

func cmdMorphs(args []string) {
	cfg, rest := setup("morphs", args, 1, "morphs <model.pmx>")
	doc := loadModel(cfg, rest[0])

	panels := []string{"system", "brow", "eye", "mouth", "other"}
	for i := range doc.Morphs {
		m := &doc.Morphs[i]
		panel := fmt.Sprintf("panel(%d)", m.Panel)
		if int(m.Panel) < len(panels) {
			panel = panels[m.Panel]
		}
		fmt.Printf("%4d  %-24s %-8s %s\n", i, m.Name, morphKindName(m.Offsets.Kind()), panel)
	}
}

func cmdValidate(args []string) {
	cfg, rest := setup("validate", args, 1, "validate <model.pmx>")

	data, err := os.ReadFile(rest[0])
	if err != nil {
		fatal(err)
	}

	// Parse leniently so reference problems are reported instead of
	// aborting the scan.
	opts := cfg.Codec.ParseOptions()
	opts.LenientIndex = true
	doc, diags, err := pmx.ParseWithOptions(data, opts)
	if err != nil {
		fatal(err)
	}

	problems := len(diags)
	for _, d := range diags {
		fmt.Printf("reference: %s\n", d)
	}
	if err := doc.Validate(); err != nil {
		problems++
		fmt.Printf("structure: %v\n", err)
	}

	if problems > 0 {
		fmt.Printf("%s: %d problem(s) found\n", rest[0], problems)
		os.Exit(1)
	}
	fmt.Printf("%s: ok\n", rest[0])
}

func cmdRoundtrip(args []string) {
	cfg, rest := setup("roundtrip", args, 2, "roundtrip [options] <in.pmx> <out.pmx>")
	doc := loadModel(cfg, rest[0])

	out, err := pmx.EncodeWithOptions(doc, cfg.Codec.EncodeOptions())
	if err != nil {
		fatal(err)
	}
	if err := os.WriteFile(rest[1], out, 0o644); err != nil {
		fatal(err)
	}
	logger.Info("model rewritten",
		zap.String("in", rest[0]), zap.String("out", rest[1]), zap.Int("bytes", len(out)))
}

func cmdFixOrder(args []string) {
	cfg, rest := setup("fix-order", args, 2, "fix-order [options] <in.pmx> <out.pmx>")
	doc := loadModel(cfg, rest[0])

	doc.RealignBoneIndexes(0)

	out, err := pmx.EncodeWithOptions(doc, cfg.Codec.EncodeOptions())
	if err != nil {
		fatal(err)
	}
	if err := os.WriteFile(rest[1], out, 0o644); err != nil {
		fatal(err)
	}
	logger.Info("bone order fixed",
		zap.String("out", rest[1]), zap.Int("bones", len(doc.Bones)))
}

func cmdMotionInfo(args []string) {
	_, rest := setup("motion-info", args, 1, "motion-info <motion.vmd>")

	m, err := vmd.ParseFile(rest[0])
	if err != nil {
		fatal(err)
	}

	fmt.Printf("Model:    %s\n", m.ModelName)
	fmt.Printf("Frames:   %d (last keyframe)\n", m.MaxFrame())
	fmt.Println()
	fmt.Printf("Bone keyframes:     %d\n", len(m.BoneFrames))
	fmt.Printf("Morph keyframes:    %d\n", len(m.MorphFrames))
	fmt.Printf("Camera keyframes:   %d\n", len(m.CameraFrames))
	fmt.Printf("Light keyframes:    %d\n", len(m.LightFrames))
	fmt.Printf("Shadow keyframes:   %d\n", len(m.ShadowFrames))
	fmt.Printf("Property keyframes: %d\n", len(m.PropertyFrames))

	names := make(map[string]bool)
	for i := range m.BoneFrames {
		names[m.BoneFrames[i].Name] = true
	}
	fmt.Printf("Animated bones:     %d\n", len(names))
}

func cmdPoseInfo(args []string) {
	cfg, rest := setup("pose-info", args, 1, "pose-info <pose.vpd> [model.pmx]")

	pose, warnings, err := vpd.ParseFile(rest[0])
	if err != nil {
		fatal(err)
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}

	fmt.Printf("Parent model: %s\n", pose.ParentFile)
	fmt.Printf("Bones:        %d\n", len(pose.Bones))
	fmt.Printf("Morphs:       %d\n", len(pose.Morphs))
	for i := range pose.Bones {
		bp := &pose.Bones[i]
		fmt.Printf("  %-24s pos=%v rot=%v\n", bp.Name, bp.Position, bp.Rotation)
	}
	for i := range pose.Morphs {
		fmt.Printf("  %-24s weight=%.3f\n", pose.Morphs[i].Name, pose.Morphs[i].Weight)
	}

	if len(rest) > 1 {
		doc := loadModel(cfg, rest[1])
		unresolved := pose.Resolve(doc)
		for _, w := range unresolved {
			fmt.Printf("unresolved: %s\n", w)
		}
		if len(unresolved) == 0 {
			fmt.Printf("All names resolve against %s\n", doc.Name)
		}
	}
}
