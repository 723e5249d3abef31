// Package vpd reads and writes the VPD text pose format: a cp932-encoded
// snapshot of bone translations, rotations and morph weights. Pose entries
// address bones and morphs by name; Resolve checks them against a model
// document without failing on misses, since poses are routinely applied to
// models they were not authored for.
package vpd

import (
	"errors"
	"fmt"

	"github.com/Faultbox/mmdkit/pkg/model"
)

// Signature is the first line of every VPD file.
const Signature = "Vocaloid Pose Data file"

var (
	// ErrSignature reports a file that does not open with the VPD magic.
	ErrSignature = errors.New("vpd: bad signature")

	// ErrSyntax reports a malformed line.
	ErrSyntax = errors.New("vpd: syntax error")
)

// Pose is one model pose snapshot.
type Pose struct {
	// ParentFile is the model file the pose was authored against,
	// conventionally with an .osm extension.
	ParentFile string

	Bones  []BonePose
	Morphs []MorphPose
}

// BonePose positions one bone by name.
type BonePose struct {
	Name     string
	Position [3]float32
	Rotation [4]float32 // quaternion x,y,z,w
}

// MorphPose sets one morph weight by name.
type MorphPose struct {
	Name   string
	Weight float32
}

// Warning is a non-fatal finding from parsing or resolution.
type Warning struct {
	Line    int // 1-based source line, 0 when not tied to one
	Message string
}

func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("line %d: %s", w.Line, w.Message)
	}
	return w.Message
}

// Resolve checks every entry against the document and returns a warning for
// each name that does not exist there. The pose itself is left unchanged;
// callers decide whether to skip or drop unresolved entries.
func (p *Pose) Resolve(doc *model.Document) []Warning {
	var warnings []Warning
	for i := range p.Bones {
		if doc.BoneByName(p.Bones[i].Name) == nil {
			warnings = append(warnings, Warning{
				Message: fmt.Sprintf("bone %q not in model %q", p.Bones[i].Name, doc.Name),
			})
		}
	}
	for i := range p.Morphs {
		if !doc.MorphByName(p.Morphs[i].Name).Valid() {
			warnings = append(warnings, Warning{
				Message: fmt.Sprintf("morph %q not in model %q", p.Morphs[i].Name, doc.Name),
			})
		}
	}
	return warnings
}
