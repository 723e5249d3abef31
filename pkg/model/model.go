// Package model defines the in-memory document produced and consumed by the
// PMX codec: geometry, skeleton, morphs, display groups and rigid-body
// physics, plus the bone index reindexing operations.
package model

import "fmt"

// Ref is an index into one of the document's entity collections, or NoRef.
// Codecs translate the width-dependent wire sentinel to NoRef at the decode
// boundary so nothing above the codec handles magic numbers.
type Ref int32

// NoRef marks an absent reference.
const NoRef Ref = -1

// Valid reports whether the reference points at something.
func (r Ref) Valid() bool { return r >= 0 }

func (r Ref) String() string {
	if !r.Valid() {
		return "none"
	}
	return fmt.Sprintf("%d", int32(r))
}

// TextEncoding selects the string encoding of a PMX stream.
type TextEncoding uint8

const (
	TextUTF16 TextEncoding = 0
	TextUTF8  TextEncoding = 1
)

// IndexLayout records the index byte widths declared by a PMX header.
// A parsed document keeps the layout it was loaded with so a save can opt
// into pass-through width preservation.
type IndexLayout struct {
	Vertex    uint8
	Texture   uint8
	Material  uint8
	Bone      uint8
	Morph     uint8
	RigidBody uint8
}

// Document is the root aggregate owning every entity collection of one model.
type Document struct {
	Version      float32
	Encoding     TextEncoding
	ExtraUVCount uint8

	// Layout holds the index widths observed at parse time; nil for
	// documents built in memory.
	Layout *IndexLayout

	Name      string
	NameEN    string
	Comment   string
	CommentEN string

	Vertices      []Vertex
	Faces         []Face
	Textures      []string
	Materials     []Material
	Bones         []*Bone
	Morphs        []Morph
	DisplayFrames []DisplayFrame
	RigidBodies   []RigidBody
	Joints        []Joint
}

// Face is a triangle referencing three vertices.
type Face [3]uint32

// New returns an empty document with current defaults.
func New() *Document {
	return &Document{Version: 2.0, Encoding: TextUTF16}
}

// BoneByIndex returns the bone whose Index field equals i, or nil.
func (d *Document) BoneByIndex(i int) *Bone {
	for _, b := range d.Bones {
		if b.Index == i {
			return b
		}
	}
	return nil
}

// BoneByName returns the first bone with the given primary name, or nil.
func (d *Document) BoneByName(name string) *Bone {
	for _, b := range d.Bones {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// MorphByName returns the index of the first morph with the given primary
// name, or NoRef.
func (d *Document) MorphByName(name string) Ref {
	for i := range d.Morphs {
		if d.Morphs[i].Name == name {
			return Ref(i)
		}
	}
	return NoRef
}
