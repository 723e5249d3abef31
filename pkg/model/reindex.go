package model

import "sort"

// Bone index reindexing. All operations keep the invariant that the indices
// of non-auxiliary bones form a duplicate-free contiguous range starting at
// zero, and rewrite every reference in the document so it still resolves to
// the same bone after the move: vertex deform weights, bone parents, tails,
// additional-transform links, IK targets and chain links, bone morph
// offsets, display frame items and rigid bodies.

// MaxBoneIndex returns the highest index among non-auxiliary bones, or -1.
func (d *Document) MaxBoneIndex() int {
	maxIdx := -1
	for _, b := range d.Bones {
		if !b.Auxiliary && b.Index > maxIdx {
			maxIdx = b.Index
		}
	}
	return maxIdx
}

// SafeSetBoneIndex moves b to newIndex. Negative targets clamp to 0 and
// targets past the end of the range clamp to the current maximum. When the
// slot is occupied, every bone between the target and b's vacated slot is
// displaced one step toward the vacated slot, and all dependent references
// are rewritten to follow the moved bones.
func (d *Document) SafeSetBoneIndex(b *Bone, newIndex int) {
	if b == nil {
		return
	}
	if newIndex < 0 {
		newIndex = 0
	}
	if maxIdx := d.MaxBoneIndex(); newIndex > maxIdx && maxIdx >= 0 {
		newIndex = maxIdx
	}
	old := b.Index
	if old == newIndex {
		return
	}

	remap := map[int]int{old: newIndex}
	if d.boneAt(newIndex, b) != nil {
		if newIndex < old {
			for _, o := range d.Bones {
				if o != b && !o.Auxiliary && o.Index >= newIndex && o.Index < old {
					remap[o.Index] = o.Index + 1
				}
			}
		} else {
			for _, o := range d.Bones {
				if o != b && !o.Auxiliary && o.Index > old && o.Index <= newIndex {
					remap[o.Index] = o.Index - 1
				}
			}
		}
	}
	d.applyBoneRemap(remap)
}

// SwapBoneIndexes exchanges the indices of two bones. No-op when a and b are
// the same bone.
func (d *Document) SwapBoneIndexes(a, b *Bone) {
	if a == nil || b == nil || a == b {
		return
	}
	ia := a.Index
	d.SafeSetBoneIndex(a, b.Index)
	// The first move displaced b into a's old slot; this is a no-op unless
	// the indices were non-adjacent and b drifted.
	d.SafeSetBoneIndex(b, ia)
}

// ShiftBoneIndex moves the bone currently at oldIndex to newIndex. No-op
// when the indices are equal or no bone occupies oldIndex.
func (d *Document) ShiftBoneIndex(oldIndex, newIndex int) {
	if oldIndex == newIndex {
		return
	}
	b := d.BoneByIndex(oldIndex)
	if b == nil {
		return
	}
	d.SafeSetBoneIndex(b, newIndex)
}

// RealignBoneIndexes renumbers every non-auxiliary bone to a dense sequence
// starting at start, keeping their current relative order. Auxiliary bones
// keep their indices untouched.
func (d *Document) RealignBoneIndexes(start int) {
	if start < 0 {
		start = 0
	}
	var ordered []*Bone
	for _, b := range d.Bones {
		if !b.Auxiliary {
			ordered = append(ordered, b)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	remap := make(map[int]int, len(ordered))
	next := start
	for _, b := range ordered {
		if _, seen := remap[b.Index]; !seen {
			remap[b.Index] = next
		}
		next++
	}
	for i, b := range ordered {
		b.Index = start + i
	}
	d.remapBoneRefs(remap)
}

// boneAt returns the non-auxiliary bone at index i, skipping exclude.
func (d *Document) boneAt(i int, exclude *Bone) *Bone {
	for _, b := range d.Bones {
		if b != exclude && !b.Auxiliary && b.Index == i {
			return b
		}
	}
	return nil
}

// applyBoneRemap moves bone indices per remap (read against the pre-move
// state) and rewrites all dependent references in one pass.
func (d *Document) applyBoneRemap(remap map[int]int) {
	type move struct {
		bone *Bone
		to   int
	}
	var moves []move
	for _, b := range d.Bones {
		if ni, ok := remap[b.Index]; ok && !b.Auxiliary {
			moves = append(moves, move{b, ni})
		}
	}
	for _, m := range moves {
		m.bone.Index = m.to
	}
	d.remapBoneRefs(remap)
}

// remapBoneRefs rewrites every bone reference in the document through remap.
// All lookups read the pre-move index, so simultaneous moves cannot corrupt
// each other.
func (d *Document) remapBoneRefs(remap map[int]int) {
	fix := func(r Ref) Ref {
		if !r.Valid() {
			return r
		}
		if ni, ok := remap[int(r)]; ok {
			return Ref(ni)
		}
		return r
	}

	for i := range d.Vertices {
		switch df := d.Vertices[i].Deform.(type) {
		case BDEF1:
			df.Bone = fix(df.Bone)
			d.Vertices[i].Deform = df
		case BDEF2:
			for j := range df.Bones {
				df.Bones[j] = fix(df.Bones[j])
			}
			d.Vertices[i].Deform = df
		case BDEF4:
			for j := range df.Bones {
				df.Bones[j] = fix(df.Bones[j])
			}
			d.Vertices[i].Deform = df
		case SDEF:
			for j := range df.Bones {
				df.Bones[j] = fix(df.Bones[j])
			}
			d.Vertices[i].Deform = df
		case QDEF:
			for j := range df.Bones {
				df.Bones[j] = fix(df.Bones[j])
			}
			d.Vertices[i].Deform = df
		}
	}

	for _, b := range d.Bones {
		b.Parent = fix(b.Parent)
		if tb, ok := b.Tail.(TailBone); ok {
			tb.Bone = fix(tb.Bone)
			b.Tail = tb
		}
		if b.Additional != nil {
			b.Additional.Bone = fix(b.Additional.Bone)
		}
		if b.IK != nil {
			b.IK.Target = fix(b.IK.Target)
			for j := range b.IK.Links {
				b.IK.Links[j].Bone = fix(b.IK.Links[j].Bone)
			}
		}
	}

	for i := range d.Morphs {
		if offsets, ok := d.Morphs[i].Offsets.(BoneOffsets); ok {
			for j := range offsets {
				offsets[j].Bone = fix(offsets[j].Bone)
			}
		}
	}

	for i := range d.DisplayFrames {
		items := d.DisplayFrames[i].Items
		for j := range items {
			if items[j].Kind == DisplayBone {
				items[j].Index = fix(items[j].Index)
			}
		}
	}

	for i := range d.RigidBodies {
		d.RigidBodies[i].Bone = fix(d.RigidBodies[i].Bone)
	}
}
