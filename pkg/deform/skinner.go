package deform

import (
	"sort"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/Faultbox/mmdkit/pkg/binio"
	"github.com/Faultbox/mmdkit/pkg/model"
)

// maxCachedPoses bounds the cache; hosts scrubbing a timeline revisit a
// small working set of poses, so the bound mostly never bites.
const maxCachedPoses = 64

// Skinner evaluates a document's vertices under poses, caching results by a
// content hash of the pose so repeated frames cost one map lookup. Safe for
// concurrent use.
type Skinner struct {
	doc *model.Document

	mu    sync.Mutex
	cache map[[32]byte][][3]float32
}

// NewSkinner returns a skinner for the document. The document's vertices
// must not be mutated while the skinner is in use; call Invalidate after
// edits.
func NewSkinner(doc *model.Document) *Skinner {
	return &Skinner{
		doc:   doc,
		cache: make(map[[32]byte][][3]float32),
	}
}

// Positions returns the deformed position of every vertex under the pose.
// The returned slice is shared with the cache and must not be modified.
func (s *Skinner) Positions(pose Pose) [][3]float32 {
	key := poseKey(pose)

	s.mu.Lock()
	if out, ok := s.cache[key]; ok {
		s.mu.Unlock()
		return out
	}
	s.mu.Unlock()

	out := make([][3]float32, len(s.doc.Vertices))
	for i := range s.doc.Vertices {
		v := &s.doc.Vertices[i]
		out[i] = Apply(v.Deform, v.Position, pose)
	}

	s.mu.Lock()
	if len(s.cache) >= maxCachedPoses {
		s.cache = make(map[[32]byte][][3]float32)
	}
	s.cache[key] = out
	s.mu.Unlock()
	return out
}

// Invalidate drops every cached result. Call after mutating the document.
func (s *Skinner) Invalidate() {
	s.mu.Lock()
	s.cache = make(map[[32]byte][][3]float32)
	s.mu.Unlock()
}

// poseKey hashes the pose content. Bones are serialized in index order so
// two maps holding the same transforms produce the same key.
func poseKey(pose Pose) [32]byte {
	indexes := make([]int, 0, len(pose))
	for i := range pose {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	w := binio.NewWriter()
	for _, i := range indexes {
		t := pose[i]
		w.I32(int32(i))
		w.Vec4(t.Rotation.Array())
		w.Vec3(t.Translation.Array())
		w.Vec3(t.Origin.Array())
	}
	return blake2b.Sum256(w.Bytes())
}
