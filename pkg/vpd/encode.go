package vpd

import (
	"os"
	"strconv"
	"strings"

	"github.com/Faultbox/mmdkit/pkg/encoding"
)

// Encode writes the pose as a cp932 VPD file with CRLF line endings.
func Encode(p *Pose) ([]byte, error) {
	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteString("\r\n")
	}

	line(Signature)
	line("")
	line(p.ParentFile + ";")
	line(strconv.Itoa(len(p.Bones)) + ";")
	line("")

	for i := range p.Bones {
		bp := &p.Bones[i]
		line("Bone" + strconv.Itoa(i) + "{" + bp.Name)
		line("  " + floats(bp.Position[:]) + ";")
		line("  " + floats(bp.Rotation[:]) + ";")
		line("}")
		line("")
	}
	for i := range p.Morphs {
		mp := &p.Morphs[i]
		line("Morph" + strconv.Itoa(i) + "{" + mp.Name)
		line("  " + floats([]float32{mp.Weight}) + ";")
		line("}")
		line("")
	}

	return encoding.ShiftJIS.EncodeLenient(b.String()), nil
}

// WriteFile encodes the pose and writes the result to path.
func WriteFile(path string, p *Pose) error {
	data, err := Encode(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func floats(v []float32) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(float64(f), 'f', 6, 32)
	}
	return strings.Join(parts, ",")
}
