package vpd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Faultbox/mmdkit/pkg/encoding"
)

// Parse decodes a VPD file. The declared bone count is checked against the
// actual number of bone blocks; a mismatch is reported as a warning, not an
// error, because hand-edited files get it wrong routinely.
func Parse(data []byte) (*Pose, []Warning, error) {
	text := encoding.ShiftJIS.DecodeLenient(data)
	p := &parser{lines: strings.Split(text, "\n")}
	pose, err := p.run()
	if err != nil {
		return nil, nil, err
	}
	return pose, p.warnings, nil
}

// ParseFile reads and parses the file at path.
func ParseFile(path string) (*Pose, []Warning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return Parse(data)
}

type parser struct {
	lines    []string
	pos      int
	warnings []Warning
}

// next returns the next non-empty line with comments and whitespace
// stripped, or false at end of input.
func (p *parser) next() (string, int, bool) {
	for p.pos < len(p.lines) {
		line := p.lines[p.pos]
		p.pos++
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line != "" {
			return line, p.pos, true
		}
	}
	return "", p.pos, false
}

func (p *parser) run() (*Pose, error) {
	line, n, ok := p.next()
	if !ok || !strings.HasPrefix(line, Signature) {
		return nil, fmt.Errorf("%w: %q", ErrSignature, line)
	}

	line, n, ok = p.next()
	if !ok || !strings.HasSuffix(line, ";") {
		return nil, fmt.Errorf("%w: line %d: expected parent file declaration", ErrSyntax, n)
	}
	pose := &Pose{ParentFile: strings.TrimSuffix(line, ";")}

	line, n, ok = p.next()
	if !ok || !strings.HasSuffix(line, ";") {
		return nil, fmt.Errorf("%w: line %d: expected bone count", ErrSyntax, n)
	}
	declared, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(line, ";")))
	if err != nil {
		return nil, fmt.Errorf("%w: line %d: bad bone count: %v", ErrSyntax, n, err)
	}

	for {
		line, n, ok = p.next()
		if !ok {
			break
		}
		switch {
		case strings.HasPrefix(line, "Bone"):
			if err := p.readBone(pose, line, n); err != nil {
				return nil, err
			}
		case strings.HasPrefix(line, "Morph"):
			if err := p.readMorph(pose, line, n); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: line %d: unexpected %q", ErrSyntax, n, line)
		}
	}

	if declared != len(pose.Bones) {
		p.warnings = append(p.warnings, Warning{
			Message: fmt.Sprintf("declared %d bones, found %d", declared, len(pose.Bones)),
		})
	}
	return pose, nil
}

// blockName extracts the entry name from a block opener like "Bone0{right
// arm". The digits between the keyword and the brace are ordinal only and
// carry no meaning.
func blockName(line string, n int) (string, error) {
	i := strings.IndexByte(line, '{')
	if i < 0 {
		return "", fmt.Errorf("%w: line %d: expected '{'", ErrSyntax, n)
	}
	return strings.TrimSpace(line[i+1:]), nil
}

func (p *parser) values(want int) ([]float32, int, error) {
	line, n, ok := p.next()
	if !ok || !strings.HasSuffix(line, ";") {
		return nil, n, fmt.Errorf("%w: line %d: expected %d values", ErrSyntax, n, want)
	}
	parts := strings.Split(strings.TrimSuffix(line, ";"), ",")
	if len(parts) != want {
		return nil, n, fmt.Errorf("%w: line %d: got %d values, want %d", ErrSyntax, n, len(parts), want)
	}
	out := make([]float32, want)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return nil, n, fmt.Errorf("%w: line %d: %v", ErrSyntax, n, err)
		}
		out[i] = float32(v)
	}
	return out, n, nil
}

func (p *parser) close() error {
	line, n, ok := p.next()
	if !ok || line != "}" {
		return fmt.Errorf("%w: line %d: expected '}'", ErrSyntax, n)
	}
	return nil
}

func (p *parser) readBone(pose *Pose, opener string, n int) error {
	name, err := blockName(opener, n)
	if err != nil {
		return err
	}
	bp := BonePose{Name: name}
	loc, _, err := p.values(3)
	if err != nil {
		return err
	}
	copy(bp.Position[:], loc)
	quat, _, err := p.values(4)
	if err != nil {
		return err
	}
	copy(bp.Rotation[:], quat)
	if err := p.close(); err != nil {
		return err
	}
	pose.Bones = append(pose.Bones, bp)
	return nil
}

func (p *parser) readMorph(pose *Pose, opener string, n int) error {
	name, err := blockName(opener, n)
	if err != nil {
		return err
	}
	weight, _, err := p.values(1)
	if err != nil {
		return err
	}
	if err := p.close(); err != nil {
		return err
	}
	pose.Morphs = append(pose.Morphs, MorphPose{Name: name, Weight: weight[0]})
	return nil
}
