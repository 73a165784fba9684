package upload

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"sort"
	"strings"

	"cloudsyncpro/internal/domain"

	"github.com/gabriel-vasile/mimetype"
	"gopkg.in/yaml.v3"
)

//go:embed config/policy.yaml
var defaultPolicyYAML []byte

// Group is a set of MIME types sharing a size cap. Each type lists the
// filename extensions it may arrive under.
type Group struct {
	MaxBytes int64               `yaml:"max_bytes"`
	Types    map[string][]string `yaml:"types"`
}

// Policy decides which uploaded files are accepted
type Policy struct {
	MaxFiles int              `yaml:"max_files"`
	Groups   map[string]Group `yaml:"groups"`

	limits map[string]limit // MIME type -> group limit
	types  []string         // sorted keys of limits, for alias lookups
}

type limit struct {
	group      string
	maxBytes   int64
	extensions []string
}

// Detected is the sniffed identity of an accepted file
type Detected struct {
	MIMEType  string
	Group     string
	Extension string // storage extension derived from MIMEType, never from the client name
}

// DefaultPolicy loads the embedded policy
func DefaultPolicy() (*Policy, error) {
	return ParsePolicy(defaultPolicyYAML)
}

// ParsePolicy parses and indexes a YAML policy
func ParsePolicy(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse upload policy: %w", err)
	}
	if p.MaxFiles <= 0 {
		return nil, errors.New("upload policy: max_files must be positive")
	}

	p.limits = make(map[string]limit)
	for name, g := range p.Groups {
		if g.MaxBytes <= 0 {
			return nil, fmt.Errorf("upload policy: group %s needs a positive max_bytes", name)
		}
		for mt, exts := range g.Types {
			mt = strings.ToLower(strings.TrimSpace(mt))
			if prev, ok := p.limits[mt]; ok {
				return nil, fmt.Errorf("upload policy: %s listed in both %s and %s", mt, prev.group, name)
			}
			if len(exts) == 0 {
				return nil, fmt.Errorf("upload policy: %s needs at least one extension", mt)
			}
			normalized := make([]string, 0, len(exts))
			for _, ext := range exts {
				ext = strings.ToLower(strings.TrimSpace(ext))
				if !strings.HasPrefix(ext, ".") {
					return nil, fmt.Errorf("upload policy: extension %q of %s must start with a dot", ext, mt)
				}
				normalized = append(normalized, ext)
			}
			p.limits[mt] = limit{group: name, maxBytes: g.MaxBytes, extensions: normalized}
			p.types = append(p.types, mt)
		}
	}
	sort.Strings(p.types)

	return &p, nil
}

// MaxRequestBytes bounds a whole multipart request: every file at the largest cap plus form overhead
func (p *Policy) MaxRequestBytes() int64 {
	var largest int64
	for _, g := range p.Groups {
		if g.MaxBytes > largest {
			largest = g.MaxBytes
		}
	}
	return int64(p.MaxFiles)*largest + 1<<20
}

// CheckCount rejects empty uploads and uploads over MaxFiles
func (p *Policy) CheckCount(n int) error {
	switch {
	case n == 0:
		return domain.NewValidationError("files", "at least one file is required")
	case n > p.MaxFiles:
		return domain.NewValidationError("files", fmt.Sprintf("at most %d files per upload", p.MaxFiles))
	}
	return nil
}

// Check sniffs content and applies the type, extension and size rules. r is
// rewound to the start before returning so the caller can store it.
func (p *Policy) Check(name string, size int64, r io.ReadSeeker) (*Detected, error) {
	mt, err := mimetype.DetectReader(r)
	if err != nil {
		return nil, fmt.Errorf("detect content type of %s: %w", name, err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind %s: %w", name, err)
	}

	allowed, lim, ok := p.lookup(mt)
	if !ok {
		return nil, domain.NewValidationError("files",
			fmt.Sprintf("%s: file type %s is not allowed", name, baseType(mt.String())))
	}

	ext := strings.ToLower(path.Ext(name))
	if !slices.Contains(lim.extensions, ext) {
		return nil, domain.NewValidationError("files",
			fmt.Sprintf("%s: extension does not match its content (%s)", name, allowed))
	}

	if size > lim.maxBytes {
		return nil, domain.NewValidationError("files",
			fmt.Sprintf("%s: %s files are limited to %d MB", name, lim.group, lim.maxBytes>>20))
	}

	return &Detected{MIMEType: allowed, Group: lim.group, Extension: lim.extensions[0]}, nil
}

// lookup finds the policy entry for a sniffed type, by name first and then
// through the type's aliases (text/rtf is also application/rtf). Parent types
// are never consulted: HTML is a child of text/plain but must not pass as one.
func (p *Policy) lookup(mt *mimetype.MIME) (string, limit, bool) {
	base := baseType(mt.String())
	if lim, ok := p.limits[base]; ok {
		return base, lim, true
	}
	for _, candidate := range p.types {
		if mt.Is(candidate) {
			return candidate, p.limits[candidate], true
		}
	}
	return "", limit{}, false
}

// baseType drops MIME parameters such as "; charset=utf-8"
func baseType(mt string) string {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}
