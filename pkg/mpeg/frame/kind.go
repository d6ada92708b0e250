package frame

import (
	"fmt"

	"github.com/user/mpeg1enc/pkg/mpeg/syntax"
)

// Kind is the coding kind of a frame.
type Kind int

const (
	// Intra frames are coded without reference to other frames.
	Intra Kind = iota
	// ForwardPredicted frames predict from the previous reference frame.
	ForwardPredicted
	// BiPredicted frames predict from the surrounding reference frames and
	// are never used as references themselves.
	BiPredicted
)

// String returns the single-letter pattern name of the kind.
func (k Kind) String() string {
	switch k {
	case Intra:
		return "I"
	case ForwardPredicted:
		return "P"
	case BiPredicted:
		return "B"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// PictureType maps the kind onto picture_coding_type.
func (k Kind) PictureType() syntax.PictureType {
	switch k {
	case ForwardPredicted:
		return syntax.PictureP
	case BiPredicted:
		return syntax.PictureB
	default:
		return syntax.PictureI
	}
}

// IsReference reports whether later frames may predict from this kind.
func (k Kind) IsReference() bool {
	return k != BiPredicted
}

// ParseKind converts a pattern letter (I, P or B, any case).
func ParseKind(r rune) (Kind, error) {
	switch r {
	case 'I', 'i':
		return Intra, nil
	case 'P', 'p':
		return ForwardPredicted, nil
	case 'B', 'b':
		return BiPredicted, nil
	}
	return Intra, fmt.Errorf("unknown frame kind %q", r)
}

// ParsePattern converts a pattern string such as "IBBPBBPBB" into kinds.
func ParsePattern(pattern string) ([]Kind, error) {
	if pattern == "" {
		return nil, fmt.Errorf("empty frame pattern")
	}
	kinds := make([]Kind, 0, len(pattern))
	for _, r := range pattern {
		k, err := ParseKind(r)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}
