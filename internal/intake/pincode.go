package intake

import (
	"strings"
)

// Serviceability is the list of pincode prefixes the clinical team serves.
// An empty list serves every pincode.
type Serviceability struct {
	prefixes map[string]struct{}
	lengths  []int
}

func NewServiceability(prefixes []string) *Serviceability {
	s := &Serviceability{prefixes: make(map[string]struct{})}
	seen := make(map[int]bool)
	for _, part := range prefixes {
		key := strings.TrimSpace(part)
		if key == "" {
			continue
		}
		s.prefixes[key] = struct{}{}
		if !seen[len(key)] {
			seen[len(key)] = true
			s.lengths = append(s.lengths, len(key))
		}
	}
	return s
}

func (s *Serviceability) Serves(pincode string) bool {
	if len(s.prefixes) == 0 {
		return true
	}
	pincode = strings.TrimSpace(pincode)
	for _, n := range s.lengths {
		if len(pincode) < n {
			continue
		}
		if _, ok := s.prefixes[pincode[:n]]; ok {
			return true
		}
	}
	return false
}
