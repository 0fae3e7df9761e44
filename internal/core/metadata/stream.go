package metadata

import "github.com/ghalamif/PressFlow/internal/domain"

// Stream derives metadata incrementally. Each shot is held until the next one
// arrives so its rate can be computed; Flush releases the final shot.
type Stream struct {
	cfg     Config
	pending *domain.Shot
}

func NewStream(cfg Config) *Stream {
	return &Stream{cfg: cfg}
}

// Push accepts completed shots in order and returns the shots whose metadata
// is now final, excluded ones included.
func (s *Stream) Push(shots ...domain.Shot) []domain.Shot {
	var out []domain.Shot
	for i := range shots {
		next := shots[i]
		if s.pending != nil {
			apply(&s.pending.Summary, &next.Summary, s.cfg)
			out = append(out, *s.pending)
		}
		s.pending = &next
	}
	return out
}

// Flush releases the held shot, whose rate stays null.
func (s *Stream) Flush() []domain.Shot {
	if s.pending == nil {
		return nil
	}
	apply(&s.pending.Summary, nil, s.cfg)
	out := []domain.Shot{*s.pending}
	s.pending = nil
	return out
}

// Split separates kept shots from excluded ones.
func Split(shots []domain.Shot) (kept, excluded []domain.Shot) {
	for _, sh := range shots {
		if sh.Summary.Excluded {
			excluded = append(excluded, sh)
			continue
		}
		kept = append(kept, sh)
	}
	return kept, excluded
}
