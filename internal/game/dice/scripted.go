package dice

// Scripted replays preset die faces in order, for deterministic tests in
// other packages. Faces are 1-based as printed on the die; a face larger
// than the die asked for is clamped. Once exhausted it returns the lowest face.
type Scripted struct {
	faces []int
	next  int
}

// NewScripted creates a roller replaying faces.
func NewScripted(faces ...int) *Scripted {
	return &Scripted{faces: faces}
}

// IntN implements Roller.
func (s *Scripted) IntN(n int) int {
	if s.next >= len(s.faces) {
		return 0
	}
	f := s.faces[s.next]
	s.next++
	switch {
	case f < 1:
		return 0
	case f > n:
		return n - 1
	default:
		return f - 1
	}
}

// Remaining returns how many faces have not been consumed yet.
func (s *Scripted) Remaining() int {
	return len(s.faces) - s.next
}

// Push appends faces to the script.
func (s *Scripted) Push(faces ...int) {
	s.faces = append(s.faces, faces...)
}
