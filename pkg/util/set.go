package util

// Set is an unordered collection of unique comparable values
type Set[T comparable] map[T]struct{}

// SetOf constructs a Set from the given values
func SetOf[T comparable](items ...T) Set[T] {
	s := make(Set[T], len(items))
	for _, item := range items {
		s.Add(item)
	}
	return s
}

// Add inserts a value into the set
func (s Set[T]) Add(item T) {
	s[item] = struct{}{}
}

// Has reports whether the set contains a value
func (s Set[T]) Has(item T) bool {
	_, ok := s[item]
	return ok
}

// Remove deletes a value from the set
func (s Set[T]) Remove(item T) {
	delete(s, item)
}
