package labels

// Pair is a single key/value label as returned by cloud tagging APIs, where
// both fields may be absent.
type Pair struct {
	Key   *string
	Value *string
}

// FromPairs builds a Set from tag pairs. Pairs without a key are skipped; a
// missing value is stored as the empty string. Later pairs win on duplicate
// keys.
func FromPairs(pairs []Pair) Set {
	s := make(Set, len(pairs))
	for _, p := range pairs {
		if p.Key == nil {
			continue
		}
		value := ""
		if p.Value != nil {
			value = *p.Value
		}
		s[*p.Key] = value
	}
	return s
}

// Pairs converts s into tag pairs ordered by key.
func (s Set) Pairs() []Pair {
	pairs := make([]Pair, 0, len(s))
	for _, key := range s.Keys() {
		k, v := key, s[key]
		pairs = append(pairs, Pair{Key: &k, Value: &v})
	}
	return pairs
}
