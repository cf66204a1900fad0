package slices

func Contains[L ~[]E, E comparable](l L, x E) bool {
	for _, y := range l {
		if x == y {
			return true
		}
	}

	return false
}

// AppendUnique appends the elements of xs that are not already in l.
func AppendUnique[L ~[]E, E comparable](l L, xs ...E) L {
	for _, x := range xs {
		if !Contains(l, x) {
			l = append(l, x)
		}
	}
	return l
}
