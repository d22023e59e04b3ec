package lib

// Map applies f to every element of vs
func Map[V any, R any](vs []V, f func(V) R) []R {
	result := make([]R, len(vs))

	for i, v := range vs {
		result[i] = f(v)
	}

	return result
}

// Filter returns the elements of vs for which keep is true
func Filter[V any](vs []V, keep func(V) bool) []V {
	result := make([]V, 0, len(vs))

	for _, v := range vs {
		if keep(v) {
			result = append(result, v)
		}
	}

	return result
}
