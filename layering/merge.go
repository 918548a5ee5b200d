package layering

// Merge composes layers ordered from strongest to weakest. A key takes its
// value from the strongest layer that defines it. Nil layers are skipped and
// the result never aliases an input.
func Merge(layers ...map[string]string) map[string]string {
	size := 0
	for _, layer := range layers {
		size += len(layer)
	}
	merged := make(map[string]string, size)
	for i := len(layers) - 1; i >= 0; i-- {
		for key, value := range layers[i] {
			merged[key] = value
		}
	}
	return merged
}

// Find returns the index of the strongest layer defining key, or -1.
func Find(key string, layers ...map[string]string) int {
	for i, layer := range layers {
		if _, ok := layer[key]; ok {
			return i
		}
	}
	return -1
}
