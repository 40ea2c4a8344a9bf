package services

// splitIntoBuckets distributes values round-robin across at most n
// buckets. Empty buckets are not returned.
func splitIntoBuckets[T any](values []T, n int) [][]T {
	if n < 1 {
		n = 1
	}
	if len(values) == 0 {
		return nil
	}
	if n > len(values) {
		n = len(values)
	}
	buckets := make([][]T, n)
	for i, v := range values {
		buckets[i%n] = append(buckets[i%n], v)
	}
	return buckets
}

// splitIntoChunks cuts values into consecutive chunks of at most size.
func splitIntoChunks[T any](values []T, size int) [][]T {
	if size < 1 || len(values) == 0 {
		return nil
	}
	var chunks [][]T
	for start := 0; start < len(values); start += size {
		end := start + size
		if end > len(values) {
			end = len(values)
		}
		chunks = append(chunks, values[start:end])
	}
	return chunks
}
