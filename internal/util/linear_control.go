package util

// RateLimit approaches target from current by changing the value
// at most by limit per call. A limit <= 0 disables the limit.
func RateLimit[T Number](current T, target T, limit T) T {
	if limit <= 0 {
		return target
	}
	delta := target - current
	if Abs(delta) <= limit {
		return target
	}
	if delta > 0 {
		return current + limit
	}
	return current - limit
}
