package misc

// StringLimit truncates s to at most n bytes, marking the cut with "...".
func StringLimit(s string, n int) string {
	if n < 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

// BytesLimit is StringLimit for response bodies, it never mutates bs.
func BytesLimit(bs []byte, n int) []byte {
	if n < 0 {
		return nil
	}
	if len(bs) <= n {
		return bs
	}
	if n <= 3 {
		return bs[:n]
	}
	out := make([]byte, 0, n)
	out = append(out, bs[:n-3]...)
	return append(out, "..."...)
}
