package modem

// textToBits expands each byte of the text MSB-first into individual bits.
func textToBits(text string) []int {
	bits := make([]int, 0, len(text)*8)
	for _, b := range []byte(text) {
		for i := 7; i >= 0; i-- {
			bits = append(bits, int(b>>uint(i))&1)
		}
	}
	return bits
}

// bitsToBytes packs bits MSB-first into bytes, dropping a trailing partial
// byte.
func bitsToBytes(bits []int) []byte {
	out := make([]byte, 0, len(bits)/8)
	for i := 0; i+8 <= len(bits); i += 8 {
		var b byte
		for _, bit := range bits[i : i+8] {
			b = b<<1 | byte(bit)
		}
		out = append(out, b)
	}
	return out
}

// filterPrintable keeps only printable ASCII, the sanity filter applied to
// blind-decoded payloads.
func filterPrintable(data []byte) string {
	clean := make([]byte, 0, len(data))
	for _, b := range data {
		if b >= 32 && b <= 126 {
			clean = append(clean, b)
		}
	}
	return string(clean)
}
