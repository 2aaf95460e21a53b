package qq

const hexDigits = "0123456789ABCDEF"

// Hash computes the list-call signature from the account uin and the
// ptwebqq token.
//
// Every byte of ptwebqq is folded into four accumulators by position mod 4.
// The four bytes of the 32-bit uin (high to low) are XORed with "ECOK".
// The two groups are interleaved accumulator-first and hex encoded in upper
// case, giving 16 characters.
func Hash(uin int64, ptwebqq string) string {
	var n [4]byte
	for i := 0; i < len(ptwebqq); i++ {
		n[i&3] ^= ptwebqq[i]
	}

	u := uint32(uin)
	v := [4]byte{
		byte(u>>24) ^ 'E',
		byte(u>>16) ^ 'C',
		byte(u>>8) ^ 'O',
		byte(u) ^ 'K',
	}

	out := make([]byte, 0, 16)
	for i := 0; i < 8; i++ {
		b := v[i>>1]
		if i%2 == 0 {
			b = n[i>>1]
		}
		out = append(out, hexDigits[b>>4], hexDigits[b&0xf])
	}
	return string(out)
}

// hash33 derives the ptqrtoken query value from the qrsig cookie.
func hash33(s string) int64 {
	var h int64
	for i := 0; i < len(s); i++ {
		h += (h << 5) + int64(s[i])
	}
	return h & 0x7fffffff
}
