package detect

// bsnWeights are the elfproef digit weights, applied left to right on the
// normalized 9-digit number.
var bsnWeights = [9]int{9, 8, 7, 6, 5, 4, 3, 2, -1}

// ValidateBSN reports whether a candidate passes the modulus-11 elfproef
// used for Dutch burgerservicenummers. Spaces, dots and dashes are ignored;
// the candidate must then consist of exactly 8 or 9 digits. Eight-digit
// numbers (legacy sofinummers without the leading zero) are normalized by
// padding a single 0 on the left.
func ValidateBSN(candidate string) bool {
	digits := make([]int, 0, 9)
	for _, r := range candidate {
		switch {
		case r >= '0' && r <= '9':
			digits = append(digits, int(r-'0'))
		case r == ' ' || r == '.' || r == '-':
			// separator, skip
		default:
			return false
		}
		if len(digits) > 9 {
			return false
		}
	}

	if len(digits) == 8 {
		digits = append([]int{0}, digits...)
	}
	if len(digits) != 9 {
		return false
	}

	sum := 0
	for i, d := range digits {
		sum += d * bsnWeights[i]
	}
	return sum%11 == 0
}
