package validation

const (
	gstinLength   = 15
	gstinAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	ReasonLength   = "length"
	ReasonCharset  = "charset"
	ReasonChecksum = "checksum"
)

// ValidateGSTIN checks length, charset (0-9, A-Z only) and the modulus-36
// check character. Input is not normalized; callers upper-case first.
func ValidateGSTIN(gstin string) Result {
	if len(gstin) != gstinLength {
		return fail(ReasonLength)
	}
	for i := 0; i < len(gstin); i++ {
		if gstinValue(gstin[i]) < 0 {
			return fail(ReasonCharset)
		}
	}
	expected, _ := GSTINCheckChar(gstin[:gstinLength-1])
	if gstin[gstinLength-1] != expected {
		return fail(ReasonChecksum)
	}
	return ok()
}

// GSTINCheckChar computes the 15th character for the first 14 characters of
// a GSTIN. It returns false when the input is not 14 base-36 characters.
func GSTINCheckChar(first14 string) (byte, bool) {
	if len(first14) != gstinLength-1 {
		return 0, false
	}

	sum := 0
	for i := 0; i < len(first14); i++ {
		v := gstinValue(first14[i])
		if v < 0 {
			return 0, false
		}
		weight := 1
		if i%2 == 1 {
			weight = 2
		}
		product := v * weight
		sum += product/36 + product%36
	}
	return gstinAlphabet[(36-sum%36)%36], true
}

func gstinValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	default:
		return -1
	}
}
