package serialnumber

import "fmt"

// luhnCheckDigit computes the check digit that closes an all-numeric payload
// under the Luhn algorithm.
func luhnCheckDigit(payload string) (byte, error) {
	sum := 0
	// Walk right to left; the appended check digit makes every payload
	// position shift by one, so the rightmost payload digit is doubled.
	double := true
	for i := len(payload) - 1; i >= 0; i-- {
		c := payload[i]
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("non-numeric character %q in luhn payload", c)
		}
		digit := int(c - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}
	return byte('0' + (10-sum%10)%10), nil
}

// luhnValid reports whether the final digit of value is the correct Luhn
// check digit for the preceding payload.
func luhnValid(value string) bool {
	if len(value) < 2 {
		return false
	}
	check, err := luhnCheckDigit(value[:len(value)-1])
	if err != nil {
		return false
	}
	return check == value[len(value)-1]
}
