package utils

import (
	"crypto/rand"
)

// GenerateSecureOTP returns a numeric code of the given length drawn from
// crypto/rand. Codes are short-lived login secrets, so a predictable source
// is not acceptable here.
func GenerateSecureOTP(length int) (string, error) {
	const otpChars = "0123456789"
	buffer := make([]byte, length)
	_, err := rand.Read(buffer)
	if err != nil {
		return "", err
	}

	otpCharsLength := len(otpChars)
	for i := 0; i < length; i++ {
		buffer[i] = otpChars[int(buffer[i])%otpCharsLength]
	}

	return string(buffer), nil
}
