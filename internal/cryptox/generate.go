package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"math/big"
	"strings"
)

const (
	saltSize = 16

	passwordAlphabet  = "ABCDEFGHJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!@#$%^&*()_-+=[{]}|;:<>/?"
	minPasswordLength = 10
	maxPasswordLength = 13 // exclusive
)

// GenerateSalt returns 16 random bytes, standard base64 encoded.
func GenerateSalt() (string, error) {
	b := make([]byte, saltSize)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// GeneratePassword returns a random password of 10 to 12 characters for
// the seeded default account.
func GeneratePassword() (string, error) {
	n, err := randInt(maxPasswordLength - minPasswordLength)
	if err != nil {
		return "", err
	}
	length := minPasswordLength + n

	var sb strings.Builder
	sb.Grow(length)
	for i := 0; i < length; i++ {
		idx, err := randInt(len(passwordAlphabet))
		if err != nil {
			return "", err
		}
		sb.WriteByte(passwordAlphabet[idx])
	}
	return sb.String(), nil
}

func randInt(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}
