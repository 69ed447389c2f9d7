package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword derives a bcrypt hash for storing profile credentials.
// Cost comes from AUTH_BCRYPT_COST; tests lower it to keep runs fast.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword checks a login attempt against the stored hash.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
