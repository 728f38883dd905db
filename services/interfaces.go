package services

// PasswordHasher abstracts password hashing so the bcrypt implementation
// stays swappable in tests.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) error
}
