package users

import (
	"fmt"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/jrsteele09/go-server-session/internal/errors"
)

// User is an account that may open sessions on the development session API.
type User struct {
	ID           string    `json:"id,omitempty"`          // Unique identifier for the user
	Username     string    `json:"username,omitempty"`    // Unique username used to log in
	PasswordHash string    `json:"-"`                     // Hashed version of the user's password - never serialize
	DateJoined   time.Time `json:"date_joined,omitempty"` // Date and time when the user registered
	LastLogin    time.Time `json:"last_login,omitempty"`  // Last time the user logged in
	Blocked      bool      `json:"blocked,omitempty"`     // Blocked, has the user been blocked from logging in
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckPassword checks a password against the user's stored hash
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.PasswordHash)
}

// NewUser builds a user with a hashed password.
func NewUser(username, password string) (*User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("[users NewUser] hash password: %w", err)
	}
	return &User{
		Username:     username,
		PasswordHash: hash,
		DateJoined:   time.Now(),
	}, nil
}

// Authenticate looks up username and checks password. It returns
// ErrUserNotFound, ErrUserBlocked or ErrInvalidCredentials when the login is
// refused; any other error comes from the repo.
func Authenticate(repo UserRepo, username, password string) (*User, error) {
	user, err := repo.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	if user.Blocked {
		return nil, errors.Wrapf(errors.ErrUserBlocked, "[users Authenticate] %s", username)
	}
	if !user.CheckPassword(password) {
		return nil, errors.Wrapf(errors.ErrInvalidCredentials, "[users Authenticate] %s", username)
	}
	return user, nil
}

// IsLoginRefused reports whether err is one of the Authenticate refusals.
func IsLoginRefused(err error) bool {
	return errors.Is(err, errors.ErrUserNotFound) ||
		errors.Is(err, errors.ErrUserBlocked) ||
		errors.Is(err, errors.ErrInvalidCredentials)
}
