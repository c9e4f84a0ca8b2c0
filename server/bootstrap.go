package server

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"

	"github.com/jrsteele09/go-server-session/internal/errors"
	"github.com/jrsteele09/go-server-session/users"
)

// BootstrapDemoUser makes sure username exists so the development server can
// be logged into straight away. A given password must pass
// users.ValidatePasswordStrength. When password is empty a random one is
// generated and returned; it is not shown again. An existing user is left as is
// and an empty password is returned.
func BootstrapDemoUser(repo users.UserRepo, username, password string) (generatedPassword string, err error) {
	log.Printf("🔧 Bootstrap: Checking demo user...")

	if _, err := repo.GetByUsername(username); err == nil {
		log.Printf("   Demo user already exists: %s", username)
		return "", nil
	} else if !errors.Is(err, errors.ErrUserNotFound) {
		return "", fmt.Errorf("failed to check for existing users: %w", err)
	}

	if password != "" {
		if err := users.ValidatePasswordStrength(password); err != nil {
			return "", fmt.Errorf("demo password rejected: %w", err)
		}
	} else {
		// Generate a secure random password
		passwordBytes := make([]byte, 16)
		if _, err := rand.Read(passwordBytes); err != nil {
			return "", fmt.Errorf("failed to generate password: %w", err)
		}
		password = base64.URLEncoding.EncodeToString(passwordBytes)
		generatedPassword = password
	}

	user, err := users.NewUser(username, password)
	if err != nil {
		return "", err
	}
	if err := repo.Upsert(user); err != nil {
		return "", fmt.Errorf("failed to create demo user: %w", err)
	}

	log.Printf("   ✅ Created demo user: %s", username)
	if generatedPassword != "" {
		log.Printf("")
		log.Printf("👤 Demo Credentials:")
		log.Printf("   Username:    %s", username)
		log.Printf("   Password:    %s", generatedPassword)
		log.Printf("   ⚠️  SAVE THIS PASSWORD - it will not be displayed again!")
		log.Printf("")
	}
	return generatedPassword, nil
}
