package utils

import (
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost bcrypt 轮数（固定 10）
const PasswordCost = 10

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func CheckPassword(pw, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(pw)) == nil
}

// NewID 实体主键（UUID v4）
func NewID() string { return uuid.NewString() }
