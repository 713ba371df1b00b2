// Package crypto 提供密码哈希。
package crypto

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch 密码不匹配
var ErrPasswordMismatch = errors.New("crypto: password mismatch")

// PasswordHasher bcrypt 密码哈希器
type PasswordHasher struct {
	cost int
}

// HasherOption 哈希器选项
type HasherOption func(*PasswordHasher)

// WithCost 设置 bcrypt 工作因子（4-31）
func WithCost(cost int) HasherOption {
	return func(h *PasswordHasher) {
		h.cost = cost
	}
}

// NewPasswordHasher 创建哈希器，默认工作因子 10
func NewPasswordHasher(opts ...HasherOption) *PasswordHasher {
	h := &PasswordHasher{cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Hash 哈希密码
func (h *PasswordHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("crypto: hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify 校验密码，不匹配时返回 ErrPasswordMismatch
func (h *PasswordHasher) Verify(password, hashedPassword string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("crypto: verify password: %w", err)
	}
	return nil
}

// HashPassword 使用默认配置哈希密码
func HashPassword(password string) (string, error) {
	return NewPasswordHasher().Hash(password)
}

// VerifyPassword 使用默认配置校验密码
func VerifyPassword(password, hashedPassword string) error {
	return NewPasswordHasher().Verify(password, hashedPassword)
}
