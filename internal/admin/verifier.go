package admin

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Verifier 校验后台密码。
type Verifier interface {
	Verify(password string) bool
}

// BcryptVerifier 使用 bcrypt 哈希校验密码。
type BcryptVerifier struct {
	hash []byte
}

// NewBcryptVerifier 校验哈希格式，空哈希直接报错。
func NewBcryptVerifier(hash string) (*BcryptVerifier, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, errors.New("admin.password_hash 不能为空")
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("admin.password_hash 不是合法的 bcrypt 哈希: %w", err)
	}
	return &BcryptVerifier{hash: []byte(hash)}, nil
}

func (v *BcryptVerifier) Verify(password string) bool {
	return bcrypt.CompareHashAndPassword(v.hash, []byte(password)) == nil
}
