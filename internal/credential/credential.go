// Package credential はプラットフォーム認証情報の暗号化・復号を提供する。
// 店舗のプラットフォームログインパスワードはAES-256-GCMで暗号化して保存し、
// 復号は管理者経路でのみ行う。
package credential

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
)

// DecryptionFailedSentinel は復号失敗時に返す番兵値。
// 管理者向けレスポンスでは復号失敗でリクエスト全体を失敗させず、
// この値を埋めて他の店舗情報の閲覧を継続できるようにする。
const DecryptionFailedSentinel = "DECRYPTION_FAILED"

// Cipher はAES-256-GCMによる認証情報の暗号化・復号を行う。
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher は16進64文字の鍵文字列からCipherを生成する。
// 鍵長が32バイトでない場合はエラーを返す。
func NewCipher(hexKey string) (*Cipher, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode credential key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("credential key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Cipher{aead: aead}, nil
}

// Encrypt は平文を暗号化し、nonceを先頭に連結したbase64文字列を返す。
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt はEncryptで生成したbase64文字列を復号して平文を返す。
func (c *Cipher) Decrypt(encoded string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	nonceSize := c.aead.NonceSize()
	if len(sealed) < nonceSize {
		return "", fmt.Errorf("ciphertext too short: %d bytes", len(sealed))
	}

	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plaintext), nil
}

// DecryptOrSentinel は復号に失敗した場合に番兵値を返す。
// 空の暗号文には空文字列を返す。
func (c *Cipher) DecryptOrSentinel(encoded string) string {
	if encoded == "" {
		return ""
	}
	plaintext, err := c.Decrypt(encoded)
	if err != nil {
		return DecryptionFailedSentinel
	}
	return plaintext
}
