package auth

import (
	"crypto/subtle"

	"github.com/hitoshi/miseban/internal/model"
)

// AdminKeyChecker は管理者APIの共有シークレットを照合する。
// キーはconfigで必須としており、既知のデフォルト値へのフォールバックは存在しない。
type AdminKeyChecker struct {
	key []byte
}

// NewAdminKeyChecker はAdminKeyCheckerを生成する。
func NewAdminKeyChecker(key string) *AdminKeyChecker {
	return &AdminKeyChecker{key: []byte(key)}
}

// Check は提示されたキーを定数時間比較で照合する。
// 不一致・空文字列の場合はADMIN_KEY_MISMATCHを返す。
func (c *AdminKeyChecker) Check(presented string) error {
	if presented == "" {
		return model.NewAdminKeyMismatchError()
	}
	if subtle.ConstantTimeCompare(c.key, []byte(presented)) != 1 {
		return model.NewAdminKeyMismatchError()
	}
	return nil
}
