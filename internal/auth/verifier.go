// Package auth はベアラートークンの検証、店舗オーナーシップの認可、
// 管理者キーの照合を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hitoshi/miseban/internal/model"
	"github.com/hitoshi/miseban/internal/repository"
)

// ProfileFinder はプロフィール補完に必要なインターフェース。
// repository.UserRepositoryの部分集合として定義する。
type ProfileFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// Verifier はベアラートークンをユーザーに解決する。
// トークンはHS256で署名されたJWTで、subクレームにユーザーIDを持つ。
// 検証後、usersテーブルのプロフィールで表示名を補完する。
type Verifier struct {
	secret []byte
	users  ProfileFinder
}

// NewVerifier はVerifierを生成する。
func NewVerifier(secret string, users ProfileFinder) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		users:  users,
	}
}

// tokenClaims はアクセストークンのクレームを表す。
type tokenClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Plan  string `json:"plan"`
	jwt.RegisteredClaims
}

// VerifyRequest はリクエストのAuthorizationヘッダからユーザーを解決する。
// ヘッダが無い場合はUNAUTHENTICATED、トークンが検証できない場合はINVALID_TOKENを返す。
// 呼び出し元はerrorを確認してからuserを信用すること。この境界からpanicは漏れない。
func (v *Verifier) VerifyRequest(r *http.Request) (*model.User, error) {
	token, err := extractBearerToken(r)
	if err != nil {
		return nil, model.NewUnauthenticatedError()
	}
	return v.VerifyToken(r.Context(), token)
}

// VerifyToken はベアラートークン文字列を検証し、ユーザーを返す。
func (v *Verifier) VerifyToken(ctx context.Context, tokenString string) (*model.User, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, model.NewInvalidTokenError()
	}

	userID := claims.Subject
	if userID == "" {
		return nil, model.NewInvalidTokenError()
	}

	user := &model.User{
		ID:    userID,
		Email: claims.Email,
		Name:  claims.Name,
		Plan:  claims.Plan,
	}

	// プロフィールで表示名を補完する。
	// プロフィールが取得できない場合はトークンのクレームをそのまま使う。
	profile, err := v.users.FindByID(ctx, userID)
	if err != nil {
		slog.Warn("プロフィールの取得に失敗しました。トークンのクレームを使用します",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	} else if profile != nil {
		if profile.Name != "" {
			user.Name = profile.Name
		}
		if profile.Email != "" {
			user.Email = profile.Email
		}
		if profile.Plan != "" {
			user.Plan = profile.Plan
		}
		user.CreatedAt = profile.CreatedAt
		user.UpdatedAt = profile.UpdatedAt
	}

	if user.Name == "" {
		user.Name = user.Email
	}

	return user, nil
}

// extractBearerToken はAuthorizationヘッダからベアラートークンを取り出す。
func extractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("authorization header is missing")
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", fmt.Errorf("authorization header is not a bearer token")
	}

	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", fmt.Errorf("bearer token is empty")
	}

	return token, nil
}

// IssueToken はテスト・開発用にアクセストークンを発行する。
func IssueToken(secret string, user *model.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &tokenClaims{
		Email: user.Email,
		Name:  user.Name,
		Plan:  user.Plan,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

var _ ProfileFinder = (repository.UserRepository)(nil)
