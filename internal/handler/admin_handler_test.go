package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/miseban/internal/credential"
	"github.com/hitoshi/miseban/internal/model"
)

// --- モック定義 ---

// mockAdminKeyChecker はAdminKeyCheckerのテスト用モック。
type mockAdminKeyChecker struct {
	checkFunc func(presented string) error
}

func (m *mockAdminKeyChecker) Check(presented string) error {
	if m.checkFunc != nil {
		return m.checkFunc(presented)
	}
	return nil
}

// strictKeyChecker は固定キーと照合するテスト用実装。
type strictKeyChecker struct {
	key string
}

func (c *strictKeyChecker) Check(presented string) error {
	if presented != c.key {
		return model.NewAdminKeyMismatchError()
	}
	return nil
}

// mockAdminStoreReader はAdminStoreReaderのテスト用モック。
type mockAdminStoreReader struct {
	findByIDFunc         func(ctx context.Context, id string) (*model.Store, error)
	listAllWithOwnerFunc func(ctx context.Context) ([]*model.StoreWithOwner, error)
	findByIDCalls        int
}

func (m *mockAdminStoreReader) FindByID(ctx context.Context, id string) (*model.Store, error) {
	m.findByIDCalls++
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockAdminStoreReader) ListAllWithOwner(ctx context.Context) ([]*model.StoreWithOwner, error) {
	if m.listAllWithOwnerFunc != nil {
		return m.listAllWithOwnerFunc(ctx)
	}
	return nil, nil
}

// mockDecrypter はCredentialDecrypterのテスト用モック。
type mockDecrypter struct {
	decryptFunc func(encoded string) string
}

func (m *mockDecrypter) DecryptOrSentinel(encoded string) string {
	if m.decryptFunc != nil {
		return m.decryptFunc(encoded)
	}
	return "decrypted:" + encoded
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

// --- パスワード復号のテスト ---

func TestDecryptPassword_WrongAdminKey_NoStoreQuery(t *testing.T) {
	stores := &mockAdminStoreReader{}
	h := NewAdminHandler(&strictKeyChecker{key: "correct"}, stores, &mockDecrypter{}, false)

	reqBody := `{"store_id": "store-1", "admin_key": "wrong"}`
	r := httptest.NewRequest("POST", "/api/admin/decrypt-password", strings.NewReader(reqBody))
	rec := httptest.NewRecorder()

	h.DecryptPassword(rec, r)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if stores.findByIDCalls != 0 {
		t.Errorf("store query was executed %d times before key check, want 0", stores.findByIDCalls)
	}

	body := decodeBody(t, rec)
	if body["code"] != model.ErrCodeAdminKeyMismatch {
		t.Errorf("code = %v", body["code"])
	}
}

func TestDecryptPassword_StoreNotFound(t *testing.T) {
	h := NewAdminHandler(&mockAdminKeyChecker{}, &mockAdminStoreReader{}, &mockDecrypter{}, false)

	reqBody := `{"store_id": "missing", "admin_key": "any"}`
	r := httptest.NewRequest("POST", "/api/admin/decrypt-password", strings.NewReader(reqBody))
	rec := httptest.NewRecorder()

	h.DecryptPassword(rec, r)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDecryptPassword_MissingStoreID(t *testing.T) {
	h := NewAdminHandler(&mockAdminKeyChecker{}, &mockAdminStoreReader{}, &mockDecrypter{}, false)

	r := httptest.NewRequest("POST", "/api/admin/decrypt-password", strings.NewReader(`{"admin_key": "any"}`))
	rec := httptest.NewRecorder()

	h.DecryptPassword(rec, r)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDecryptPassword_Success(t *testing.T) {
	stores := &mockAdminStoreReader{
		findByIDFunc: func(ctx context.Context, id string) (*model.Store, error) {
			return &model.Store{
				ID:                  id,
				Name:                "らーめん一番",
				Platform:            model.PlatformNaver,
				PlatformLoginID:     "login-id",
				PlatformPasswordEnc: "encrypted-blob",
			}, nil
		},
	}
	h := NewAdminHandler(&mockAdminKeyChecker{}, stores, &mockDecrypter{}, false)

	reqBody := `{"store_id": "store-1", "admin_key": "any"}`
	r := httptest.NewRequest("POST", "/api/admin/decrypt-password", strings.NewReader(reqBody))
	rec := httptest.NewRecorder()

	h.DecryptPassword(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := decodeBody(t, rec)
	store := body["store"].(map[string]any)
	if store["platform_password"] != "decrypted:encrypted-blob" {
		t.Errorf("platform_password = %v", store["platform_password"])
	}
	if store["has_password"] != true {
		t.Errorf("has_password = %v", store["has_password"])
	}
}

func TestDecryptPassword_DecryptionFailure_ReturnsSentinel(t *testing.T) {
	// 復号失敗でもHTTPステータスは200のまま、番兵値を埋めて返す
	stores := &mockAdminStoreReader{
		findByIDFunc: func(ctx context.Context, id string) (*model.Store, error) {
			return &model.Store{ID: id, PlatformPasswordEnc: "corrupted"}, nil
		},
	}
	decrypter := &mockDecrypter{
		decryptFunc: func(encoded string) string { return credential.DecryptionFailedSentinel },
	}
	h := NewAdminHandler(&mockAdminKeyChecker{}, stores, decrypter, false)

	reqBody := `{"store_id": "store-1", "admin_key": "any"}`
	r := httptest.NewRequest("POST", "/api/admin/decrypt-password", strings.NewReader(reqBody))
	rec := httptest.NewRecorder()

	h.DecryptPassword(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := decodeBody(t, rec)
	store := body["store"].(map[string]any)
	if store["platform_password"] != credential.DecryptionFailedSentinel {
		t.Errorf("platform_password = %v, want sentinel", store["platform_password"])
	}
}

// --- 店舗一覧のテスト ---

func TestListStores_WrongAdminKey(t *testing.T) {
	h := NewAdminHandler(&strictKeyChecker{key: "correct"}, &mockAdminStoreReader{}, &mockDecrypter{}, false)

	r := httptest.NewRequest("GET", "/api/admin/stores?admin_key=wrong", nil)
	rec := httptest.NewRecorder()

	h.ListStores(rec, r)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestListStores_DoesNotDecryptPasswords(t *testing.T) {
	stores := &mockAdminStoreReader{
		listAllWithOwnerFunc: func(ctx context.Context) ([]*model.StoreWithOwner, error) {
			return []*model.StoreWithOwner{
				{
					Store: model.Store{
						ID:                  "store-1",
						Name:                "らーめん一番",
						PlatformPasswordEnc: "encrypted-blob",
					},
					OwnerEmail: "owner@example.com",
					OwnerName:  "田中太郎",
				},
			}, nil
		},
	}
	decrypter := &mockDecrypter{
		decryptFunc: func(encoded string) string {
			t.Error("list endpoint should not decrypt passwords")
			return ""
		},
	}
	h := NewAdminHandler(&strictKeyChecker{key: "correct"}, stores, decrypter, false)

	r := httptest.NewRequest("GET", "/api/admin/stores?admin_key=correct", nil)
	rec := httptest.NewRecorder()

	h.ListStores(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := decodeBody(t, rec)
	if body["count"] != float64(1) {
		t.Errorf("count = %v", body["count"])
	}

	list := body["stores"].([]any)
	store := list[0].(map[string]any)
	if _, present := store["platform_password"]; present {
		t.Error("platform_password should be omitted from the list response")
	}
	if store["has_password"] != true {
		t.Errorf("has_password = %v", store["has_password"])
	}
	if store["owner_email"] != "owner@example.com" {
		t.Errorf("owner_email = %v", store["owner_email"])
	}
}
