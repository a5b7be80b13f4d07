package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/miseban/internal/model"
)

// --- モック定義 ---

// mockReviewStoreReader はReviewStoreReaderのテスト用モック。
type mockReviewStoreReader struct {
	findByIDFunc func(ctx context.Context, id string) (*model.Store, error)
}

func (m *mockReviewStoreReader) FindByID(ctx context.Context, id string) (*model.Store, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return &model.Store{ID: id, Name: "らーめん一番"}, nil
}

// mockReviewGenerator はReviewGeneratorのテスト用モック。
type mockReviewGenerator struct {
	generateFunc func(ctx context.Context, store *model.Store, images []string, customPrompt string, rules *model.ReviewRules) (*model.ReviewDraft, error)
	calls        int
}

func (m *mockReviewGenerator) Generate(ctx context.Context, store *model.Store, images []string, customPrompt string, rules *model.ReviewRules) (*model.ReviewDraft, error) {
	m.calls++
	if m.generateFunc != nil {
		return m.generateFunc(ctx, store, images, customPrompt, rules)
	}
	return &model.ReviewDraft{ReviewText: "美味しかった", Rating: 5}, nil
}

// --- レビュー生成のテスト ---

func TestGenerateReview_InvalidBody(t *testing.T) {
	h := NewReviewHandler(&mockReviewStoreReader{}, &mockReviewGenerator{}, false)

	r := httptest.NewRequest("POST", "/api/reviews/generate", strings.NewReader("{broken"))
	rec := httptest.NewRecorder()

	h.Generate(rec, r)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGenerateReview_MissingStoreID(t *testing.T) {
	h := NewReviewHandler(&mockReviewStoreReader{}, &mockReviewGenerator{}, false)

	r := httptest.NewRequest("POST", "/api/reviews/generate", strings.NewReader(`{"images": ["data:image/png;base64,x"]}`))
	rec := httptest.NewRecorder()

	h.Generate(rec, r)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGenerateReview_StoreNotFound(t *testing.T) {
	stores := &mockReviewStoreReader{
		findByIDFunc: func(ctx context.Context, id string) (*model.Store, error) { return nil, nil },
	}
	generator := &mockReviewGenerator{}
	h := NewReviewHandler(stores, generator, false)

	reqBody := `{"storeId": "missing", "images": ["data:image/png;base64,x"]}`
	r := httptest.NewRequest("POST", "/api/reviews/generate", strings.NewReader(reqBody))
	rec := httptest.NewRecorder()

	h.Generate(rec, r)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if generator.calls != 0 {
		t.Errorf("generator was called %d times for a missing store, want 0", generator.calls)
	}
}

func TestGenerateReview_EmptyImages_Returns400(t *testing.T) {
	generator := &mockReviewGenerator{
		generateFunc: func(ctx context.Context, store *model.Store, images []string, customPrompt string, rules *model.ReviewRules) (*model.ReviewDraft, error) {
			return nil, model.NewMissingImagesError()
		},
	}
	h := NewReviewHandler(&mockReviewStoreReader{}, generator, false)

	reqBody := `{"storeId": "store-1", "images": []}`
	r := httptest.NewRequest("POST", "/api/reviews/generate", strings.NewReader(reqBody))
	rec := httptest.NewRecorder()

	h.Generate(rec, r)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	body := decodeBody(t, rec)
	if body["code"] != model.ErrCodeMissingImages {
		t.Errorf("code = %v", body["code"])
	}
}

func TestGenerateReview_QuotaExceeded_Returns429(t *testing.T) {
	generator := &mockReviewGenerator{
		generateFunc: func(ctx context.Context, store *model.Store, images []string, customPrompt string, rules *model.ReviewRules) (*model.ReviewDraft, error) {
			return nil, model.NewQuotaExceededError()
		},
	}
	h := NewReviewHandler(&mockReviewStoreReader{}, generator, false)

	reqBody := `{"storeId": "store-1", "images": ["data:image/png;base64,x"]}`
	r := httptest.NewRequest("POST", "/api/reviews/generate", strings.NewReader(reqBody))
	rec := httptest.NewRecorder()

	h.Generate(rec, r)

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
}

func TestGenerateReview_Success(t *testing.T) {
	var gotPrompt string
	var gotRules *model.ReviewRules
	generator := &mockReviewGenerator{
		generateFunc: func(ctx context.Context, store *model.Store, images []string, customPrompt string, rules *model.ReviewRules) (*model.ReviewDraft, error) {
			gotPrompt, gotRules = customPrompt, rules
			return &model.ReviewDraft{
				ReviewText: "スープが絶品でした。",
				Rating:     5,
				Keywords:   []string{"ラーメン"},
			}, nil
		},
	}
	h := NewReviewHandler(&mockReviewStoreReader{}, generator, false)

	reqBody := `{"storeId": "store-1", "images": ["data:image/png;base64,x"], "customPrompt": "こってり推しで", "reviewRules": {"targetRating": 4}}`
	r := httptest.NewRequest("POST", "/api/reviews/generate", strings.NewReader(reqBody))
	rec := httptest.NewRecorder()

	h.Generate(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotPrompt != "こってり推しで" {
		t.Errorf("customPrompt = %q", gotPrompt)
	}
	if gotRules == nil || gotRules.TargetRating != 4 {
		t.Errorf("rules = %#v", gotRules)
	}

	body := decodeBody(t, rec)
	review := body["review"].(map[string]any)
	if review["reviewText"] != "スープが絶品でした。" {
		t.Errorf("reviewText = %v", review["reviewText"])
	}
	if review["rating"] != float64(5) {
		t.Errorf("rating = %v", review["rating"])
	}
}
