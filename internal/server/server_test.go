package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/patcharin/splitbill/internal/auth"
	"github.com/patcharin/splitbill/internal/models"
	"github.com/patcharin/splitbill/internal/scanning"
	"github.com/patcharin/splitbill/internal/service"
	"github.com/patcharin/splitbill/internal/storage/sqlite"
)

// fakeScanner returns a canned parse result without calling any model.
type fakeScanner struct {
	result *scanning.ParsedReceipt
	err    error
}

func (f *fakeScanner) ParseReceipt(imageData []byte, contentType string) (*scanning.ParsedReceipt, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeScanner) Version() string { return "fake/test/r0" }
func (f *fakeScanner) Close() error    { return nil }

func setupTestServer(t *testing.T, scanner scanning.Scanner) *httptest.Server {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "splitbill-server-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	jwtManager := auth.NewJWTManager("test-secret-test-secret-test", time.Hour)
	srv := New(
		service.NewAuthService(auth.NewPasswordAuthenticator(store), jwtManager),
		service.NewReceiptService(store, scanner),
		service.NewSelectionService(store),
		jwtManager,
	)

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}

// doJSON sends a JSON request and decodes the response body into out
// (when out is non-nil). Returns the response status code.
func doJSON(t *testing.T, method, url, token string, body, out any) int {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request: %v", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			t.Fatalf("failed to decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func registerUser(t *testing.T, baseURL, email string) string {
	t.Helper()
	var session struct {
		Token string `json:"token"`
	}
	status := doJSON(t, http.MethodPost, baseURL+"/api/auth/register", "", map[string]string{
		"email":        email,
		"display_name": "Test User",
		"password":     "correct horse",
	}, &session)
	if status != http.StatusCreated {
		t.Fatalf("register returned %d", status)
	}
	if session.Token == "" {
		t.Fatal("register returned no token")
	}
	return session.Token
}

func createReceipt(t *testing.T, baseURL, token string) string {
	t.Helper()
	var created struct {
		ReceiptID string `json:"receipt_id"`
	}
	status := doJSON(t, http.MethodPost, baseURL+"/api/receipts", token, map[string]any{
		"merchant_name":   "Dee Jai Restaurant",
		"currency":        "THB",
		"tax_percent":     7,
		"service_percent": 10,
		"rounding":        -0.5,
		"user_type":       "payer",
		"items": []map[string]any{
			{"name": "Pad Thai", "qty": 2, "unit_price": 100},
			{"name": "Lime Juice", "qty": 1, "unit_price": 50},
		},
	}, &created)
	if status != http.StatusCreated {
		t.Fatalf("create receipt returned %d", status)
	}
	if created.ReceiptID == "" {
		t.Fatal("create receipt returned no id")
	}
	return created.ReceiptID
}

func TestAuthFlow(t *testing.T) {
	ts := setupTestServer(t, &fakeScanner{})

	token := registerUser(t, ts.URL, "alice@example.com")
	if token == "" {
		t.Fatal("expected token")
	}

	t.Run("duplicate email rejected", func(t *testing.T) {
		status := doJSON(t, http.MethodPost, ts.URL+"/api/auth/register", "", map[string]string{
			"email":        "alice@example.com",
			"display_name": "Alice Again",
			"password":     "correct horse",
		}, nil)
		if status != http.StatusConflict {
			t.Errorf("expected 409, got %d", status)
		}
	})

	t.Run("login works", func(t *testing.T) {
		var session struct {
			Token string `json:"token"`
		}
		status := doJSON(t, http.MethodPost, ts.URL+"/api/auth/login", "", map[string]string{
			"email":    "alice@example.com",
			"password": "correct horse",
		}, &session)
		if status != http.StatusOK || session.Token == "" {
			t.Errorf("login status %d, token %q", status, session.Token)
		}
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		status := doJSON(t, http.MethodPost, ts.URL+"/api/auth/login", "", map[string]string{
			"email":    "alice@example.com",
			"password": "wrong",
		}, nil)
		if status != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", status)
		}
	})

	t.Run("protected routes reject missing token", func(t *testing.T) {
		status := doJSON(t, http.MethodGet, ts.URL+"/api/receipts", "", nil, nil)
		if status != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", status)
		}
	})
}

func TestReceiptLifecycle(t *testing.T) {
	ts := setupTestServer(t, &fakeScanner{})
	token := registerUser(t, ts.URL, "owner@example.com")
	receiptID := createReceipt(t, ts.URL, token)

	t.Run("fetch returns derived totals and ordered items", func(t *testing.T) {
		var got struct {
			Receipt   models.Receipt `json:"receipt"`
			IsCreator bool           `json:"is_creator"`
			IsPayer   bool           `json:"is_payer"`
		}
		status := doJSON(t, http.MethodGet, ts.URL+"/api/receipts/"+receiptID, token, nil, &got)
		if status != http.StatusOK {
			t.Fatalf("get receipt returned %d", status)
		}

		// subtotal 250, total = 250 + 17.5 + 25 - 0.5 = 292
		if math.Abs(got.Receipt.Subtotal-250) > 1e-9 {
			t.Errorf("subtotal = %v, want 250", got.Receipt.Subtotal)
		}
		if math.Abs(got.Receipt.Total-292) > 1e-9 {
			t.Errorf("total = %v, want 292", got.Receipt.Total)
		}
		if !got.IsCreator || !got.IsPayer {
			t.Errorf("is_creator = %v, is_payer = %v, want both true", got.IsCreator, got.IsPayer)
		}
		if len(got.Receipt.Items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(got.Receipt.Items))
		}
		for i, item := range got.Receipt.Items {
			if item.Position != i+1 {
				t.Errorf("item %d position = %d", i, item.Position)
			}
		}
	})

	t.Run("stranger cannot fetch", func(t *testing.T) {
		stranger := registerUser(t, ts.URL, "stranger@example.com")
		status := doJSON(t, http.MethodGet, ts.URL+"/api/receipts/"+receiptID, stranger, nil, nil)
		if status != http.StatusForbidden {
			t.Errorf("expected 403, got %d", status)
		}
	})

	t.Run("unknown receipt is 404", func(t *testing.T) {
		status := doJSON(t, http.MethodGet, ts.URL+"/api/receipts/no-such-id", token, nil, nil)
		if status != http.StatusNotFound {
			t.Errorf("expected 404, got %d", status)
		}
	})

	t.Run("invalid payload is rejected with field errors", func(t *testing.T) {
		var errResp struct {
			Code    string `json:"code"`
			Details []struct {
				Field string `json:"field"`
			} `json:"details"`
		}
		status := doJSON(t, http.MethodPost, ts.URL+"/api/receipts", token, map[string]any{
			"currency":        "THB",
			"tax_percent":     150,
			"service_percent": 10,
			"items": []map[string]any{
				{"name": "", "qty": 0, "unit_price": -1},
			},
		}, &errResp)
		if status != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", status)
		}
		if errResp.Code != "RECEIPT_INVALID" {
			t.Errorf("code = %q", errResp.Code)
		}
		if len(errResp.Details) < 3 {
			t.Errorf("expected field errors for tax_percent, name, qty, unit_price; got %+v", errResp.Details)
		}
	})

	t.Run("list paginates", func(t *testing.T) {
		lister := registerUser(t, ts.URL, "lister@example.com")
		for i := 0; i < 3; i++ {
			createReceipt(t, ts.URL, lister)
		}

		var got struct {
			Receipts   []models.Receipt `json:"receipts"`
			Pagination struct {
				Total   int  `json:"total"`
				HasMore bool `json:"has_more"`
			} `json:"pagination"`
		}
		status := doJSON(t, http.MethodGet, ts.URL+"/api/receipts?limit=2&offset=0", lister, nil, &got)
		if status != http.StatusOK {
			t.Fatalf("list returned %d", status)
		}
		if len(got.Receipts) != 2 || got.Pagination.Total != 3 || !got.Pagination.HasMore {
			t.Errorf("page = %d receipts, total %d, has_more %v", len(got.Receipts), got.Pagination.Total, got.Pagination.HasMore)
		}
	})
}

func TestSelectionEndpoints(t *testing.T) {
	ts := setupTestServer(t, &fakeScanner{})
	owner := registerUser(t, ts.URL, "payer@example.com")
	receiptID := createReceipt(t, ts.URL, owner)

	// Fetch item ids in position order.
	var fetched struct {
		Receipt models.Receipt `json:"receipt"`
	}
	if status := doJSON(t, http.MethodGet, ts.URL+"/api/receipts/"+receiptID, owner, nil, &fetched); status != http.StatusOK {
		t.Fatalf("get receipt returned %d", status)
	}
	padThai := fetched.Receipt.Items[0].ID
	limeJuice := fetched.Receipt.Items[1].ID

	selURL := ts.URL + "/api/receipts/" + receiptID + "/selections"
	guest := registerUser(t, ts.URL, "guest@example.com")

	t.Run("save computes and persists the allocation", func(t *testing.T) {
		var sel models.UserSelection
		status := doJSON(t, http.MethodPost, selURL, guest, map[string]any{
			"selected_items": []string{padThai},
			"item_shares":    map[string]int{padThai: 2},
		}, &sel)
		if status != http.StatusOK {
			t.Fatalf("save selection returned %d", status)
		}

		// 2*100/2 = 100 subtotal; tax 7, service 10, rounding -0.5*0.4 = -0.2
		if math.Abs(sel.CalculatedTotal-116.8) > 1e-9 {
			t.Errorf("calculated_total = %v, want 116.8", sel.CalculatedTotal)
		}
		if math.Abs(sel.TaxAmount-7) > 1e-9 {
			t.Errorf("tax_amount = %v, want 7", sel.TaxAmount)
		}
		if math.Abs(sel.ServiceAmount-10) > 1e-9 {
			t.Errorf("service_amount = %v, want 10", sel.ServiceAmount)
		}
		if math.Abs(sel.RoundingAmount+0.2) > 1e-9 {
			t.Errorf("rounding_amount = %v, want -0.2", sel.RoundingAmount)
		}
	})

	t.Run("guest with a selection can now fetch the receipt", func(t *testing.T) {
		var got struct {
			UserSelection *models.UserSelection `json:"user_selection"`
			IsCreator     bool                  `json:"is_creator"`
		}
		status := doJSON(t, http.MethodGet, ts.URL+"/api/receipts/"+receiptID, guest, nil, &got)
		if status != http.StatusOK {
			t.Fatalf("get receipt returned %d", status)
		}
		if got.IsCreator {
			t.Error("guest must not be creator")
		}
		if got.UserSelection == nil {
			t.Fatal("expected the guest's selection in the response")
		}
		if math.Abs(got.UserSelection.CalculatedTotal-116.8) > 1e-9 {
			t.Errorf("cached total = %v, want 116.8", got.UserSelection.CalculatedTotal)
		}
	})

	t.Run("PUT updates the same row", func(t *testing.T) {
		var first models.UserSelection
		status := doJSON(t, http.MethodPut, selURL, guest, map[string]any{
			"selected_items": []string{padThai, limeJuice},
			"item_shares":    map[string]int{},
		}, &first)
		if status != http.StatusOK {
			t.Fatalf("update selection returned %d", status)
		}
		// Full selection: 250 + 17.5 + 25 - 0.5 = 292
		if math.Abs(first.CalculatedTotal-292) > 1e-9 {
			t.Errorf("calculated_total = %v, want 292", first.CalculatedTotal)
		}

		// Saving again with identical inputs must not change anything.
		var second models.UserSelection
		doJSON(t, http.MethodPost, selURL, guest, map[string]any{
			"selected_items": []string{padThai, limeJuice},
			"item_shares":    map[string]int{},
		}, &second)
		if second.ID != first.ID {
			t.Errorf("expected same selection row, got %q then %q", first.ID, second.ID)
		}
		if second.CalculatedTotal != first.CalculatedTotal ||
			second.TaxAmount != first.TaxAmount ||
			second.ServiceAmount != first.ServiceAmount ||
			second.RoundingAmount != first.RoundingAmount {
			t.Errorf("re-save changed stored allocation: %+v vs %+v", second, first)
		}
	})

	t.Run("out-of-range divisor is rejected", func(t *testing.T) {
		var errResp struct {
			Code    string `json:"code"`
			Details []struct {
				Field   string `json:"field"`
				Message string `json:"message"`
			} `json:"details"`
		}
		status := doJSON(t, http.MethodPost, selURL, guest, map[string]any{
			"selected_items": []string{padThai},
			"item_shares":    map[string]int{padThai: 100},
		}, &errResp)
		if status != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", status)
		}
		if errResp.Code != "INVALID_REQUEST_DATA" {
			t.Errorf("code = %q", errResp.Code)
		}
		if len(errResp.Details) != 1 || errResp.Details[0].Field != "item_shares."+padThai {
			t.Errorf("details = %+v", errResp.Details)
		}
	})

	t.Run("wrong types are rejected before the engine", func(t *testing.T) {
		status := doJSON(t, http.MethodPost, selURL, guest, map[string]any{
			"selected_items": "not-an-array",
			"item_shares":    map[string]int{},
		}, nil)
		if status != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", status)
		}
	})

	t.Run("stale item id contributes zero", func(t *testing.T) {
		var sel models.UserSelection
		status := doJSON(t, http.MethodPost, selURL, guest, map[string]any{
			"selected_items": []string{limeJuice, "deleted-item-id"},
			"item_shares":    map[string]int{},
		}, &sel)
		if status != http.StatusOK {
			t.Fatalf("save returned %d", status)
		}
		// Only lime juice counts: 50 + 3.5 + 5 - 0.1 = 58.4
		if math.Abs(sel.CalculatedTotal-58.4) > 1e-9 {
			t.Errorf("calculated_total = %v, want 58.4", sel.CalculatedTotal)
		}
	})

	t.Run("selection on unknown receipt is 404", func(t *testing.T) {
		status := doJSON(t, http.MethodPost, ts.URL+"/api/receipts/no-such/selections", guest, map[string]any{
			"selected_items": []string{},
			"item_shares":    map[string]int{},
		}, nil)
		if status != http.StatusNotFound {
			t.Errorf("expected 404, got %d", status)
		}
	})
}

func TestParseEndpoint(t *testing.T) {
	parsed := &scanning.ParsedReceipt{
		MerchantName: "Somtam Zaap",
		Currency:     "THB",
		Items: []scanning.ParsedItem{
			{Name: "Papaya Salad", Qty: 2, UnitPrice: 60},
		},
		TaxPercent: 7,
		Subtotal:   120,
		Total:      128.4,
	}
	ts := setupTestServer(t, &fakeScanner{result: parsed})
	token := registerUser(t, ts.URL, "uploader@example.com")

	uploadImage := func(t *testing.T) (*http.Response, func()) {
		t.Helper()
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "receipt.jpg")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		fmt.Fprint(fw, "fake image bytes")
		mw.Close()

		req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/receipts/parse", &buf)
		if err != nil {
			t.Fatalf("failed to build request: %v", err)
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("upload failed: %v", err)
		}
		return resp, func() { resp.Body.Close() }
	}

	t.Run("returns parsed receipt", func(t *testing.T) {
		resp, done := uploadImage(t)
		defer done()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("parse returned %d", resp.StatusCode)
		}
		var got struct {
			Receipt       scanning.ParsedReceipt `json:"receipt"`
			ParserVersion string                 `json:"parser_version"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if got.Receipt.MerchantName != "Somtam Zaap" {
			t.Errorf("merchant = %q", got.Receipt.MerchantName)
		}
		if got.ParserVersion != "fake/test/r0" {
			t.Errorf("parser_version = %q", got.ParserVersion)
		}
	})

	t.Run("non-receipt image is 422", func(t *testing.T) {
		ts2 := setupTestServer(t, &fakeScanner{err: scanning.ErrNotReceipt})
		token2 := registerUser(t, ts2.URL, "uploader2@example.com")

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, _ := mw.CreateFormFile("file", "selfie.jpg")
		fmt.Fprint(fw, "definitely not a receipt")
		mw.Close()

		req, _ := http.NewRequest(http.MethodPost, ts2.URL+"/api/receipts/parse", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token2)

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("upload failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Errorf("expected 422, got %d", resp.StatusCode)
		}
		var errResp struct {
			Code string `json:"code"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if errResp.Code != "NOT_A_RECEIPT" {
			t.Errorf("code = %q", errResp.Code)
		}
	})
}
