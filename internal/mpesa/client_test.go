package mpesa

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func testClient(t *testing.T, authURL, stkURL string) *Client {
	t.Helper()
	return NewClient(Config{
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		ShortCode:      "174379",
		Passkey:        "passkey",
		CallbackURL:    "https://example.com/api/v1/payments/callback",
		Environment:    "sandbox",
		AuthURL:        authURL,
		STKPushURL:     stkURL,
	}, nil, zap.NewNop())
}

func TestAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-123", "expires_in": "3599"})
	}))
	defer srv.Close()

	client := testClient(t, srv.URL, srv.URL)
	token, err := client.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("AccessToken() error = %v", err)
	}
	if token != "tok-123" {
		t.Errorf("AccessToken() = %q, want tok-123", token)
	}
}

func TestAccessTokenNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := testClient(t, srv.URL, srv.URL)
	_, err := client.AccessToken(context.Background())

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("AccessToken() error = %v, want *AuthError", err)
	}
	if authErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", authErr.StatusCode)
	}
}

func TestInitiateSTKPush(t *testing.T) {
	var gotPayload stkPushPayload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("grant_type") == "client_credentials" {
			json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-123"})
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewDecoder(r.Body).Decode(&gotPayload)
		json.NewEncoder(w).Encode(map[string]string{
			"MerchantRequestID":   "29115-34620561-1",
			"CheckoutRequestID":   "ws_CO_1",
			"ResponseCode":        "0",
			"ResponseDescription": "Success",
			"CustomerMessage":     "Success. Request accepted for processing",
		})
	}))
	defer srv.Close()

	client := testClient(t, srv.URL+"/?grant_type=client_credentials", srv.URL+"/stkpush")

	resp, err := client.InitiateSTKPush(context.Background(), STKPushRequest{
		Phone:            "0712345678",
		Amount:           500.75,
		AccountReference: "0123456789abcdef",
		Description:      "Contribution to Test Harambee",
	})
	if err != nil {
		t.Fatalf("InitiateSTKPush() error = %v", err)
	}

	if resp.CheckoutRequestID != "ws_CO_1" {
		t.Errorf("CheckoutRequestID = %q, want ws_CO_1", resp.CheckoutRequestID)
	}

	// Phone is normalized and used for both payer roles.
	if gotPayload.PartyA != "254712345678" || gotPayload.PhoneNumber != "254712345678" {
		t.Errorf("PartyA = %q, PhoneNumber = %q, want 254712345678", gotPayload.PartyA, gotPayload.PhoneNumber)
	}
	if gotPayload.PartyB != "174379" {
		t.Errorf("PartyB = %q, want shortcode", gotPayload.PartyB)
	}

	// Fractional amounts are truncated to whole units.
	if gotPayload.Amount != 500 {
		t.Errorf("Amount = %d, want 500", gotPayload.Amount)
	}

	// References longer than the provider limit are truncated, not rejected.
	if gotPayload.AccountReference != "0123456789ab" {
		t.Errorf("AccountReference = %q, want 12-char truncation", gotPayload.AccountReference)
	}

	// Password is base64(shortcode + passkey + timestamp) for this call's
	// timestamp.
	wantPassword := base64.StdEncoding.EncodeToString([]byte("174379" + "passkey" + gotPayload.Timestamp))
	if gotPayload.Password != wantPassword {
		t.Errorf("Password = %q, want %q", gotPayload.Password, wantPassword)
	}

	if gotPayload.TransactionType != "CustomerPayBillOnline" {
		t.Errorf("TransactionType = %q", gotPayload.TransactionType)
	}
}

func TestInitiateSTKPushInvalidPhoneSkipsNetwork(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
	}))
	defer srv.Close()

	client := testClient(t, srv.URL, srv.URL)

	_, err := client.InitiateSTKPush(context.Background(), STKPushRequest{
		Phone:  "12345",
		Amount: 100,
	})

	var initErr *InitiationError
	if !errors.As(err, &initErr) || initErr.Stage != StageInvalidPhone {
		t.Fatalf("InitiateSTKPush() error = %v, want invalid-phone InitiationError", err)
	}
	if !errors.Is(err, ErrInvalidPhone) {
		t.Errorf("error chain does not include ErrInvalidPhone: %v", err)
	}
	if atomic.LoadInt64(&hits) != 0 {
		t.Errorf("server hit %d times, want 0", hits)
	}
}

func TestInitiateSTKPushAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := testClient(t, srv.URL, srv.URL)

	_, err := client.InitiateSTKPush(context.Background(), STKPushRequest{
		Phone:  "0712345678",
		Amount: 100,
	})

	var initErr *InitiationError
	if !errors.As(err, &initErr) || initErr.Stage != StageAuth {
		t.Fatalf("InitiateSTKPush() error = %v, want auth-failed InitiationError", err)
	}
}

func TestInitiateSTKPushProviderRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth" {
			json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-123"})
			return
		}
		http.Error(w, `{"errorCode":"500.001.1001","errorMessage":"Unable to lock subscriber"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := testClient(t, srv.URL+"/auth", srv.URL+"/stkpush")

	_, err := client.InitiateSTKPush(context.Background(), STKPushRequest{
		Phone:  "0712345678",
		Amount: 100,
	})

	var initErr *InitiationError
	if !errors.As(err, &initErr) || initErr.Stage != StagePush {
		t.Fatalf("InitiateSTKPush() error = %v, want push-failed InitiationError", err)
	}
	if initErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", initErr.StatusCode)
	}
	if initErr.Body == "" {
		t.Error("Body is empty, want provider response for diagnostics")
	}
}

type fakeTokenCache struct {
	values  map[string]string
	deleted []string
}

func newFakeTokenCache() *fakeTokenCache {
	return &fakeTokenCache{values: make(map[string]string)}
}

func (f *fakeTokenCache) Get(ctx context.Context, key string) (string, error) {
	if v, ok := f.values[key]; ok {
		return v, nil
	}
	return "", errors.New("key not found")
}

func (f *fakeTokenCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	f.values[key] = value.(string)
	return nil
}

func (f *fakeTokenCache) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.values, key)
	return nil
}

func TestAccessTokenCache(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-123"})
	}))
	defer srv.Close()

	cache := newFakeTokenCache()
	client := testClient(t, srv.URL, srv.URL)
	client.cache = cache

	for i := 0; i < 3; i++ {
		token, err := client.AccessToken(context.Background())
		if err != nil {
			t.Fatalf("AccessToken() error = %v", err)
		}
		if token != "tok-123" {
			t.Errorf("AccessToken() = %q, want tok-123", token)
		}
	}

	if got := atomic.LoadInt64(&hits); got != 1 {
		t.Errorf("token endpoint hit %d times, want 1 (cache serves repeats)", got)
	}
}

func TestInitiateSTKPushUnauthorizedInvalidatesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth" {
			json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-fresh"})
			return
		}
		http.Error(w, "Invalid Access Token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	cache := newFakeTokenCache()
	cache.values[tokenCacheKey] = "tok-stale"

	client := testClient(t, srv.URL+"/auth", srv.URL+"/stkpush")
	client.cache = cache

	_, err := client.InitiateSTKPush(context.Background(), STKPushRequest{
		Phone:  "0712345678",
		Amount: 100,
	})

	var initErr *InitiationError
	if !errors.As(err, &initErr) || initErr.Stage != StagePush {
		t.Fatalf("InitiateSTKPush() error = %v, want push-failed InitiationError", err)
	}
	if initErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", initErr.StatusCode)
	}

	if len(cache.deleted) != 1 || cache.deleted[0] != tokenCacheKey {
		t.Errorf("deleted keys = %v, want [%s]", cache.deleted, tokenCacheKey)
	}
	if _, ok := cache.values[tokenCacheKey]; ok {
		t.Error("stale token still cached after 401")
	}
}

func TestInitiateSTKPushMissingCheckoutID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth" {
			json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-123"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"ResponseCode": "0"})
	}))
	defer srv.Close()

	client := testClient(t, srv.URL+"/auth", srv.URL+"/stkpush")

	_, err := client.InitiateSTKPush(context.Background(), STKPushRequest{
		Phone:  "0712345678",
		Amount: 100,
	})

	var initErr *InitiationError
	if !errors.As(err, &initErr) || initErr.Stage != StagePush {
		t.Fatalf("InitiateSTKPush() error = %v, want push-failed InitiationError", err)
	}
}
