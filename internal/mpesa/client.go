package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	sandboxAuthURL    = "https://sandbox.safaricom.co.ke/oauth/v1/generate?grant_type=client_credentials"
	sandboxSTKPushURL = "https://sandbox.safaricom.co.ke/mpesa/stkpush/v1/processrequest"

	productionAuthURL    = "https://api.safaricom.co.ke/oauth/v1/generate?grant_type=client_credentials"
	productionSTKPushURL = "https://api.safaricom.co.ke/mpesa/stkpush/v1/processrequest"

	requestTimeout = 10 * time.Second

	// Daraja rejects AccountReference values longer than this.
	maxAccountReferenceLen = 12

	tokenCacheKey = "mpesa:access_token"
	tokenCacheTTL = 45 * time.Minute
)

// Config holds the Daraja credentials and endpoints for one merchant.
type Config struct {
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
	Environment    string // "sandbox" or "production"

	// Overrides for tests; when empty the environment defaults are used.
	AuthURL    string
	STKPushURL string
}

// TokenCache is an optional cache for access tokens. Token reuse is not
// required for correctness: any cache error falls through to a live token
// request. Satisfied by pkg/redis.Client.
type TokenCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Client talks to the Daraja API: token acquisition and STK push submission.
// It holds no mutable state; all correlation with callbacks happens through
// the persisted CheckoutRequestID.
type Client struct {
	cfg        Config
	authURL    string
	stkPushURL string
	httpClient *http.Client
	cache      TokenCache
	logger     *zap.Logger
}

// NewClient creates a Daraja client. cache may be nil to disable token
// caching.
func NewClient(cfg Config, cache TokenCache, logger *zap.Logger) *Client {
	authURL := cfg.AuthURL
	stkPushURL := cfg.STKPushURL
	if authURL == "" {
		if cfg.Environment == "production" {
			authURL = productionAuthURL
		} else {
			authURL = sandboxAuthURL
		}
	}
	if stkPushURL == "" {
		if cfg.Environment == "production" {
			stkPushURL = productionSTKPushURL
		} else {
			stkPushURL = sandboxSTKPushURL
		}
	}

	return &Client{
		cfg:        cfg,
		authURL:    authURL,
		stkPushURL: stkPushURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		cache:      cache,
		logger:     logger,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// AccessToken acquires a bearer token from the token endpoint using HTTP
// Basic credentials. It never retries; retry policy belongs to the caller.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if c.cache != nil {
		if token, err := c.cache.Get(ctx, tokenCacheKey); err == nil && token != "" {
			return token, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.authURL, nil)
	if err != nil {
		return "", &AuthError{Err: err}
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &AuthError{Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &AuthError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", &AuthError{Err: fmt.Errorf("decoding token response: %w", err)}
	}
	if tr.AccessToken == "" {
		return "", &AuthError{StatusCode: resp.StatusCode, Body: "response contained no access_token"}
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, tokenCacheKey, tr.AccessToken, tokenCacheTTL); err != nil {
			c.logger.Warn("failed to cache access token", zap.Error(err))
		}
	}

	return tr.AccessToken, nil
}

// STKPushRequest is the caller's view of one push initiation.
type STKPushRequest struct {
	Phone            string
	Amount           float64
	AccountReference string
	Description      string
}

// STKPushResponse carries the provider's acknowledgement of a push request.
type STKPushResponse struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResponseCode      string `json:"ResponseCode"`
	ResponseDesc      string `json:"ResponseDescription"`
	CustomerMessage   string `json:"CustomerMessage"`
}

type stkPushPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// InitiateSTKPush normalizes the phone, acquires a token and submits the
// push request. On success the returned CheckoutRequestID is the key a
// later callback will carry. Daraja only takes whole-unit amounts, so the
// amount is truncated to an integer here; callers needing exact accounting
// must round before calling.
func (c *Client) InitiateSTKPush(ctx context.Context, req STKPushRequest) (*STKPushResponse, error) {
	phone, err := NormalizePhone(req.Phone)
	if err != nil {
		return nil, &InitiationError{Stage: StageInvalidPhone, Err: err}
	}

	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, &InitiationError{Stage: StageAuth, Err: err}
	}

	timestamp := time.Now().Format("20060102150405")
	payload := stkPushPayload{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          c.password(timestamp),
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            int64(req.Amount),
		PartyA:            phone,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  truncateReference(req.AccountReference),
		TransactionDesc:   req.Description,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &InitiationError{Stage: StagePush, Err: err}
	}

	c.logger.Info("initiating stk push", redactedFields(payload)...)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.stkPushURL, bytes.NewReader(body))
	if err != nil {
		return nil, &InitiationError{Stage: StagePush, Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &InitiationError{Stage: StagePush, Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// A 401 means the cached token went stale; drop it so the next
		// call acquires a fresh one.
		if resp.StatusCode == http.StatusUnauthorized && c.cache != nil {
			if err := c.cache.Delete(ctx, tokenCacheKey); err != nil {
				c.logger.Warn("failed to invalidate cached token", zap.Error(err))
			}
		}
		return nil, &InitiationError{Stage: StagePush, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var pushResp STKPushResponse
	if err := json.Unmarshal(respBody, &pushResp); err != nil {
		return nil, &InitiationError{Stage: StagePush, Err: fmt.Errorf("decoding push response: %w", err)}
	}
	if pushResp.CheckoutRequestID == "" {
		return nil, &InitiationError{Stage: StagePush, StatusCode: resp.StatusCode, Body: "response contained no CheckoutRequestID"}
	}

	return &pushResp, nil
}

// password computes the Daraja request password for the given timestamp:
// base64(shortcode + passkey + timestamp). The timestamp is part of the
// signed material, so this is recomputed on every call and never cached.
func (c *Client) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(c.cfg.ShortCode + c.cfg.Passkey + timestamp))
}

func truncateReference(ref string) string {
	if len(ref) > maxAccountReferenceLen {
		return ref[:maxAccountReferenceLen]
	}
	return ref
}

// redactedFields renders the push payload for logging with the Password
// field omitted. Credentials and the signed password never reach the logs.
func redactedFields(p stkPushPayload) []zap.Field {
	return []zap.Field{
		zap.String("shortcode", p.BusinessShortCode),
		zap.String("timestamp", p.Timestamp),
		zap.String("transaction_type", p.TransactionType),
		zap.Int64("amount", p.Amount),
		zap.String("phone", p.PhoneNumber),
		zap.String("callback_url", p.CallBackURL),
		zap.String("account_reference", p.AccountReference),
		zap.String("transaction_desc", p.TransactionDesc),
	}
}
