package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/CodeWithProBrian/Mpesa/internal/metrics"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const (
	tokenPath = "/oauth/v1/generate?grant_type=client_credentials"
	stkPath   = "/mpesa/stkpush/v1/processrequest"
	queryPath = "/mpesa/stkpushquery/v1/query"

	timestampLayout      = "20060102150405"
	defaultTimeout       = 30 * time.Second
	defaultTokenLifetime = 3599
	tokenExpiryLeeway    = 60 * time.Second
)

// Daraja timestamps are validated against Nairobi time.
var nairobi = time.FixedZone("EAT", 3*60*60)

// DarajaConfig holds the static credentials and endpoints for the Safaricom
// Daraja API.
type DarajaConfig struct {
	BaseURL          string
	ConsumerKey      string
	ConsumerSecret   string
	Passkey          string
	ShortCode        string
	CallbackURL      string
	AccountReference string
	TransactionDesc  string
	Timeout          time.Duration
	// CacheToken reuses an access token until shortly before it expires
	// instead of fetching one per call.
	CacheToken bool
}

// DarajaClient implements Gateway against M-Pesa Express.
type DarajaClient struct {
	cfg    DarajaConfig
	client *http.Client
	logger *zerolog.Logger
	now    func() time.Time

	mu    sync.Mutex
	token *oauth2.Token
}

func NewDarajaClient(cfg DarajaConfig, logger *zerolog.Logger) *DarajaClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.AccountReference == "" {
		cfg.AccountReference = "account"
	}
	if cfg.TransactionDesc == "" {
		cfg.TransactionDesc = "Payment for goods"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &DarajaClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		now:    time.Now,
	}
}

type darajaTokenResp struct {
	AccessToken string          `json:"access_token"`
	ExpiresIn   json.RawMessage `json:"expires_in"`
}

// AccessToken returns a bearer token for the next API call.
func (d *DarajaClient) AccessToken(ctx context.Context) (string, error) {
	if d.cfg.CacheToken {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.token.Valid() {
			return d.token.AccessToken, nil
		}
	}
	tok, err := d.FetchToken(ctx)
	if err != nil {
		return "", err
	}
	if d.cfg.CacheToken {
		d.token = tok
	}
	return tok.AccessToken, nil
}

// FetchToken exchanges the consumer key and secret for a new token. It does
// not retry.
func (d *DarajaClient) FetchToken(ctx context.Context) (*oauth2.Token, error) {
	credentials := base64.StdEncoding.EncodeToString([]byte(d.cfg.ConsumerKey + ":" + d.cfg.ConsumerSecret))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.cfg.BaseURL+tokenPath, nil)
	if err != nil {
		return nil, &NetworkError{Op: "token", Err: err}
	}
	req.Header.Set("Authorization", "Basic "+credentials)
	req.Header.Set("Content-Type", "application/json")

	_, body, err := d.do(req, "token")
	if err != nil {
		metrics.IncTokenFetch("network_error")
		return nil, err
	}
	var out darajaTokenResp
	if err := json.Unmarshal(body, &out); err != nil {
		metrics.IncTokenFetch("network_error")
		return nil, &NetworkError{Op: "token", Err: fmt.Errorf("decode response: %w", err)}
	}
	if out.AccessToken == "" {
		metrics.IncTokenFetch("auth_error")
		return nil, &AuthError{Err: ErrMissingToken}
	}
	metrics.IncTokenFetch("ok")
	tok := &oauth2.Token{AccessToken: out.AccessToken, TokenType: "Bearer"}
	secs := parseExpiresIn(out.ExpiresIn)
	if secs <= 0 {
		secs = defaultTokenLifetime
	}
	tok.Expiry = d.now().Add(time.Duration(secs)*time.Second - tokenExpiryLeeway)
	return tok, nil
}

// Daraja sends expires_in as a quoted number.
func parseExpiresIn(raw json.RawMessage) int {
	n, err := strconv.Atoi(strings.Trim(strings.TrimSpace(string(raw)), `"`))
	if err != nil {
		return 0
	}
	return n
}

// password returns the timestamp and the matching
// base64(shortcode + passkey + timestamp) credential.
func (d *DarajaClient) password() (timestamp, password string) {
	timestamp = d.now().In(nairobi).Format(timestampLayout)
	password = base64.StdEncoding.EncodeToString([]byte(d.cfg.ShortCode + d.cfg.Passkey + timestamp))
	return timestamp, password
}

// postJSON sends a bearer-authenticated JSON request.
func (d *DarajaClient) postJSON(ctx context.Context, endpoint, path, token string, payload any) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("encode %s request: %w", endpoint, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, &NetworkError{Op: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	return d.do(req, endpoint)
}

func (d *DarajaClient) do(req *http.Request, endpoint string) (int, []byte, error) {
	start := time.Now()
	resp, err := d.client.Do(req)
	metrics.ObserveProviderRequest(endpoint, time.Since(start))
	if err != nil {
		return 0, nil, &NetworkError{Op: endpoint, Err: err}
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, &NetworkError{Op: endpoint, Err: fmt.Errorf("read response: %w", err)}
	}
	d.logger.Debug().
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("daraja response")
	return resp.StatusCode, respBody, nil
}
