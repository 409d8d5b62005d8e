package walletclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/rtpcraft/randomtp/internal/config"
	"github.com/rtpcraft/randomtp/internal/observability/metrics"
)

const (
	healthPath   = "/health"
	balancePath  = "/v1/accounts/{id}/balance"
	withdrawPath = "/v1/accounts/{id}/withdraw"
	depositPath  = "/v1/accounts/{id}/deposit"
)

var ErrInsufficientFunds = errors.New("insufficient funds")

// HTTPError is a non-2xx answer of the wallet service.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.StatusCode == http.StatusTooManyRequests {
		return "rate limit exceeded"
	}
	return fmt.Sprintf("wallet responded with status %d: %s", e.StatusCode, e.Message)
}

// retryable reports whether repeating the same call may succeed.
func (e *HTTPError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

type Client struct {
	httpClient *http.Client
	cfg        *config.WalletProviderConfig
	baseURL    string
}

func NewClient(cfg *config.WalletProviderConfig) *Client {
	if cfg == nil {
		return nil
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		baseURL:    strings.TrimRight(cfg.URL, "/"),
	}
}

func (c *Client) GetBaseURL() string {
	return c.baseURL
}

type balanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
	// Reference stays the same across retries so the wallet can deduplicate.
	Reference string `json:"reference"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (c *Client) Health(ctx context.Context) error {
	// availability probes are not retried, the next probe is the retry
	return c.send(ctx, http.MethodGet, healthPath, healthPath, nil, nil)
}

func (c *Client) GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	path := accountPath(balancePath, accountID)

	result, err := clientCallWithRetry(ctx, func() (decimal.Decimal, error) {
		var resp balanceResponse
		if err := c.send(ctx, http.MethodGet, path, balancePath, nil, &resp); err != nil {
			return decimal.Zero, err
		}
		return resp.Balance, nil
	}, c.cfg)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance of %q: %w", accountID, err)
	}
	return result, nil
}

func (c *Client) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) error {
	return c.move(ctx, withdrawPath, accountID, amount)
}

func (c *Client) Deposit(ctx context.Context, accountID string, amount decimal.Decimal) error {
	return c.move(ctx, depositPath, accountID, amount)
}

func (c *Client) move(ctx context.Context, template, accountID string, amount decimal.Decimal) error {
	path := accountPath(template, accountID)
	body := amountRequest{Amount: amount, Reference: uuid.NewString()}

	_, err := clientCallWithRetry(ctx, func() (struct{}, error) {
		return struct{}{}, c.send(ctx, http.MethodPost, path, template, body, nil)
	}, c.cfg)
	if err != nil {
		return fmt.Errorf("failed to move %s for %q: %w", amount, accountID, err)
	}
	return nil
}

// send performs one request. templatePath labels the request metric so
// account ids do not blow up its cardinality.
func (c *Client) send(ctx context.Context, method, path, templatePath string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	timer := metrics.StartClientRequestDurationTimer(c.baseURL, method, templatePath)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		timer(0)
		return err
	}
	defer resp.Body.Close()
	timer(resp.StatusCode)

	if resp.StatusCode == http.StatusPaymentRequired {
		return ErrInsufficientFunds
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return &HTTPError{StatusCode: resp.StatusCode, Message: errResp.Error}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func accountPath(template, accountID string) string {
	return strings.Replace(template, "{id}", url.PathEscape(accountID), 1)
}

func clientCallWithRetry[T any](
	ctx context.Context,
	call retry.RetryableFuncWithData[T],
	cfg *config.WalletProviderConfig,
) (T, error) {
	result, err := retry.DoWithData(call,
		retry.Context(ctx),
		retry.Attempts(cfg.MaxRetryTimes),
		retry.Delay(cfg.RetryInterval),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var httpErr *HTTPError
			shouldRetry := errors.As(err, &httpErr) && httpErr.retryable()
			log.Ctx(ctx).Warn().
				Err(err).
				Bool("should_retry", shouldRetry).
				Msg("Retry condition check")
			return shouldRetry
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Debug().
				Uint("attempt", n+1).
				Uint("max_attempts", cfg.MaxRetryTimes).
				Err(err).
				Msg("wallet call failed, retrying with exponential backoff")
		}))
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
