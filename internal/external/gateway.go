package external

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "boletera/internal/errors"
)

// Gateway abstracts the payment processor so either integration shape
// (signed webhook push, or notification-of-an-id plus a follow-up fetch)
// can back the reconciliation flow.
type Gateway interface {
	CreateIntent(ctx context.Context, intent Intent) (*IntentResult, error)
	VerifyNotification(body []byte) (*Notification, error)
	FetchPayment(ctx context.Context, externalID string) (*Notification, error)
}

type Config struct {
	BaseURL       string
	PublicKey     string
	EventSecret   string
	PublicBaseURL string
	Timeout       time.Duration
}

// Intent is a request to open a gateway checkout session.
type Intent struct {
	Reference   string
	Amount      int64
	Currency    string
	Description string
}

// IntentResult is the gateway-side handle the buyer is redirected to.
type IntentResult struct {
	PreferenceID string
	PaymentURL   string
}

// Notification is the shape-agnostic outcome of a gateway event.
// Reference carries our transaction id; Status is the raw gateway status.
type Notification struct {
	ExternalID string
	Reference  string
	Status     string
	RawPayload json.RawMessage
}

type Client struct {
	baseURL       string
	publicKey     string
	eventSecret   string
	publicBaseURL string
	httpClient    *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		baseURL:       cfg.BaseURL,
		publicKey:     cfg.PublicKey,
		eventSecret:   cfg.EventSecret,
		publicBaseURL: cfg.PublicBaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type intentRequest struct {
	PublicKey   string `json:"public_key"`
	Reference   string `json:"reference"`
	Amount      int64  `json:"amount_in_cents"`
	Currency    string `json:"currency"`
	Description string `json:"description,omitempty"`
	RedirectURL string `json:"redirect_url"`
}

type intentResponse struct {
	Data struct {
		ID         string `json:"id"`
		PaymentURL string `json:"payment_url"`
	} `json:"data"`
}

func (c *Client) CreateIntent(ctx context.Context, intent Intent) (*IntentResult, error) {
	reqBody := intentRequest{
		PublicKey:   c.publicKey,
		Reference:   intent.Reference,
		Amount:      intent.Amount,
		Currency:    intent.Currency,
		Description: intent.Description,
		RedirectURL: c.publicBaseURL + "/pago/" + intent.Reference,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal intent: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payment_links", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%w: unexpected status %d", apperrors.ErrGatewayUnavailable, resp.StatusCode)
	}

	var result intentResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode intent response: %w", err)
	}

	return &IntentResult{
		PreferenceID: result.Data.ID,
		PaymentURL:   result.Data.PaymentURL,
	}, nil
}

type webhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		Transaction struct {
			ID            string `json:"id"`
			AmountInCents int64  `json:"amount_in_cents"`
			Reference     string `json:"reference"`
			Status        string `json:"status"`
		} `json:"transaction"`
	} `json:"data"`
	Timestamp int64 `json:"timestamp"`
	Signature struct {
		Checksum   string   `json:"checksum"`
		Properties []string `json:"properties"`
	} `json:"signature"`
}

// VerifyNotification checks the webhook checksum before trusting the
// payload. The checksum is SHA-256 over the values of the declared
// signature properties in order, then the event timestamp, then the
// shared event secret. Anything that fails verification returns
// ErrInvalidSignature; this is the one webhook outcome that must reach
// the gateway as a failure so it retries delivery.
func (c *Client) VerifyNotification(body []byte) (*Notification, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse notification: %w", err)
	}

	var generic map[string]interface{}
	if err := json.Unmarshal(body, &generic); err != nil {
		return nil, fmt.Errorf("failed to parse notification: %w", err)
	}

	var sb strings.Builder
	for _, prop := range payload.Signature.Properties {
		value, ok := lookupProperty(generic["data"], prop)
		if !ok {
			return nil, apperrors.ErrInvalidSignature
		}
		sb.WriteString(value)
	}
	sb.WriteString(fmt.Sprintf("%d", payload.Timestamp))
	sb.WriteString(c.eventSecret)

	sum := sha256.Sum256([]byte(sb.String()))
	expected := hex.EncodeToString(sum[:])

	if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(payload.Signature.Checksum))) != 1 {
		return nil, apperrors.ErrInvalidSignature
	}

	return &Notification{
		ExternalID: payload.Data.Transaction.ID,
		Reference:  payload.Data.Transaction.Reference,
		Status:     payload.Data.Transaction.Status,
		RawPayload: json.RawMessage(body),
	}, nil
}

// lookupProperty resolves a dotted path like "transaction.reference"
// against the notification data object and renders the value the way it
// appeared on the wire.
func lookupProperty(data interface{}, path string) (string, bool) {
	current := data
	for _, key := range strings.Split(path, ".") {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return "", false
		}
		current, ok = obj[key]
		if !ok {
			return "", false
		}
	}

	switch v := current.(type) {
	case string:
		return v, true
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v)), true
		}
		return fmt.Sprintf("%v", v), true
	case bool:
		return fmt.Sprintf("%t", v), true
	default:
		return "", false
	}
}

type transactionResponse struct {
	Data struct {
		ID            string `json:"id"`
		Reference     string `json:"reference"`
		Status        string `json:"status"`
		AmountInCents int64  `json:"amount_in_cents"`
	} `json:"data"`
}

// FetchPayment retrieves the full payment object for async notifications
// that carry only an id.
func (c *Client) FetchPayment(ctx context.Context, externalID string) (*Notification, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transactions/"+externalID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.publicKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperrors.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", apperrors.ErrGatewayUnavailable, resp.StatusCode)
	}

	var result transactionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}

	raw, _ := json.Marshal(result.Data)
	return &Notification{
		ExternalID: result.Data.ID,
		Reference:  result.Data.Reference,
		Status:     result.Data.Status,
		RawPayload: raw,
	}, nil
}
