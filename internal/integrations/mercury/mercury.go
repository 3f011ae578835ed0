package mercury

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Dan9191/mercury-notifier/internal/config"
	"github.com/Dan9191/mercury-notifier/internal/models"
	"github.com/Dan9191/mercury-notifier/internal/utils"
	"github.com/sirupsen/logrus"
)

// HTTPError is returned when the Mercury API answers with a non-success status
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}

// Client handles integration with the Mercury banking API
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     *logrus.Logger
}

// NewClient initializes a new Mercury client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		baseURL: cfg.MercuryURL,
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		log: log,
	}
}

type transactionsResponse struct {
	Transactions []models.Transaction `json:"transactions"`
}

// buildRequest creates the GET request for the account's most recent transactions
func (c *Client) buildRequest(ctx context.Context, accountID string, limit int) (*http.Request, error) {
	endpoint := fmt.Sprintf("%s/account/%s/transactions", c.baseURL, url.PathEscape(accountID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	q := req.URL.Query()
	q.Set("limit", strconv.Itoa(limit))
	q.Set("order", "desc")
	req.URL.RawQuery = q.Encode()

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// FetchTransactions returns up to limit transactions for the account, newest first
func (c *Client) FetchTransactions(ctx context.Context, accountID string, limit int) ([]models.Transaction, error) {
	req, err := c.buildRequest(ctx, accountID, limit)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	c.log.Debugf("Mercury response for account %s: %s", utils.MaskID(accountID), string(body))

	var out transactionsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}

	c.log.Infof("Fetched %d transactions for account %s", len(out.Transactions), utils.MaskID(accountID))
	return out.Transactions, nil
}
