package ynab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

// DefaultAPIURL is the production YNAB API base URL.
const DefaultAPIURL = "https://api.ynab.com/v1"

// APIError is a non-success response from YNAB.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ynab API error (status %d): %s", e.Status, e.Body)
}

// ClientConfig represents the configuration for the YNAB API client.
type ClientConfig struct {
	APIURL      string
	AccessToken string
	BudgetID    string
	Timeout     time.Duration // Default: 30 seconds
}

// Client is a YNAB API client scoped to one budget.
type Client struct {
	httpClient *http.Client
	baseURL    string
	budgetID   string
}

// NewClient creates a new YNAB API client.
func NewClient(config ClientConfig) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	baseURL := config.APIURL
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: config.AccessToken}),
			},
		},
		baseURL:  baseURL,
		budgetID: config.BudgetID,
	}
}

func (c *Client) budgetURL(path string) string {
	return fmt.Sprintf("%s/budgets/%s%s", c.baseURL, url.PathEscape(c.budgetID), path)
}

// ListAccounts returns all accounts of the budget.
func (c *Client) ListAccounts(ctx context.Context) ([]Account, error) {
	var resp AccountsResponse
	if err := c.do(ctx, http.MethodGet, c.budgetURL("/accounts"), nil, http.StatusOK, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch accounts: %w", err)
	}
	return resp.Data.Accounts, nil
}

// ListTransactions returns budget transactions, optionally since a date.
func (c *Client) ListTransactions(ctx context.Context, sinceDate string) ([]Transaction, error) {
	var resp TransactionsResponse
	if err := c.do(ctx, http.MethodGet, withSince(c.budgetURL("/transactions"), sinceDate), nil, http.StatusOK, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	return resp.Data.Transactions, nil
}

// ListAccountTransactions returns transactions of one account, optionally since a date.
func (c *Client) ListAccountTransactions(ctx context.Context, accountID, sinceDate string) ([]Transaction, error) {
	endpoint := c.budgetURL(fmt.Sprintf("/accounts/%s/transactions", url.PathEscape(accountID)))

	var resp TransactionsResponse
	if err := c.do(ctx, http.MethodGet, withSince(endpoint, sinceDate), nil, http.StatusOK, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch account transactions: %w", err)
	}
	return resp.Data.Transactions, nil
}

// CreateTransactions creates transactions in one bulk request.
// Transactions whose import id already exists are reported in DuplicateImportIDs.
func (c *Client) CreateTransactions(ctx context.Context, txns []NewTransaction) (*SaveResult, error) {
	var resp SaveTransactionsResponse
	body := SaveTransactionsRequest{Transactions: txns}
	if err := c.do(ctx, http.MethodPost, c.budgetURL("/transactions"), body, http.StatusCreated, &resp); err != nil {
		return nil, fmt.Errorf("failed to import transactions: %w", err)
	}
	return &resp.Data, nil
}

// SetFlag sets or, with a nil color, clears the flag of a transaction.
func (c *Client) SetFlag(ctx context.Context, transactionID string, color *string) (*Transaction, error) {
	var resp TransactionResponse
	body := UpdateTransactionRequest{Transaction: FlagUpdate{FlagColor: color}}
	endpoint := c.budgetURL("/transactions/" + url.PathEscape(transactionID))
	if err := c.do(ctx, http.MethodPatch, endpoint, body, http.StatusOK, &resp); err != nil {
		return nil, fmt.Errorf("failed to update flag of transaction %s: %w", transactionID, err)
	}
	return &resp.Data.Transaction, nil
}

// ClearFlag removes the flag of a transaction.
func (c *Client) ClearFlag(ctx context.Context, transactionID string) error {
	_, err := c.SetFlag(ctx, transactionID, nil)
	return err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body interface{}, wantStatus int, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return c.parseError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseError turns a non-success response into an *APIError.
func (c *Client) parseError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Status: resp.StatusCode, Body: "failed to read error response"}
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Detail != "" {
		return &APIError{Status: resp.StatusCode, Body: fmt.Sprintf("%s - %s", errResp.Error.Name, errResp.Error.Detail)}
	}

	return &APIError{Status: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
}

func withSince(endpoint, sinceDate string) string {
	if sinceDate == "" {
		return endpoint
	}
	return endpoint + "?" + url.Values{"since_date": {sinceDate}}.Encode()
}
