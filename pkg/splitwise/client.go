package splitwise

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
)

// DefaultAPIURL is the production Splitwise API base URL.
const DefaultAPIURL = "https://secure.splitwise.com/api/v3.0"

// PageSize is the largest page requested from /get_expenses.
const PageSize = 100

// ErrNoExpense is returned when create_expense succeeds but returns no expense.
var ErrNoExpense = errors.New("splitwise create_expense returned no expense object")

// APIError is a non-success response from Splitwise.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("splitwise API error (status %d): %s", e.Status, e.Body)
}

// ClientConfig represents the configuration for the Splitwise API client.
type ClientConfig struct {
	APIURL      string
	AccessToken string
	Timeout     time.Duration // Default: 30 seconds
}

// Client is a Splitwise API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new Splitwise API client.
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
		baseURL: baseURL,
	}
}

// CurrentUserID returns the id of the authenticated user.
func (c *Client) CurrentUserID(ctx context.Context) (int64, error) {
	var resp CurrentUserResponse
	if err := c.get(ctx, "/get_current_user", nil, &resp); err != nil {
		return 0, fmt.Errorf("failed to fetch current user: %w", err)
	}
	return resp.User.ID, nil
}

// ListExpenses fetches a single page of expenses.
func (c *Client) ListExpenses(ctx context.Context, updatedAfter string, limit, offset int) ([]Expense, error) {
	params := url.Values{}
	if updatedAfter != "" {
		params.Set("updated_after", updatedAfter)
	}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	var resp ExpensesResponse
	if err := c.get(ctx, "/get_expenses", params, &resp); err != nil {
		return nil, err
	}
	return resp.Expenses, nil
}

// FetchAllExpenses fetches expenses updated after the given date with pagination.
// It stops on an empty or short page, or once maxRecords have been read.
func (c *Client) FetchAllExpenses(ctx context.Context, updatedAfter string, maxRecords int) ([]Expense, error) {
	var allExpenses []Expense
	offset := 0

	for len(allExpenses) < maxRecords {
		limit := min(PageSize, maxRecords-len(allExpenses))

		expenses, err := c.ListExpenses(ctx, updatedAfter, limit, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to list expenses (offset=%d): %w", offset, err)
		}

		if len(expenses) == 0 {
			break
		}

		allExpenses = append(allExpenses, expenses...)

		if len(expenses) < limit {
			break
		}

		offset += len(expenses)
	}

	return allExpenses, nil
}

// ListFriends returns the authenticated user's friends.
func (c *Client) ListFriends(ctx context.Context) ([]Friend, error) {
	var resp FriendsResponse
	if err := c.get(ctx, "/get_friends", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch friends: %w", err)
	}
	return resp.Friends, nil
}

// CreateExpense creates an expense and returns the created record.
func (c *Client) CreateExpense(ctx context.Context, req CreateExpenseRequest) (*Expense, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode expense: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/create_expense", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var expensesResp ExpensesResponse
	if err := json.NewDecoder(resp.Body).Decode(&expensesResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if expensesResp.HasErrors() {
		return nil, &APIError{Status: resp.StatusCode, Body: string(expensesResp.Errors)}
	}
	if len(expensesResp.Expenses) == 0 {
		return nil, ErrNoExpense
	}

	return &expensesResp.Expenses[0], nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseError(resp)
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
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{Status: resp.StatusCode, Body: errResp.Error}
	}

	return &APIError{Status: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
}
