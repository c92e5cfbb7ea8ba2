package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/smartinprabhu/newgpt/internal/config"
	"github.com/smartinprabhu/newgpt/internal/logger"
	"github.com/smartinprabhu/newgpt/pkg/types"
)

// maxPromptRows caps how many data rows are rendered into an agent prompt.
const maxPromptRows = 200

// Client fetches scoped time-series data from the external data gateway.
// Authentication is a client-credentials exchange; the bearer token is cached
// for the client's lifetime and refreshed on demand.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenType   string
}

func NewClient(cfg config.DatasetConfig) *Client {
	return &Client{
		baseURL:      cfg.BaseURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
	}
}

type authRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	GrantType    string `json:"grant_type"`
}

type authResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type searchReadRequest struct {
	Fields []string      `json:"fields"`
	Domain []interface{} `json:"domain"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
	Order  string        `json:"order,omitempty"`
}

// Record is one data_feeds row from the gateway.
type Record struct {
	ID    int     `json:"id"`
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Authenticate exchanges client credentials for a bearer token.
func (c *Client) Authenticate(ctx context.Context) error {
	body, err := json.Marshal(authRequest{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		GrantType:    "client_credentials",
	})
	if err != nil {
		return fmt.Errorf("marshal auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/authenticate", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("authenticate: status %d: %s", resp.StatusCode, truncateBody(raw))
	}

	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return fmt.Errorf("decode auth response: %w", err)
	}
	if auth.AccessToken == "" {
		return fmt.Errorf("authenticate: empty access token")
	}

	c.mu.Lock()
	c.accessToken = auth.AccessToken
	c.tokenType = auth.TokenType
	if c.tokenType == "" {
		c.tokenType = "Bearer"
	}
	c.mu.Unlock()

	logger.Logger.Info().Msg("dataset gateway authenticated")
	return nil
}

// SearchRead queries one model with field selection and domain filters.
func (c *Client) SearchRead(ctx context.Context, model string, req searchReadRequest) ([]Record, error) {
	c.mu.Lock()
	token, tokenType := c.accessToken, c.tokenType
	c.mu.Unlock()
	if token == "" {
		if err := c.Authenticate(ctx); err != nil {
			return nil, err
		}
		c.mu.Lock()
		token, tokenType = c.accessToken, c.tokenType
		c.mu.Unlock()
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	url := fmt.Sprintf("%s/search_read?model=%s", c.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", tokenType+" "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", model, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("search %s: status %d: %s", model, resp.StatusCode, truncateBody(raw))
	}

	var records []Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return records, nil
}

// FetchScopeDataset retrieves the data_feeds rows for a business scope and
// renders them as a prompt-ready table. Returns "" when the scope has no
// data; the caller substitutes the explicit no-dataset marker.
func (c *Client) FetchScopeDataset(ctx context.Context, bu types.BusinessUnit, lob *types.LineOfBusiness) (string, error) {
	domain := []interface{}{}
	if bu.ID != nil {
		domain = append(domain, []interface{}{"business_unit_id", "=", *bu.ID})
	}
	if lob != nil {
		domain = append(domain, []interface{}{"lob_id", "=", lob.ID})
	}

	records, err := c.SearchRead(ctx, "data_feeds", searchReadRequest{
		Fields: []string{"id", "date", "value"},
		Domain: domain,
		Limit:  5000,
		Order:  "date asc",
	})
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", nil
	}

	return renderDataset(bu, lob, records), nil
}

func renderDataset(bu types.BusinessUnit, lob *types.LineOfBusiness, records []Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Historical data for %s", bu.DisplayName)
	if lob != nil {
		fmt.Fprintf(&b, " / %s", lob.Name)
	}
	fmt.Fprintf(&b, " (%d records):\n", len(records))
	b.WriteString("Date,Value\n")

	// Keep the most recent rows when the series exceeds the prompt cap.
	start := 0
	if len(records) > maxPromptRows {
		start = len(records) - maxPromptRows
	}
	for _, r := range records[start:] {
		fmt.Fprintf(&b, "%s,%g\n", r.Date, r.Value)
	}
	return b.String()
}

func truncateBody(raw []byte) string {
	s := string(raw)
	if len(s) > 500 {
		return s[:500] + "..."
	}
	return s
}
