package deel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"compliance-rag/internal/metrics"
	"compliance-rag/internal/models"
	"compliance-rag/pkg/config"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	defaultPageSize  = 150
	defaultMaxOffset = 10000
)

// Client reads the people and contracts collections of the Deel REST API.
type Client struct {
	baseURL    string
	token      string
	pageSize   int
	maxOffset  int
	limiter    *rate.Limiter
	httpClient *http.Client
	logger     *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

func NewClient(cfg *config.DeelConfig, logger *zap.Logger, opts ...Option) *Client {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	maxOffset := cfg.MaxOffset
	if maxOffset <= 0 {
		maxOffset = defaultMaxOffset
	}

	// one page per PageDelay across both collections
	limit := rate.Inf
	if cfg.PageDelay > 0 {
		limit = rate.Every(cfg.PageDelay)
	}

	c := &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		token:     cfg.Token,
		pageSize:  pageSize,
		maxOffset: maxOffset,
		limiter:   rate.NewLimiter(limit, 1),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type pageEnvelope[T any] struct {
	Data []T `json:"data"`
}

// FetchRoster loads people and contracts concurrently and merges them into
// one worker list. An empty token falls back to the configured one.
func (c *Client) FetchRoster(ctx context.Context, token string) (*models.Roster, error) {
	if token == "" {
		token = c.token
	}
	if token == "" {
		return nil, ErrMissingToken
	}

	var (
		people    []Person
		contracts []Contract
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		people, err = fetchAll[Person](gctx, c, token, "/people", "people")
		return err
	})
	g.Go(func() error {
		var err error
		contracts, err = fetchAll[Contract](gctx, c, token, "/contracts", "contracts")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	roster := BuildRoster(people, contracts)

	c.logger.Info("Roster fetched",
		zap.Int("people", len(people)),
		zap.Int("contracts", len(contracts)),
		zap.Int("workers", len(roster.Workers)),
	)

	return roster, nil
}

// fetchAll pages through a collection with limit/offset until a short page or
// the offset safety cap.
func fetchAll[T any](ctx context.Context, c *Client, token, path, collection string) ([]T, error) {
	var all []T
	for offset := 0; offset <= c.maxOffset; offset += c.pageSize {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		var page pageEnvelope[T]
		if err := c.get(ctx, token, path, offset, &page); err != nil {
			return nil, wrapError(err, "list "+collection)
		}
		metrics.RosterPagesFetched.WithLabelValues(collection).Inc()

		all = append(all, page.Data...)
		if len(page.Data) < c.pageSize {
			return all, nil
		}
	}

	c.logger.Warn("Roster pagination reached safety cap",
		zap.String("collection", collection),
		zap.Int("max_offset", c.maxOffset),
		zap.Int("fetched", len(all)),
	)
	return all, nil
}

func (c *Client) get(ctx context.Context, token, path string, offset int, result interface{}) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(c.pageSize))
	q.Set("offset", strconv.Itoa(offset))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func wrapError(err error, op string) error {
	if err == nil {
		return nil
	}
	if apiErr, ok := err.(*APIError); ok {
		apiErr.Op = op
		return apiErr
	}
	return fmt.Errorf("%s: %w", op, err)
}
