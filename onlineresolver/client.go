package onlineresolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nerveband/amp-resolver/logging"
	"github.com/nerveband/amp-resolver/textpipeline"
)

const defaultBaseURL = "https://itunes.apple.com"

const userAgent = "amp-resolver/0.1 (+https://github.com/nerveband/amp-resolver)"

// searchResponse mirrors the iTunes Search API shape spec.md §4.D describes:
// a dict with resultCount and results[], each carrying at least artistName
// and trackName.
type searchResponse struct {
	ResultCount int              `json:"resultCount"`
	Results     []searchResult   `json:"results"`
}

type searchResult struct {
	ArtistName string `json:"artistName"`
	TrackName  string `json:"trackName"`
}

// Client wraps the iTunes Search HTTP endpoint behind the adaptive rate
// limiter and the response-interpretation rules of spec.md §4.D.
type Client struct {
	httpClient *http.Client
	limiter    *AdaptiveLimiter
	baseURL    string
	logger     logging.Logger
}

// NewClient constructs a Client. configuredRPM <= 0 starts the limiter at
// the adaptive-discovery rate (discoveryStartRPM).
func NewClient(configuredRPM int, logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.Nop
	}
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    NewAdaptiveLimiter(configuredRPM),
		baseURL:    defaultBaseURL,
		logger:     logger,
	}
}

// Limiter exposes the adaptive limiter so the Orchestrator can persist its
// discovered rpm and the Dispatcher can drive retry() over it.
func (c *Client) Limiter() *AdaptiveLimiter { return c.limiter }

// Search implements spec.md §4.D "Response interpretation": builds the
// search term from clean_conservative(title) [+ " " + clean_conservative(album)],
// retries once with title-only on a zero result count, and prefers a result
// whose normalized trackName starts with the normalized title.
func (c *Client) Search(ctx context.Context, title, album, artistHint string) (Result, error) {
	cleanTitle := textpipeline.CleanConservative(title)
	cleanAlbum := textpipeline.CleanConservative(album)

	term := cleanTitle
	if cleanAlbum != "" {
		term = cleanTitle + " " + cleanAlbum
	}

	result, err := c.searchTerm(ctx, term, cleanTitle)
	if errors.Is(err, ErrNotFound) && cleanAlbum != "" {
		return c.searchTerm(ctx, cleanTitle, cleanTitle)
	}
	return result, err
}

// searchTerm issues the request for term and prefers the result whose
// normalized trackName starts with titleForPrefix (the title alone,
// spec.md §4.D step 3 — never the combined title+album search term, which
// trackName would never match against).
func (c *Client) searchTerm(ctx context.Context, term, titleForPrefix string) (Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	endpoint := fmt.Sprintf("%s/search?term=%s&entity=song&limit=5", c.baseURL, url.QueryEscape(term))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{}, fmt.Errorf("%w: building request: %v", ErrInvalid, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{Outcome: OutcomeNetworkError}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		c.limiter.RecordRateLimited()
		return Result{Outcome: OutcomeRateLimited}, ErrRateLimited
	case resp.StatusCode >= 500:
		return Result{Outcome: OutcomeNetworkError}, fmt.Errorf("%w: status %d", ErrNetwork, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return Result{Outcome: OutcomeInvalid}, fmt.Errorf("%w: status %d", ErrInvalid, resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{Outcome: OutcomeInvalid}, fmt.Errorf("%w: decoding response: %v", ErrInvalid, err)
	}

	c.limiter.RecordSuccess()

	if parsed.ResultCount == 0 || len(parsed.Results) == 0 {
		return Result{Outcome: OutcomeNotFound}, ErrNotFound
	}

	best := parsed.Results[0]
	normalizedTitle := textpipeline.NormalizeForMatching(titleForPrefix)
	for _, r := range parsed.Results {
		if strings.HasPrefix(textpipeline.NormalizeForMatching(r.TrackName), normalizedTitle) {
			best = r
			break
		}
	}

	if best.ArtistName == "" {
		return Result{Outcome: OutcomeInvalid}, fmt.Errorf("%w: result missing artistName", ErrInvalid)
	}

	return Result{Outcome: OutcomeSuccess, ArtistName: best.ArtistName}, nil
}
