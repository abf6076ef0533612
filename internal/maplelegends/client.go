package maplelegends

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/Luisotee/maplelegends-bot/internal/domain"
)

// DefaultBaseURL is the public MapleLegends site.
const DefaultBaseURL = "https://maplelegends.com"

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

var (
	// ErrContentNotFound means the account page loaded but the vote cash or
	// username blocks were missing, usually because the session ID is invalid.
	ErrContentNotFound = errors.New("unable to find vote cash or username information")
	// ErrCharacterNotFound means the character API returned no data.
	ErrCharacterNotFound = errors.New("character not found")
)

// Client fetches account and server data from the MapleLegends site.
type Client struct {
	http    *http.Client
	baseURL string
	retry   RetryOptions
	logger  *zap.Logger
}

// NewClient creates a client against the given base URL. Timeout bounds every
// request; a timeout is reported like any other fetch failure.
func NewClient(baseURL string, timeout time.Duration, retry RetryOptions, logger *zap.Logger) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		retry:   retry,
		logger:  logger,
	}
}

type accountCash struct {
	Username string
	Cash     int
}

// AccountCash scrapes the account page reachable with the given session ID
// and returns the account's username and current vote cash.
func (c *Client) AccountCash(ctx context.Context, accountID string) (string, int, error) {
	res, err := withRetry(ctx, c.retry, func() (accountCash, error) {
		return c.fetchAccountCash(ctx, accountID)
	})
	if err != nil {
		return "", 0, err
	}
	return res.Username, res.Cash, nil
}

func (c *Client) fetchAccountCash(ctx context.Context, accountID string) (accountCash, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/my/account", nil)
	if err != nil {
		return accountCash{}, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cookie", "mlTheme=light; webpy_session_id="+accountID)
	req.Header.Set("Referer", c.baseURL+"/vote")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return accountCash{}, fmt.Errorf("fetch account page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return accountCash{}, fmt.Errorf("fetch account page: unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return accountCash{}, fmt.Errorf("parse account page: %w", err)
	}

	var cashText string
	doc.Find("div.col-md-6").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if strings.Contains(sel.Text(), "Vote Cash:") {
			cashText = strings.TrimSpace(sel.Find("b").First().Text())
			return false
		}
		return true
	})
	username := strings.TrimSpace(doc.Find("ul.nav.navbar-nav.pull-right li.visible-md.visible-lg a.spa").First().Text())

	if cashText == "" || username == "" {
		return accountCash{}, backoff.Permanent(fmt.Errorf("%w for account ID %s", ErrContentNotFound, accountID))
	}

	// The site renders the amount with thousands separators.
	cash, err := strconv.ParseFloat(strings.ReplaceAll(cashText, ",", ""), 64)
	if err != nil {
		return accountCash{}, backoff.Permanent(fmt.Errorf("parse vote cash %q: %w", cashText, err))
	}

	return accountCash{Username: username, Cash: int(cash)}, nil
}

// OnlineCount returns the current number of online players.
func (c *Client) OnlineCount(ctx context.Context) (int, error) {
	return withRetry(ctx, c.retry, func() (int, error) {
		body, err := c.getJSON(ctx, "/api/get_online_users", nil)
		if err != nil {
			return 0, err
		}

		var payload struct {
			Usercount int `json:"usercount"`
		}
		if err := sonic.Unmarshal(body, &payload); err != nil {
			return 0, backoff.Permanent(fmt.Errorf("parse online users: %w", err))
		}
		return payload.Usercount, nil
	})
}

// CharacterStats returns the public stats for a character name.
func (c *Client) CharacterStats(ctx context.Context, name string) (domain.Character, error) {
	return withRetry(ctx, c.retry, func() (domain.Character, error) {
		body, err := c.getJSON(ctx, "/api/character", url.Values{"name": {name}})
		if err != nil {
			return domain.Character{}, err
		}

		var character *domain.Character
		if err := sonic.Unmarshal(body, &character); err != nil {
			return domain.Character{}, backoff.Permanent(fmt.Errorf("parse character: %w", err))
		}
		if character == nil || character.Name == "" {
			return domain.Character{}, backoff.Permanent(fmt.Errorf("%w: %s", ErrCharacterNotFound, name))
		}
		return *character, nil
	})
}

// Avatar returns the rendered avatar image for a character name.
func (c *Client) Avatar(ctx context.Context, name string) ([]byte, error) {
	return withRetry(ctx, c.retry, func() ([]byte, error) {
		return c.get(ctx, "/api/getavatar", url.Values{"name": {name}})
	})
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.get(ctx, path, query)
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("unexpected status from maplelegends",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("fetch %s: unexpected status %d", path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return body, nil
}
