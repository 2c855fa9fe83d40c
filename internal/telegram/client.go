// Package telegram implements the transport against the Telegram Bot API:
// long-polling for updates and sending messages.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/projectbot/internal/logger"
)

// DefaultBaseURL is the public Telegram Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

const (
	methodGetMe       = "getMe"
	methodGetUpdates  = "getUpdates"
	methodSendMessage = "sendMessage"

	defaultRequestTimeout = 10 * time.Second
)

// Options configures a Client.
type Options struct {
	Token   string
	BaseURL string
	// RequestTimeout bounds sendMessage calls and is added on top of the
	// long-poll timeout for getUpdates.
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// Client talks to the Telegram Bot API. Updates are fetched with a plain
// HTTP long-poll so the caller owns the offset; outgoing calls go through
// the go-telegram/bot client.
type Client struct {
	token          string
	baseURL        string
	requestTimeout time.Duration
	httpClient     *http.Client
	api            *bot.Bot
	log            *slog.Logger
}

// NewClient creates a Telegram transport. It performs no network I/O.
func NewClient(opts Options) (*Client, error) {
	if opts.Token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	log := opts.Logger.With("component", "telegram_client")

	httpClient := &http.Client{}
	api, err := bot.New(opts.Token,
		bot.WithSkipGetMe(),
		bot.WithServerURL(baseURL),
		bot.WithHTTPClient(opts.RequestTimeout, httpClient),
	)
	if err != nil {
		log.Error("Failed to create Telegram bot instance", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	log.Info("Telegram client created", "base_url", baseURL)
	return &Client{
		token:          opts.Token,
		baseURL:        baseURL,
		requestTimeout: opts.RequestTimeout,
		httpClient:     httpClient,
		api:            api,
		log:            log,
	}, nil
}

// GetMe returns the bot's own user record.
func (c *Client) GetMe(ctx context.Context) (*models.User, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	me, err := c.api.GetMe(reqCtx)
	if err != nil {
		return nil, &TransportError{Method: methodGetMe, Err: err}
	}
	return me, nil
}

// FetchUpdates long-polls for updates with update_id >= offset, letting the
// server hold the request for up to timeout.
//
// A body that cannot be parsed, or one without a result field, yields no
// updates and no error. Network failures are returned as *TransportError.
func (c *Client) FetchUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]models.Update, error) {
	if timeout < 0 {
		timeout = 0
	}

	query := url.Values{}
	query.Set("timeout", strconv.Itoa(int(timeout/time.Second)))
	query.Set("offset", strconv.FormatInt(offset, 10))

	reqCtx, cancel := context.WithTimeout(ctx, timeout+c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.methodURL(methodGetUpdates)+"?"+query.Encode(), nil)
	if err != nil {
		return nil, &TransportError{Method: methodGetUpdates, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Method: methodGetUpdates, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: methodGetUpdates, Err: err}
	}

	return c.decodeUpdates(ctx, resp.StatusCode, raw), nil
}

type updatesResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

func (c *Client) decodeUpdates(ctx context.Context, status int, raw []byte) []models.Update {
	var resp updatesResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.log.ErrorContext(ctx, "Failed to parse getUpdates response", "status", status, "body", string(raw), "error", err)
		return nil
	}

	if len(resp.Result) == 0 {
		c.log.WarnContext(ctx, "getUpdates response has no result", "status", status, "ok", resp.OK, "description", resp.Description)
		return nil
	}

	var updates []models.Update
	if err := json.Unmarshal(resp.Result, &updates); err != nil {
		c.log.ErrorContext(ctx, "Failed to parse getUpdates result", "status", status, "body", string(raw), "error", err)
		return nil
	}
	return updates
}

// SendMessage makes exactly one attempt to post text to chatID.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	_, err := c.api.SendMessage(reqCtx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		return &TransportError{Method: methodSendMessage, Err: err}
	}
	return nil
}

func (c *Client) methodURL(method string) string {
	return c.baseURL + "/bot" + c.token + "/" + method
}
