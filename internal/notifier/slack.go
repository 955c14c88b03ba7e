package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/ingeniumed/Sitsense/internal/config"
	"github.com/ingeniumed/Sitsense/internal/models"
)

// Attachment Slack消息附件
type Attachment struct {
	Color    string `json:"color,omitempty"`
	Title    string `json:"title,omitempty"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// Client Slack Web API 客户端
type Client struct {
	http   *resty.Client
	cfg    *config.SlackConfig
	logger *zap.Logger
}

// NewClient 创建Slack客户端
func NewClient(cfg *config.SlackConfig, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.APIBaseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &Client{
		http:   httpClient,
		cfg:    cfg,
		logger: logger,
	}
}

type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

type lookupUserResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	User  struct {
		ID string `json:"id"`
	} `json:"user"`
}

type oauthAccessResponse struct {
	OK          bool   `json:"ok"`
	Error       string `json:"error"`
	TeamName    string `json:"team_name"`
	TeamID      string `json:"team_id"`
	AccessToken string `json:"access_token"`
	Bot         struct {
		BotAccessToken string `json:"bot_access_token"`
	} `json:"bot"`
}

// PostMessage 向频道或用户发送消息
func (c *Client) PostMessage(ctx context.Context, token, channel, text string, attachments []Attachment) error {
	if c.cfg.DisableDelivery {
		c.logger.Info("Slack delivery disabled, dropping message",
			zap.String("channel", channel),
			zap.String("text", text),
		)
		return nil
	}

	body := map[string]interface{}{
		"channel": channel,
		"text":    text,
	}
	if len(attachments) > 0 {
		body["attachments"] = attachments
	}

	var result apiResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(body).
		SetResult(&result).
		Post("/chat.postMessage")
	if err != nil {
		return fmt.Errorf("failed to post slack message: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("slack chat.postMessage returned status %d", resp.StatusCode())
	}
	if !result.OK {
		return fmt.Errorf("slack chat.postMessage rejected: %s", result.Error)
	}

	c.logger.Debug("Posted slack message", zap.String("channel", channel))
	return nil
}

// PostToMonitor 向运维监控频道发送消息
func (c *Client) PostToMonitor(ctx context.Context, text string, attachments []Attachment) error {
	return c.PostMessage(ctx, c.cfg.MonitorToken, c.cfg.MonitorChannel, text, attachments)
}

// LookupUserByEmail 按邮箱解析Slack用户
func (c *Client) LookupUserByEmail(ctx context.Context, token, email string) (string, error) {
	var result lookupUserResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParam("email", email).
		SetResult(&result).
		Get("/users.lookupByEmail")
	if err != nil {
		return "", fmt.Errorf("failed to look up slack user %s: %w", email, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("slack users.lookupByEmail returned status %d", resp.StatusCode())
	}
	if !result.OK {
		return "", fmt.Errorf("slack users.lookupByEmail rejected: %s", result.Error)
	}

	return result.User.ID, nil
}

// ExchangeOAuthCode 用OAuth临时码换取团队凭证
func (c *Client) ExchangeOAuthCode(ctx context.Context, code string) (*models.SlackToken, error) {
	var result oauthAccessResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"client_id":     c.cfg.ClientID,
			"client_secret": c.cfg.ClientSecret,
			"code":          code,
		}).
		SetResult(&result).
		Get("/oauth.access")
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("slack oauth.access returned status %d", resp.StatusCode())
	}
	if !result.OK {
		return nil, fmt.Errorf("slack oauth.access rejected: %s", result.Error)
	}

	return &models.SlackToken{
		TeamName: result.TeamName,
		TeamID:   result.TeamID,
		AppToken: result.AccessToken,
		BotToken: result.Bot.BotAccessToken,
	}, nil
}
