// Package cms 从 microCMS 形式的 headless CMS 读取来宾记录。
// 任何失败都只记录日志并返回 nil，调用方据此降级为匿名表单。
package cms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/network/standard"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.uber.org/zap"

	"WeddingRSVP/internal/model"
	"WeddingRSVP/pkg/logger"
	"WeddingRSVP/pkg/metrics"
)

const apiKeyHeader = "X-MICROCMS-API-KEY"

// Cache 已发布来宾的缓存，empty 表示缓存了「不存在」
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (hit bool, empty bool, err error)
	Set(ctx context.Context, key string, value interface{}) error
}

// Breaker 熔断器，打开时直接失败
type Breaker interface {
	Call(ctx context.Context, operation func(context.Context) error) error
}

type Client struct {
	endpoint string
	apiKey   string
	timeout  time.Duration
	hc       *client.Client

	cache   Cache
	breaker Breaker
}

type Option func(*Client)

func WithCache(c Cache) Option {
	return func(cl *Client) { cl.cache = c }
}

func WithBreaker(b Breaker) Option {
	return func(cl *Client) { cl.breaker = b }
}

func NewClient(endpoint, apiKey string, timeout time.Duration, opts ...Option) (*Client, error) {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	hc, err := client.NewClient(
		client.WithDialer(standard.NewDialer()),
		client.WithDialTimeout(timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cms http client: %w", err)
	}

	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		timeout:  timeout,
		hc:       hc,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetGuestByInvitationID 按招待 ID 取来宾。draftKey 非空时取草稿且不走缓存
func (c *Client) GetGuestByInvitationID(ctx context.Context, invitationID, draftKey string) *model.Guest {
	if invitationID == "" {
		return nil
	}

	if draftKey == "" && c.cache != nil {
		var cached model.Guest
		hit, empty, err := c.cache.Get(ctx, invitationID, &cached)
		if err != nil {
			logger.Logger.Warn("CMS cache read failed",
				zap.String("invitation_id", invitationID),
				zap.Error(err),
			)
		} else if hit {
			metrics.RecordCMSFetch(ctx, "cache")
			if empty {
				return nil
			}
			return &cached
		}
	}

	var (
		guest *model.Guest
		found bool
	)
	fetch := func(ctx context.Context) error {
		var err error
		guest, found, err = c.fetch(ctx, invitationID, draftKey)
		return err
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Call(ctx, fetch)
	} else {
		err = fetch(ctx)
	}
	if err != nil {
		metrics.RecordCMSFetch(ctx, "error")
		logger.Logger.Warn("CMS guest lookup failed",
			zap.String("invitation_id", invitationID),
			zap.Bool("draft", draftKey != ""),
			zap.Error(err),
		)
		return nil
	}

	if !found {
		metrics.RecordCMSFetch(ctx, "not_found")
	} else {
		metrics.RecordCMSFetch(ctx, "ok")
	}

	if draftKey == "" && c.cache != nil {
		var value interface{}
		if found {
			value = guest
		}
		if err := c.cache.Set(ctx, invitationID, value); err != nil {
			logger.Logger.Warn("CMS cache write failed",
				zap.String("invitation_id", invitationID),
				zap.Error(err),
			)
		}
	}

	return guest
}

// fetch 404 视为不存在而不是故障，不计入熔断
func (c *Client) fetch(ctx context.Context, invitationID, draftKey string) (*model.Guest, bool, error) {
	req, resp := protocol.AcquireRequest(), protocol.AcquireResponse()
	defer func() {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}()

	uri := c.endpoint + "/" + url.PathEscape(invitationID)
	if draftKey != "" {
		uri += "?draftKey=" + url.QueryEscape(draftKey)
	}

	req.SetRequestURI(uri)
	req.SetMethod(consts.MethodGet)
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")

	if err := c.hc.DoTimeout(ctx, req, resp, c.timeout); err != nil {
		return nil, false, fmt.Errorf("request cms: %w", err)
	}

	status := resp.StatusCode()
	if status == consts.StatusNotFound {
		return nil, false, nil
	}
	if status < 200 || status >= 300 {
		return nil, false, fmt.Errorf("cms returned status %d", status)
	}

	var guest model.Guest
	if err := json.Unmarshal(resp.Body(), &guest); err != nil {
		return nil, false, fmt.Errorf("decode cms guest: %w", err)
	}
	if guest.ID == "" {
		guest.ID = invitationID
	}
	return &guest, true, nil
}
