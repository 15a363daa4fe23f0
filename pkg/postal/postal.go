// Package postal 通过郵便番号検索 API（zipcloud 形式）把 7 位邮编解析为都道府県和住所。
package postal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/network/standard"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.uber.org/zap"

	"WeddingRSVP/pkg/errors"
	"WeddingRSVP/pkg/logger"
)

var sevenDigits = regexp.MustCompile(`^\d{7}$`)

// Address 解析结果，Address 为 都道府県+市区町村+町域
type Address struct {
	Prefecture string `json:"prefecture"`
	Address    string `json:"address"`
}

// Normalize 去掉连字符
func Normalize(code string) string {
	return strings.ReplaceAll(code, "-", "")
}

// ShouldResolve 只有去掉连字符后恰好是 7 位数字才发起查询
func ShouldResolve(code string) (string, bool) {
	n := Normalize(code)
	return n, sevenDigits.MatchString(n)
}

type apiResponse struct {
	Status  int         `json:"status"`
	Message *string     `json:"message"`
	Results []apiResult `json:"results"`
}

type apiResult struct {
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	Address3 string `json:"address3"`
	Zipcode  string `json:"zipcode"`
}

// Client 邮编查询客户端
type Client struct {
	baseURL string
	timeout time.Duration
	hc      *client.Client
}

func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	hc, err := client.NewClient(
		client.WithDialer(standard.NewDialer()),
		client.WithDialTimeout(timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create postal http client: %w", err)
	}

	return &Client{baseURL: baseURL, timeout: timeout, hc: hc}, nil
}

// Resolve 查询第一条结果。没有结果返回 errors.AddressNotFound，
// 网络错误、非 2xx、API 状态异常或响应无法解析返回 errors.AddressLookupFailed。
func (c *Client) Resolve(ctx context.Context, code string) (*Address, error) {
	normalized, ok := ShouldResolve(code)
	if !ok {
		return nil, errors.PostalCodeInvalid
	}

	req, resp := protocol.AcquireRequest(), protocol.AcquireResponse()
	defer func() {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}()

	req.SetRequestURI(c.baseURL + "?zipcode=" + url.QueryEscape(normalized))
	req.SetMethod(consts.MethodGet)
	req.Header.Set("Accept", "application/json")

	if err := c.hc.DoTimeout(ctx, req, resp, c.timeout); err != nil {
		logger.Logger.Warn("Postal lookup request failed",
			zap.String("postal_code", normalized),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", errors.AddressLookupFailed, err)
	}

	if status := resp.StatusCode(); status < 200 || status >= 300 {
		logger.Logger.Warn("Postal lookup returned non-2xx",
			zap.String("postal_code", normalized),
			zap.Int("status", status),
		)
		return nil, errors.AddressLookupFailed
	}

	var body apiResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		logger.Logger.Warn("Postal lookup response malformed",
			zap.String("postal_code", normalized),
			zap.Error(err),
		)
		return nil, errors.AddressLookupFailed
	}

	// zipcloud 在参数错误时 status=400，results=null
	if body.Status != 0 && body.Status != 200 {
		return nil, errors.AddressLookupFailed
	}

	if len(body.Results) == 0 {
		return nil, errors.AddressNotFound
	}

	first := body.Results[0]
	return &Address{
		Prefecture: first.Address1,
		Address:    first.Address1 + first.Address2 + first.Address3,
	}, nil
}
