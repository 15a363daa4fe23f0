package handler

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/hertz-contrib/csrf"

	"WeddingRSVP/config"
	"WeddingRSVP/internal/allergy"
	"WeddingRSVP/internal/countdown"
	"WeddingRSVP/internal/model/dto"
	"WeddingRSVP/pkg/response"
)

var now = time.Now

// GetAllergySuggestions 候选词，exclude 为逗号分隔的已选标签
// GET /v1/allergies/suggestions?q=&exclude=
func GetAllergySuggestions(ctx context.Context, c *app.RequestContext) {
	var exclude []string
	for _, tag := range strings.Split(c.Query("exclude"), ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			exclude = append(exclude, tag)
		}
	}

	categories := allergy.Default().Suggestions(exclude, c.Query("q"))
	response.Success(ctx, c, dto.SuggestionsData{Categories: categories})
}

// GetCountdown 距离挙式的剩余时间
// GET /v1/countdown
func GetCountdown(ctx context.Context, c *app.RequestContext) {
	target := config.Cfg.WeddingTime()
	response.SuccessWithMeta(ctx, c, countdown.Until(now(), target), map[string]interface{}{
		"target": target.Format(time.RFC3339),
	})
}

// GetCSRFToken 前端在写操作前取 token，放进 X-CSRF-TOKEN 头
// GET /v1/csrf-token
func GetCSRFToken(ctx context.Context, c *app.RequestContext) {
	response.Success(ctx, c, map[string]string{"csrf_token": csrf.GetToken(c)})
}
