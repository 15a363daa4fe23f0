package middleware

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/hertz-contrib/csrf"
	"github.com/hertz-contrib/sessions"
	"github.com/hertz-contrib/sessions/cookie"

	"WeddingRSVP/pkg/errors"
	"WeddingRSVP/pkg/response"
)

const csrfSessionName = "rsvp-session"

// CSRFMiddleware 返回 session + csrf 两个中间件，顺序不能调换。
// GET/HEAD/OPTIONS 不校验，写操作需要在 X-CSRF-TOKEN 头里带上 /v1/csrf-token 取得的 token
func CSRFMiddleware(secret string) []app.HandlerFunc {
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400,
		HttpOnly: true,
	})

	return []app.HandlerFunc{
		sessions.New(csrfSessionName, store),
		csrf.New(
			csrf.WithSecret(secret),
			csrf.WithKeyLookUp("header:X-CSRF-TOKEN"),
			csrf.WithErrorFunc(func(ctx context.Context, c *app.RequestContext) {
				response.Error(ctx, c, errors.CSRFInvalid)
				c.Abort()
			}),
		),
	}
}
