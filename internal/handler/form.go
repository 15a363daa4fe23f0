package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"WeddingRSVP/internal/model/dto"
	"WeddingRSVP/internal/service"
	"WeddingRSVP/pkg/response"
)

// CreateForm 打开一个表单会话
// POST /v1/rsvp/forms
func CreateForm(ctx context.Context, c *app.RequestContext) {
	var req dto.CreateFormRequest
	if len(c.Request.Body()) > 0 {
		if err := c.BindJSON(&req); err != nil {
			response.BindError(ctx, c, err)
			return
		}
	}

	f, err := service.RSVP().CreateForm(ctx, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Created(ctx, c, dto.NewFormData(f))
}

// GetForm
// GET /v1/rsvp/forms/:form_id
func GetForm(ctx context.Context, c *app.RequestContext) {
	f, err := service.RSVP().GetForm(ctx, c.Param("form_id"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, dto.NewFormData(f))
}

// UpdateContact 整体替换联络信息
// PUT /v1/rsvp/forms/:form_id/contact
func UpdateContact(ctx context.Context, c *app.RequestContext) {
	var req dto.UpdateContactRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	f, err := service.RSVP().UpdateContact(ctx, c.Param("form_id"), req.ToModel())
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, dto.NewFormData(f))
}

// UpdateMessage
// PUT /v1/rsvp/forms/:form_id/message
func UpdateMessage(ctx context.Context, c *app.RequestContext) {
	var req dto.UpdateMessageRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	f, err := service.RSVP().SetMessage(ctx, c.Param("form_id"), req.Message)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, dto.NewFormData(f))
}

// PostalLookup 住所検索。查不到或失败不是请求错误，status 和 message 放在 data 里
// POST /v1/rsvp/forms/:form_id/postal-lookup
func PostalLookup(ctx context.Context, c *app.RequestContext) {
	var req dto.PostalLookupRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	data, err := service.RSVP().PostalLookup(ctx, c.Param("form_id"), req.PostalCode)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, data)
}
