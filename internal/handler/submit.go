package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"WeddingRSVP/internal/model/dto"
	"WeddingRSVP/internal/service"
	"WeddingRSVP/pkg/response"
)

// SubmitForm 校验并投递回答。校验失败返回 422，details 为字段错误
// POST /v1/rsvp/forms/:form_id/submit
func SubmitForm(ctx context.Context, c *app.RequestContext) {
	f, submissionID, err := service.RSVP().Submit(ctx, c.Param("form_id"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, dto.SubmitData{SubmissionID: submissionID, Form: dto.NewFormData(f)})
}

// ResubmitForm 回到表单重新回答
// POST /v1/rsvp/forms/:form_id/resubmit
func ResubmitForm(ctx context.Context, c *app.RequestContext) {
	f, err := service.RSVP().Resubmit(ctx, c.Param("form_id"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, dto.NewFormData(f))
}
