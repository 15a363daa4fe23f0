package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"WeddingRSVP/internal/model"
	"WeddingRSVP/internal/model/dto"
	"WeddingRSVP/internal/service"
	"WeddingRSVP/pkg/errors"
	"WeddingRSVP/pkg/response"
)

// AddAttendee 追加一位同行者
// POST /v1/rsvp/forms/:form_id/attendees
func AddAttendee(ctx context.Context, c *app.RequestContext) {
	f, _, err := service.RSVP().AddAttendee(ctx, c.Param("form_id"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Created(ctx, c, dto.NewFormData(f))
}

// UpdateAttendee 部分更新出席者字段，未出现的字段不变
// PATCH /v1/rsvp/forms/:form_id/attendees/:attendee_id
func UpdateAttendee(ctx context.Context, c *app.RequestContext) {
	var req dto.UpdateAttendeeRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	f, err := service.RSVP().UpdateAttendee(ctx, c.Param("form_id"), c.Param("attendee_id"), req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, dto.NewFormData(f))
}

// RemoveAttendee 本人或唯一的出席者不会被删除，removed=false
// DELETE /v1/rsvp/forms/:form_id/attendees/:attendee_id
func RemoveAttendee(ctx context.Context, c *app.RequestContext) {
	f, removed, err := service.RSVP().RemoveAttendee(ctx, c.Param("form_id"), c.Param("attendee_id"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, dto.RemoveAttendeeData{Removed: removed, Form: dto.NewFormData(f)})
}

// SetAttendance
// PUT /v1/rsvp/forms/:form_id/attendees/:attendee_id/attendance/:event
func SetAttendance(ctx context.Context, c *app.RequestContext) {
	var req dto.SetAttendanceRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	event := model.InviteType(c.Param("event"))
	f, err := service.RSVP().SetAttendance(ctx, c.Param("form_id"), c.Param("attendee_id"), event, req.Value)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, dto.NewFormData(f))
}

// EditAllergies 添加标签，或把按键作用于输入中的文字
// POST /v1/rsvp/forms/:form_id/attendees/:attendee_id/allergies
func EditAllergies(ctx context.Context, c *app.RequestContext) {
	var req dto.AllergyRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	data, err := service.RSVP().EditAllergies(ctx, c.Param("form_id"), c.Param("attendee_id"), req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, data)
}

// RemoveAllergy 标签放在 query 里，自由输入的标签可能含有 "/"
// DELETE /v1/rsvp/forms/:form_id/attendees/:attendee_id/allergies?tag=
func RemoveAllergy(ctx context.Context, c *app.RequestContext) {
	tag := c.Query("tag")
	if tag == "" {
		response.Error(ctx, c, errors.InvalidRequest)
		return
	}

	data, err := service.RSVP().RemoveAllergy(ctx, c.Param("form_id"), c.Param("attendee_id"), tag)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, data)
}
