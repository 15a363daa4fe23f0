package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"WeddingRSVP/internal/service"
	"WeddingRSVP/pkg/errors"
	"WeddingRSVP/pkg/response"
)

// GetInvitation 招待状的宛名和招待区分，CMS 取不到时返回匿名结果
// GET /v1/invitations/:invitation_id?draftKey=
func GetInvitation(ctx context.Context, c *app.RequestContext) {
	invitationID := c.Param("invitation_id")
	if invitationID == "" {
		response.Error(ctx, c, errors.InvitationIDRequired)
		return
	}

	data := service.Invitation().Get(ctx, invitationID, c.Query("draftKey"))
	response.Success(ctx, c, data)
}
