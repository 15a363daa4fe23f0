package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"WeddingRSVP/internal/model"
	"WeddingRSVP/internal/model/dto"
	"WeddingRSVP/pkg/logger"
)

var (
	invitationService *InvitationService
	invitationMu      sync.RWMutex
)

// SetInvitation 在启动时注入
func SetInvitation(s *InvitationService) {
	invitationMu.Lock()
	defer invitationMu.Unlock()
	invitationService = s
}

func Invitation() *InvitationService {
	invitationMu.RLock()
	defer invitationMu.RUnlock()
	return invitationService
}

type InvitationService struct {
	guests GuestSource
}

func NewInvitationService(guests GuestSource) *InvitationService {
	return &InvitationService{guests: guests}
}

// Get 取招待状展示数据；CMS 取不到时返回匿名结果而不是错误
func (s *InvitationService) Get(ctx context.Context, invitationID, draftKey string) *dto.InvitationData {
	guest := s.lookup(ctx, invitationID, draftKey)
	if guest == nil {
		return &dto.InvitationData{
			Events:    append([]model.InviteType{}, model.AllInviteTypes...),
			Anonymous: true,
		}
	}

	return &dto.InvitationData{
		Guest:  guest,
		Events: model.CanonicalInvites(guest.Invite),
	}
}

func (s *InvitationService) lookup(ctx context.Context, invitationID, draftKey string) *model.DearBlock {
	if invitationID == "" || s.guests == nil {
		return nil
	}

	g := s.guests.GetGuestByInvitationID(ctx, invitationID, draftKey)
	if g == nil {
		logger.Logger.Info("Guest unavailable, using anonymous invitation",
			zap.String("invitation_id", invitationID),
		)
		return nil
	}

	block := model.ToDearBlock(*g)
	return &block
}
