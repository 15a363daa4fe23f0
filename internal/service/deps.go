package service

import (
	"context"

	"WeddingRSVP/internal/model"
	"WeddingRSVP/internal/rsvp"
	"WeddingRSVP/pkg/postal"
)

// FormStore 表单会话存储，Get 在不存在时返回 errors.FormNotFound
type FormStore interface {
	Get(ctx context.Context, formID string) (*rsvp.Form, error)
	Save(ctx context.Context, f *rsvp.Form) error
}

// Locker 每个表单一把互斥锁
type Locker interface {
	TryLock(ctx context.Context, formID string) (token string, ok bool, err error)
	Unlock(ctx context.Context, formID, token string) error
}

// GuestSource CMS 来宾查询，任何失败都返回 nil
type GuestSource interface {
	GetGuestByInvitationID(ctx context.Context, invitationID, draftKey string) *model.Guest
}

// AddressResolver 邮编解析
type AddressResolver interface {
	Resolve(ctx context.Context, code string) (*postal.Address, error)
}

// Breaker 包住外部调用
type Breaker interface {
	Call(ctx context.Context, operation func(context.Context) error) error
}
