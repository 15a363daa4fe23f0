package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"WeddingRSVP/internal/allergy"
	"WeddingRSVP/internal/model"
	"WeddingRSVP/internal/model/dto"
	"WeddingRSVP/internal/rsvp"
	"WeddingRSVP/internal/submit"
	"WeddingRSVP/pkg/errors"
	"WeddingRSVP/pkg/logger"
	"WeddingRSVP/pkg/metrics"
	"WeddingRSVP/pkg/postal"
	"WeddingRSVP/utils"
)

var (
	rsvpService *RSVPService
	rsvpMu      sync.RWMutex
)

// SetRSVP 在启动时注入
func SetRSVP(s *RSVPService) {
	rsvpMu.Lock()
	defer rsvpMu.Unlock()
	rsvpService = s
}

func RSVP() *RSVPService {
	rsvpMu.RLock()
	defer rsvpMu.RUnlock()
	return rsvpService
}

const (
	lockRetries  = 20
	lockInterval = 25 * time.Millisecond
)

// RSVPDeps RSVPService 的协作者
type RSVPDeps struct {
	Forms         FormStore
	Locker        Locker
	Guard         *rsvp.Guard
	Guests        GuestSource
	Postal        AddressResolver
	PostalBreaker Breaker
	Submitter     submit.Submitter
	IDs           rsvp.IDSource
	Now           func() time.Time
}

// RSVPService 表单会话的编排：每次修改都是 加锁 → 读取 → 修改 → 保存 → 解锁
type RSVPService struct {
	deps RSVPDeps
	log  *zap.Logger
}

func NewRSVPService(deps RSVPDeps) *RSVPService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &RSVPService{deps: deps, log: logger.Named("rsvp")}
}

// CreateForm 建立新的表单会话。提交标记只在这里检查一次
func (s *RSVPService) CreateForm(ctx context.Context, req dto.CreateFormRequest) (*rsvp.Form, error) {
	invitationID := req.InvitationID
	if invitationID == "" {
		invitationID = req.GuestID
	}

	var guest *model.DearBlock
	if invitationID != "" && s.deps.Guests != nil {
		if g := s.deps.Guests.GetGuestByInvitationID(ctx, invitationID, req.DraftKey); g != nil {
			block := model.ToDearBlock(*g)
			guest = &block
		}
	}

	f := rsvp.NewForm(uuid.NewString(), guest, s.deps.IDs, s.deps.Now())

	if f.GuestID != "" {
		submitted, err := s.deps.Guard.HasSubmitted(ctx, f.GuestID)
		if err != nil {
			s.log.Warn("Failed to read submission guard, showing form",
				zap.String("guest_id", f.GuestID),
				zap.Error(err),
			)
		}
		if submitted {
			f.View = model.ViewCompleted
		}
	}

	if err := s.deps.Forms.Save(ctx, f); err != nil {
		return nil, fmt.Errorf("failed to save form: %w", err)
	}

	s.log.Info("Form created",
		zap.String("form_id", f.ID),
		zap.String("guest_id", f.GuestID),
		zap.Bool("anonymous", guest == nil),
		zap.String("view", string(f.View)),
	)
	return f, nil
}

func (s *RSVPService) GetForm(ctx context.Context, formID string) (*rsvp.Form, error) {
	return s.deps.Forms.Get(ctx, formID)
}

// mutate 在表单锁内执行修改并保存；fn 返回错误时不保存
func (s *RSVPService) mutate(ctx context.Context, formID string, fn func(f *rsvp.Form) error) (*rsvp.Form, error) {
	token, err := s.lock(ctx, formID)
	if err != nil {
		return nil, err
	}
	defer s.unlock(formID, token)

	f, err := s.deps.Forms.Get(ctx, formID)
	if err != nil {
		return nil, err
	}

	if err := fn(f); err != nil {
		return nil, err
	}

	f.UpdatedAt = s.deps.Now()
	if err := s.deps.Forms.Save(ctx, f); err != nil {
		return nil, fmt.Errorf("failed to save form: %w", err)
	}
	return f, nil
}

// edit 与 mutate 相同，但完成画面上的表单不可修改
func (s *RSVPService) edit(ctx context.Context, formID string, fn func(f *rsvp.Form) error) (*rsvp.Form, error) {
	return s.mutate(ctx, formID, func(f *rsvp.Form) error {
		if f.View == model.ViewCompleted {
			return errors.FormCompleted
		}
		return fn(f)
	})
}

func (s *RSVPService) lock(ctx context.Context, formID string) (string, error) {
	for i := 0; i < lockRetries; i++ {
		token, ok, err := s.deps.Locker.TryLock(ctx, formID)
		if err != nil {
			return "", fmt.Errorf("failed to lock form: %w", err)
		}
		if ok {
			return token, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(lockInterval):
		}
	}
	return "", errors.FormBusy
}

// unlock 使用独立的 context，请求被取消时也要释放锁
func (s *RSVPService) unlock(formID, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.deps.Locker.Unlock(ctx, formID, token); err != nil {
		s.log.Warn("Failed to release form lock",
			zap.String("form_id", formID),
			zap.Error(err),
		)
	}
}

func (s *RSVPService) UpdateContact(ctx context.Context, formID string, c model.ContactInfo) (*rsvp.Form, error) {
	return s.edit(ctx, formID, func(f *rsvp.Form) error {
		f.UpdateContact(c)
		return nil
	})
}

func (s *RSVPService) SetMessage(ctx context.Context, formID, message string) (*rsvp.Form, error) {
	return s.edit(ctx, formID, func(f *rsvp.Form) error {
		f.SetMessage(message)
		return nil
	})
}

func (s *RSVPService) AddAttendee(ctx context.Context, formID string) (*rsvp.Form, model.Attendee, error) {
	var added model.Attendee
	f, err := s.edit(ctx, formID, func(f *rsvp.Form) error {
		added = f.AddAttendee(s.deps.IDs)
		return nil
	})
	return f, added, err
}

// RemoveAttendee 本人或唯一出席者时 removed 为 false，表单不变
func (s *RSVPService) RemoveAttendee(ctx context.Context, formID, attendeeID string) (*rsvp.Form, bool, error) {
	var removed bool
	f, err := s.edit(ctx, formID, func(f *rsvp.Form) error {
		var err error
		removed, err = f.RemoveAttendee(attendeeID)
		return err
	})
	return f, removed, err
}

func (s *RSVPService) UpdateAttendee(ctx context.Context, formID, attendeeID string, patch rsvp.AttendeePatch) (*rsvp.Form, error) {
	return s.edit(ctx, formID, func(f *rsvp.Form) error {
		_, err := f.UpdateAttendee(attendeeID, patch)
		return err
	})
}

func (s *RSVPService) SetAttendance(ctx context.Context, formID, attendeeID string, event model.InviteType, value model.Attendance) (*rsvp.Form, error) {
	return s.edit(ctx, formID, func(f *rsvp.Form) error {
		_, err := f.SetAttendance(attendeeID, event, value)
		return err
	})
}

// EditAllergies tag 非空时直接添加；否则把 key 作用于 buffer
func (s *RSVPService) EditAllergies(ctx context.Context, formID, attendeeID string, req dto.AllergyRequest) (*dto.AllergyData, error) {
	var (
		editor  *allergy.Editor
		changed bool
	)
	_, err := s.edit(ctx, formID, func(f *rsvp.Form) error {
		var err error
		editor, err = f.EditAllergies(attendeeID, func(e *allergy.Editor) {
			if req.Tag != "" {
				changed = e.AddTag(req.Tag)
				return
			}
			e.Buffer = req.Buffer
			changed = e.HandleKey(req.Key)
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return allergyData(editor, changed), nil
}

func (s *RSVPService) RemoveAllergy(ctx context.Context, formID, attendeeID, tag string) (*dto.AllergyData, error) {
	var (
		editor  *allergy.Editor
		changed bool
	)
	_, err := s.edit(ctx, formID, func(f *rsvp.Form) error {
		var err error
		editor, err = f.EditAllergies(attendeeID, func(e *allergy.Editor) {
			changed = e.RemoveTag(tag)
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return allergyData(editor, changed), nil
}

func allergyData(e *allergy.Editor, changed bool) *dto.AllergyData {
	return &dto.AllergyData{
		Tags:        e.Tags,
		Buffer:      e.Buffer,
		Changed:     changed,
		Suggestions: allergy.Default().Suggestions(e.Tags, e.Buffer),
	}
}

// PostalLookup 先记录邮编，满足 7 位数字时才查询。查询期间不持有表单锁，
// 结果只在 token 仍是最新且邮编未被改动时写回
func (s *RSVPService) PostalLookup(ctx context.Context, formID, code string) (*dto.PostalLookupData, error) {
	normalized, resolvable := postal.ShouldResolve(code)

	var token uint64
	f, err := s.edit(ctx, formID, func(f *rsvp.Form) error {
		f.Contact.PostalCode = code
		if resolvable {
			f.PostalToken++
			token = f.PostalToken
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !resolvable {
		return &dto.PostalLookupData{Status: dto.PostalSkipped, ContactInfo: f.Contact}, nil
	}

	addr, lookupErr := s.resolve(ctx, normalized)

	var result *dto.PostalLookupData
	f, err = s.edit(ctx, formID, func(f *rsvp.Form) error {
		if f.PostalToken != token || postal.Normalize(f.Contact.PostalCode) != normalized {
			result = &dto.PostalLookupData{Status: dto.PostalStale, Message: errors.AddressLookupStale.Message}
			return nil
		}

		switch {
		case lookupErr == nil:
			f.Contact.Prefecture = addr.Prefecture
			f.Contact.Address = addr.Address
			result = &dto.PostalLookupData{Status: dto.PostalResolved}
		case stderrors.Is(lookupErr, errors.AddressNotFound):
			result = &dto.PostalLookupData{Status: dto.PostalNotFound, Message: errors.AddressNotFound.Message}
		default:
			result = &dto.PostalLookupData{Status: dto.PostalFailed, Message: errors.AddressLookupFailed.Message}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordPostalLookup(ctx, result.Status)
	result.ContactInfo = f.Contact
	return result, nil
}

func (s *RSVPService) resolve(ctx context.Context, code string) (*postal.Address, error) {
	if s.deps.Postal == nil {
		return nil, errors.AddressLookupFailed
	}

	var addr *postal.Address
	call := func(ctx context.Context) error {
		var err error
		addr, err = s.deps.Postal.Resolve(ctx, code)
		return err
	}

	var err error
	if s.deps.PostalBreaker != nil {
		err = s.deps.PostalBreaker.Call(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		if !stderrors.Is(err, errors.AddressNotFound) {
			s.log.Warn("Postal lookup failed",
				zap.String("postal_code", code),
				zap.Error(err),
			)
		}
		return nil, err
	}
	return addr, nil
}

// submitLockKey 提交专用的锁，与编辑用的表单锁分开
func submitLockKey(formID string) string {
	return formID + ":submit"
}

// Submit 同一表单同时只有一次提交在进行。校验和组装在表单锁内完成，
// 投递期间不持有表单锁，其他字段仍可修改；送出的是组装时的内容。
// 校验失败时不发起任何网络请求；投递失败时表单保持原样
func (s *RSVPService) Submit(ctx context.Context, formID string) (*rsvp.Form, string, error) {
	submitToken, ok, err := s.deps.Locker.TryLock(ctx, submitLockKey(formID))
	if err != nil {
		return nil, "", fmt.Errorf("failed to lock form: %w", err)
	}
	if !ok {
		return nil, "", errors.SubmitInProgress
	}
	defer s.unlock(submitLockKey(formID), submitToken)

	var submission model.Submission
	_, err = s.edit(ctx, formID, func(f *rsvp.Form) error {
		if fieldErrs := f.Validate(); len(fieldErrs) > 0 {
			metrics.RecordValidationFailure(ctx, len(fieldErrs))
			return rsvp.ValidationError(fieldErrs)
		}
		if s.deps.Submitter == nil {
			return errors.SubmitterNotConfig
		}
		submission = f.BuildSubmission(uuid.NewString(), s.deps.Now())
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	log := logger.ForForm("rsvp", formID)
	transport := s.deps.Submitter.Transport()

	start := time.Now()
	if err := s.deps.Submitter.Submit(ctx, submission); err != nil {
		metrics.RecordSubmission(ctx, transport, "failed", time.Since(start).Seconds())
		log.Error("Submission failed",
			zap.String("submission_id", submission.SubmissionID),
			zap.String("transport", transport),
			zap.Error(err),
		)
		if stderrors.Is(err, errors.SubmitterNotConfig) {
			return nil, "", errors.SubmitterNotConfig
		}
		return nil, "", fmt.Errorf("%w: %v", errors.SubmissionFailed, err)
	}
	metrics.RecordSubmission(ctx, transport, "success", time.Since(start).Seconds())

	f, err := s.mutate(ctx, formID, func(f *rsvp.Form) error {
		if f.GuestID != "" {
			if err := s.deps.Guard.MarkSubmitted(ctx, f.GuestID); err != nil {
				s.log.Error("Failed to set submission guard",
					zap.String("guest_id", f.GuestID),
					zap.Error(err),
				)
			}
		}
		f.View = model.ViewCompleted

		log.Info("RSVP submitted",
			zap.String("guest_id", f.GuestID),
			zap.String("submission_id", submission.SubmissionID),
			zap.Int("attendees", len(submission.Attendees)),
			zap.String("email", utils.MaskEmail(submission.ContactInfo.Email)),
			zap.String("phone", utils.MaskPhone(submission.ContactInfo.Phone)),
		)
		return nil
	})
	if err != nil {
		// 已经送达，只是完成画面没能写回
		log.Error("Failed to mark form completed",
			zap.String("submission_id", submission.SubmissionID),
			zap.Error(err),
		)
		return nil, "", err
	}
	return f, submission.SubmissionID, nil
}

// Resubmit 清除提交标记并回到表单，之前填写的内容保留
func (s *RSVPService) Resubmit(ctx context.Context, formID string) (*rsvp.Form, error) {
	return s.mutate(ctx, formID, func(f *rsvp.Form) error {
		if f.View != model.ViewCompleted {
			return errors.NotSubmittedYet
		}

		if f.GuestID != "" {
			if err := s.deps.Guard.Clear(ctx, f.GuestID); err != nil {
				return fmt.Errorf("failed to clear submission guard: %w", err)
			}
		}

		f.View = model.ViewForm
		return nil
	})
}
