package dto

import (
	"WeddingRSVP/internal/allergy"
	"WeddingRSVP/internal/model"
	"WeddingRSVP/internal/rsvp"
)

// ========== 招待状 ==========

// InvitationData GET /v1/invitations/:invitation_id
// guest 为 nil 表示匿名（CMS 取不到或未指定）
type InvitationData struct {
	Guest     *model.DearBlock   `json:"guest"`
	Events    []model.InviteType `json:"events"`
	Anonymous bool               `json:"anonymous"`
}

// ========== 表单会话 ==========

// CreateFormRequest invitationId 与 guestId 二选一，都为空时创建匿名表单
type CreateFormRequest struct {
	InvitationID string `json:"invitationId,omitempty"`
	GuestID      string `json:"guestId,omitempty"`
	DraftKey     string `json:"draftKey,omitempty"`
}

// AttendeeView 出席者及其需要回答的场次
type AttendeeView struct {
	model.Attendee
	Events []model.InviteType `json:"events"`
	// Removable 本人和唯一的出席者不可删除
	Removable bool `json:"removable"`
}

// FormData 表单的完整状态
type FormData struct {
	ID          string             `json:"id"`
	GuestID     string             `json:"guestId,omitempty"`
	GuestName   string             `json:"guestName,omitempty"`
	Invites     []model.InviteType `json:"invites"`
	ContactInfo model.ContactInfo  `json:"contactInfo"`
	Attendees   []AttendeeView     `json:"attendees"`
	Message     string             `json:"message"`
	View        model.FormView     `json:"view"`
}

func NewFormData(f *rsvp.Form) *FormData {
	attendees := make([]AttendeeView, len(f.Attendees))
	for i, a := range f.Attendees {
		attendees[i] = AttendeeView{
			Attendee:  a,
			Events:    f.EventsFor(i),
			Removable: i > 0 && len(f.Attendees) > 1,
		}
	}

	return &FormData{
		ID:          f.ID,
		GuestID:     f.GuestID,
		GuestName:   f.GuestName,
		Invites:     f.Invites,
		ContactInfo: f.Contact,
		Attendees:   attendees,
		Message:     f.Message,
		View:        f.View,
	}
}

type UpdateContactRequest struct {
	PostalCode string `json:"postalCode"`
	Prefecture string `json:"prefecture"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
}

func (r UpdateContactRequest) ToModel() model.ContactInfo {
	return model.ContactInfo{
		PostalCode: r.PostalCode,
		Prefecture: r.Prefecture,
		Address:    r.Address,
		Phone:      r.Phone,
		Email:      r.Email,
	}
}

type UpdateMessageRequest struct {
	Message string `json:"message"`
}

// ========== 住所検索 ==========

type PostalLookupRequest struct {
	PostalCode string `json:"postalCode"`
}

// 住所検索的结果状态
const (
	PostalResolved = "resolved"
	PostalSkipped  = "skipped"
	PostalNotFound = "not_found"
	PostalFailed   = "failed"
	PostalStale    = "stale"
)

// PostalLookupData 查不到或失败时 message 是字段旁的提示，表单仍可手动填写
type PostalLookupData struct {
	Status      string            `json:"status"`
	Message     string            `json:"message,omitempty"`
	ContactInfo model.ContactInfo `json:"contactInfo"`
}

// ========== 出席者 ==========

type UpdateAttendeeRequest = rsvp.AttendeePatch

type SetAttendanceRequest struct {
	Value model.Attendance `json:"value"`
}

// AllergyRequest tag 直接添加；否则 key（Enter / , / Backspace）作用于 buffer
type AllergyRequest struct {
	Tag    string `json:"tag,omitempty"`
	Key    string `json:"key,omitempty"`
	Buffer string `json:"buffer,omitempty"`
}

type AllergyData struct {
	Tags        []string           `json:"tags"`
	Buffer      string             `json:"buffer"`
	Changed     bool               `json:"changed"`
	Suggestions []allergy.Category `json:"suggestions"`
}

type RemoveAttendeeData struct {
	Removed bool      `json:"removed"`
	Form    *FormData `json:"form"`
}

// ========== 提交 ==========

type SubmitData struct {
	SubmissionID string    `json:"submissionId"`
	Form         *FormData `json:"form"`
}

// ========== 其他 ==========

type SuggestionsData struct {
	Categories []allergy.Category `json:"categories"`
}
