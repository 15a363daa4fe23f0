// Package rsvp 是 RSVP 表单的纯内存控制器：联系方式、出席者列表和留言，
// 以及增删出席者、字段更新、校验和提交前的负载构建。
// 存储、锁与网络调用都在 internal/service 中编排。
package rsvp

import (
	"time"

	"WeddingRSVP/internal/allergy"
	"WeddingRSVP/internal/attendance"
	"WeddingRSVP/internal/model"
	"WeddingRSVP/pkg/errors"
)

// IDSource 出席者 ID 的来源，测试里可以换成确定性的计数器
type IDSource interface {
	NextID() string
}

// Form 一次表单会话的全部状态
type Form struct {
	ID        string             `json:"id"`
	GuestID   string             `json:"guestId"`
	GuestName string             `json:"guestName"`
	Invites   []model.InviteType `json:"invites"`
	Contact   model.ContactInfo  `json:"contactInfo"`
	Attendees []model.Attendee   `json:"attendees"`
	Message   string             `json:"message"`
	View      model.FormView     `json:"view"`

	// PostalToken 每次住所検索前递增，只有最新一次的结果可以写回
	PostalToken uint64 `json:"postalToken"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewForm 根据来宾信息创建表单。guest 为 nil 时是匿名表单，可选全部场次。
// autofill 打开时预填本人的姓名 / フリガナ；family 的每位成员各预置一位出席者。
func NewForm(formID string, guest *model.DearBlock, ids IDSource, now time.Time) *Form {
	f := &Form{
		ID:        formID,
		View:      model.ViewForm,
		CreatedAt: now,
		UpdatedAt: now,
	}

	primary := model.NewAttendee(ids.NextID())

	if guest == nil {
		f.Invites = append([]model.InviteType{}, model.AllInviteTypes...)
		f.Attendees = []model.Attendee{primary}
		return f
	}

	f.GuestID = guest.ID
	f.GuestName = guest.Name
	f.Invites = model.CanonicalInvites(guest.Invite)
	applyAutofill(&primary, guest.Name, guest.Kana, guest.Autofill)
	f.Attendees = []model.Attendee{primary}

	for _, member := range guest.Family {
		companion := model.NewAttendee(ids.NextID())
		companion.Invites = model.CanonicalInvites(member.Invite)
		applyAutofill(&companion, member.Name, member.Kana, guest.Autofill)
		f.Attendees = append(f.Attendees, companion)
	}

	return f
}

func applyAutofill(a *model.Attendee, name, kana string, af *model.Autofill) {
	if af == nil {
		return
	}
	if af.Name {
		a.Name = name
	}
	if af.Kana {
		a.Furigana = kana
	}
}

// EventsFor 第 index 位出席者需要回答的场次。
// 本人：本人的招待区分；同行者：本人 ∩（同行者自己的，若为空则本人的）。
func (f *Form) EventsFor(index int) []model.InviteType {
	if index < 0 || index >= len(f.Attendees) {
		return nil
	}
	primary := model.CanonicalInvites(f.Invites)
	if index == 0 {
		return primary
	}

	own := f.Attendees[index].Invites
	if len(own) == 0 {
		return primary
	}

	allowed := make(map[model.InviteType]bool, len(own))
	for _, t := range own {
		allowed[t] = true
	}
	out := make([]model.InviteType, 0, len(primary))
	for _, t := range primary {
		if allowed[t] {
			out = append(out, t)
		}
	}
	return out
}

// IndexOf 按 ID 查找出席者，找不到返回 -1
func (f *Form) IndexOf(id string) int {
	for i, a := range f.Attendees {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// AddAttendee 追加一位只有默认值的出席者，不复制已有数据
func (f *Form) AddAttendee(ids IDSource) model.Attendee {
	a := model.NewAttendee(f.uniqueID(ids))
	f.Attendees = append(f.Attendees, a)
	return a
}

// uniqueID 防御 ID 源偶发重复
func (f *Form) uniqueID(ids IDSource) string {
	for {
		id := ids.NextID()
		if f.IndexOf(id) < 0 {
			return id
		}
	}
}

// RemoveAttendee 本人（index 0）不可删除，列表不会变空；
// 返回是否真的删除了
func (f *Form) RemoveAttendee(id string) (bool, error) {
	idx := f.IndexOf(id)
	if idx < 0 {
		return false, errors.AttendeeNotFound
	}
	if idx == 0 || len(f.Attendees) <= 1 {
		return false, nil
	}

	next := make([]model.Attendee, 0, len(f.Attendees)-1)
	for _, a := range f.Attendees {
		if a.ID != id {
			next = append(next, a)
		}
	}
	f.Attendees = next
	return true, nil
}

// UpdateContact 整体替换联系方式
func (f *Form) UpdateContact(c model.ContactInfo) {
	f.Contact = c
}

func (f *Form) SetMessage(msg string) {
	f.Message = msg
}

// replace 写时复制：只替换目标下标的那个元素
func (f *Form) replace(idx int, a model.Attendee) {
	next := make([]model.Attendee, len(f.Attendees))
	copy(next, f.Attendees)
	next[idx] = a
	f.Attendees = next
}

// UpdateAttendee 应用字段补丁
func (f *Form) UpdateAttendee(id string, patch AttendeePatch) (model.Attendee, error) {
	idx := f.IndexOf(id)
	if idx < 0 {
		return model.Attendee{}, errors.AttendeeNotFound
	}

	updated, err := patch.Apply(f.Attendees[idx])
	if err != nil {
		return model.Attendee{}, err
	}
	f.replace(idx, updated)
	return updated, nil
}

// SetAttendance 经过选择器状态机修改某一场次的出欠
func (f *Form) SetAttendance(id string, event model.InviteType, value model.Attendance) (model.Attendee, error) {
	idx := f.IndexOf(id)
	if idx < 0 {
		return model.Attendee{}, errors.AttendeeNotFound
	}
	if !event.Valid() {
		return model.Attendee{}, errors.AttendanceInvalid
	}
	if !contains(f.EventsFor(idx), event) {
		return model.Attendee{}, errors.EventNotInvited
	}

	current := f.Attendees[idx]
	updated := current
	sel := attendance.New(current.AttendanceFor(event))
	sel.OnChange = func(v model.Attendance) {
		updated = current.Clone().WithAttendance(event, v)
		f.replace(idx, updated)
	}
	if err := sel.Select(value); err != nil {
		return model.Attendee{}, errors.AttendanceInvalid
	}
	return updated, nil
}

// EditAllergies 对某位出席者的标签做一次编辑，返回编辑后的状态
func (f *Form) EditAllergies(id string, edit func(*allergy.Editor)) (*allergy.Editor, error) {
	idx := f.IndexOf(id)
	if idx < 0 {
		return nil, errors.AttendeeNotFound
	}

	current := f.Attendees[idx]
	editor := allergy.NewEditor(current.Allergies, "")
	edit(editor)

	updated := current.Clone()
	updated.Allergies = append([]string{}, editor.Tags...)
	f.replace(idx, updated)
	return editor, nil
}

// BuildSubmission 组装提交负载，name 为来宾名，匿名时取本人的姓名
func (f *Form) BuildSubmission(submissionID string, now time.Time) model.Submission {
	name := f.GuestName
	if name == "" && len(f.Attendees) > 0 {
		name = f.Attendees[0].Name
	}

	attendees := make([]model.Attendee, len(f.Attendees))
	for i, a := range f.Attendees {
		attendees[i] = a.Clone()
		// 招待区分只用于决定要回答哪些场次，不随提交送出
		attendees[i].Invites = nil
	}

	return model.Submission{
		SubmissionID: submissionID,
		GuestID:      f.GuestID,
		Name:         name,
		ContactInfo:  f.Contact,
		Attendees:    attendees,
		Message:      f.Message,
		SubmittedAt:  now,
	}
}

func contains(list []model.InviteType, t model.InviteType) bool {
	for _, v := range list {
		if v == t {
			return true
		}
	}
	return false
}
