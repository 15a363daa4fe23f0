package model

import "time"

// ContactInfo 联系方式，只做输入掩码层面的约束，不做规范化
type ContactInfo struct {
	PostalCode string `json:"postalCode"`
	Prefecture string `json:"prefecture"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
}

// UseOption 宿泊・タクシー・駐車場の利用有無
type UseOption string

const (
	UseNone UseOption = "なし"
	UseYes  UseOption = "あり"
)

func (o UseOption) Valid() bool {
	return o == UseNone || o == UseYes
}

// Attendance 单个场次的出欠
type Attendance string

const (
	AttendanceUnset     Attendance = ""
	AttendanceAttending Attendance = "attending"
	AttendanceDeclined  Attendance = "declined"
)

// Attendee 表单中的一位出席者（本人或同行者），与 CMS Guest 相互独立
type Attendee struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Furigana      string     `json:"furigana"`
	Birthday      string     `json:"birthday"`
	HotelUse      UseOption  `json:"hotelUse"`
	TaxiUse       UseOption  `json:"taxiUse"`
	ParkingUse    UseOption  `json:"parkingUse"`
	Allergies     []string   `json:"allergies"`
	DislikedFoods string     `json:"dislikedFoods"`
	Ceremony      Attendance `json:"ceremony"`
	Reception     Attendance `json:"reception"`
	AfterParty    Attendance `json:"afterParty"`

	// Invites 同行者自己的招待区分（来自 CMS family），为空时沿用本人的
	Invites []InviteType `json:"invites,omitempty"`
}

// NewAttendee 返回所有字段为默认值的出席者
func NewAttendee(id string) Attendee {
	return Attendee{
		ID:         id,
		HotelUse:   UseNone,
		TaxiUse:    UseNone,
		ParkingUse: UseNone,
		Allergies:  []string{},
	}
}

// AttendanceFor 读取指定场次的出欠
func (a Attendee) AttendanceFor(event InviteType) Attendance {
	switch event {
	case InviteCeremony:
		return a.Ceremony
	case InviteReception:
		return a.Reception
	case InviteAfterParty:
		return a.AfterParty
	}
	return AttendanceUnset
}

// WithAttendance 返回替换了指定场次出欠的副本
func (a Attendee) WithAttendance(event InviteType, v Attendance) Attendee {
	switch event {
	case InviteCeremony:
		a.Ceremony = v
	case InviteReception:
		a.Reception = v
	case InviteAfterParty:
		a.AfterParty = v
	}
	return a
}

// Clone 深拷贝，allergies 切片不与原记录共享
func (a Attendee) Clone() Attendee {
	a.Allergies = append([]string{}, a.Allergies...)
	if a.Invites != nil {
		a.Invites = append([]InviteType{}, a.Invites...)
	}
	return a
}

// Submission 发往提交端点的负载
type Submission struct {
	SubmissionID string      `json:"submissionId"`
	GuestID      string      `json:"guestId"`
	Name         string      `json:"name"`
	ContactInfo  ContactInfo `json:"contactInfo"`
	Attendees    []Attendee  `json:"attendees"`
	Message      string      `json:"message"`
	SubmittedAt  time.Time   `json:"submittedAt"`
}

// FormView 表单当前应展示的画面
type FormView string

const (
	ViewForm      FormView = "form"
	ViewCompleted FormView = "completed"
)
