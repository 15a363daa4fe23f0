package rsvp

import (
	stderrors "errors"
	"reflect"
	"strconv"
	"testing"
	"time"

	"WeddingRSVP/internal/allergy"
	"WeddingRSVP/internal/model"
	"WeddingRSVP/pkg/errors"
)

type counterIDs struct{ n int }

func (c *counterIDs) NextID() string {
	c.n++
	return "a" + strconv.Itoa(c.n)
}

// repeatIDs 先返回一串固定值，用来制造重复 ID
type repeatIDs struct {
	seq []string
	i   int
}

func (r *repeatIDs) NextID() string {
	id := r.seq[r.i%len(r.seq)]
	r.i++
	return id
}

var testNow = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

func guestWithFamily() *model.DearBlock {
	return &model.DearBlock{
		ID:       "g1",
		Name:     "山田太郎",
		Kana:     "ヤマダタロウ",
		Invite:   []model.InviteType{model.InviteReception, model.InviteCeremony},
		Autofill: &model.Autofill{Name: true, Kana: true},
		Family: []model.DearBlock{
			{ID: "g1-1", Name: "山田花子", Kana: "ヤマダハナコ", Invite: []model.InviteType{model.InviteReception, model.InviteAfterParty}},
			{ID: "g1-2", Name: "山田一郎", Kana: "ヤマダイチロウ"},
		},
	}
}

func TestNewForm_Anonymous(t *testing.T) {
	f := NewForm("f1", nil, &counterIDs{}, testNow)

	if f.View != model.ViewForm {
		t.Errorf("View: got %q", f.View)
	}
	if !reflect.DeepEqual(f.Invites, model.AllInviteTypes) {
		t.Errorf("Invites: got %v", f.Invites)
	}
	if len(f.Attendees) != 1 {
		t.Fatalf("Attendees: got %d, want 1", len(f.Attendees))
	}
	a := f.Attendees[0]
	if a.ID != "a1" || a.Name != "" || a.HotelUse != model.UseNone || len(a.Allergies) != 0 {
		t.Errorf("primary attendee not defaulted: %+v", a)
	}
}

func TestNewForm_GuestWithFamily(t *testing.T) {
	f := NewForm("f1", guestWithFamily(), &counterIDs{}, testNow)

	if f.GuestID != "g1" || f.GuestName != "山田太郎" {
		t.Errorf("guest fields: %q %q", f.GuestID, f.GuestName)
	}
	if want := []model.InviteType{model.InviteCeremony, model.InviteReception}; !reflect.DeepEqual(f.Invites, want) {
		t.Errorf("Invites not canonical: got %v", f.Invites)
	}
	if len(f.Attendees) != 3 {
		t.Fatalf("Attendees: got %d, want 3", len(f.Attendees))
	}
	if f.Attendees[0].Name != "山田太郎" || f.Attendees[0].Furigana != "ヤマダタロウ" {
		t.Errorf("primary autofill: %+v", f.Attendees[0])
	}
	if f.Attendees[1].Name != "山田花子" || f.Attendees[2].Furigana != "ヤマダイチロウ" {
		t.Errorf("companion autofill: %+v %+v", f.Attendees[1], f.Attendees[2])
	}
}

func TestNewForm_NoAutofill(t *testing.T) {
	g := guestWithFamily()
	g.Autofill = nil
	f := NewForm("f1", g, &counterIDs{}, testNow)

	for i, a := range f.Attendees {
		if a.Name != "" || a.Furigana != "" {
			t.Errorf("attendee %d prefilled without autofill: %+v", i, a)
		}
	}
}

func TestEventsFor(t *testing.T) {
	f := NewForm("f1", guestWithFamily(), &counterIDs{}, testNow)

	tests := []struct {
		index int
		want  []model.InviteType
	}{
		{0, []model.InviteType{model.InviteCeremony, model.InviteReception}},
		// 同行者自己的 {披露宴, 二次会} 与本人的交集
		{1, []model.InviteType{model.InviteReception}},
		// 同行者没有自己的招待区分时沿用本人的
		{2, []model.InviteType{model.InviteCeremony, model.InviteReception}},
		{3, nil},
		{-1, nil},
	}
	for _, tt := range tests {
		if got := f.EventsFor(tt.index); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("EventsFor(%d) = %v, want %v", tt.index, got, tt.want)
		}
	}
}

func TestAddAttendee_DoesNotCopyData(t *testing.T) {
	ids := &counterIDs{}
	f := NewForm("f1", guestWithFamily(), ids, testNow)
	before := len(f.Attendees)

	added := f.AddAttendee(ids)

	if len(f.Attendees) != before+1 {
		t.Fatalf("Attendees: got %d, want %d", len(f.Attendees), before+1)
	}
	want := model.NewAttendee(added.ID)
	if !reflect.DeepEqual(added, want) {
		t.Errorf("added attendee carries data: %+v", added)
	}
	if !reflect.DeepEqual(f.Attendees[len(f.Attendees)-1], want) {
		t.Errorf("appended attendee differs: %+v", f.Attendees[len(f.Attendees)-1])
	}
}

func TestAddAttendee_UniqueIDs(t *testing.T) {
	f := NewForm("f1", nil, &repeatIDs{seq: []string{"x"}}, testNow)

	added := f.AddAttendee(&repeatIDs{seq: []string{"x", "x", "y"}})
	if added.ID != "y" {
		t.Errorf("duplicate id not skipped: got %q", added.ID)
	}
}

func TestRemoveAttendee(t *testing.T) {
	ids := &counterIDs{}
	f := NewForm("f1", nil, ids, testNow)
	primary := f.Attendees[0].ID

	removed, err := f.RemoveAttendee(primary)
	if err != nil || removed {
		t.Fatalf("removing the only attendee: removed=%v err=%v", removed, err)
	}
	if len(f.Attendees) != 1 {
		t.Fatalf("list changed: %d", len(f.Attendees))
	}

	second := f.AddAttendee(ids)
	third := f.AddAttendee(ids)

	removed, err = f.RemoveAttendee(primary)
	if err != nil || removed {
		t.Errorf("primary must not be removable: removed=%v err=%v", removed, err)
	}

	removed, err = f.RemoveAttendee(second.ID)
	if err != nil || !removed {
		t.Fatalf("remove companion: removed=%v err=%v", removed, err)
	}
	if got := []string{f.Attendees[0].ID, f.Attendees[1].ID}; !reflect.DeepEqual(got, []string{primary, third.ID}) {
		t.Errorf("order after removal: %v", got)
	}

	if _, err := f.RemoveAttendee("missing"); !stderrors.Is(err, errors.AttendeeNotFound) {
		t.Errorf("unknown id: got %v", err)
	}
}

func TestUpdateAttendee_CopyOnWrite(t *testing.T) {
	ids := &counterIDs{}
	f := NewForm("f1", nil, ids, testNow)
	second := f.AddAttendee(ids)

	snapshot := f.Attendees
	name := "佐藤"
	hotel := model.UseYes

	updated, err := f.UpdateAttendee(second.ID, AttendeePatch{Name: &name, HotelUse: &hotel})
	if err != nil {
		t.Fatalf("UpdateAttendee: %v", err)
	}
	if updated.Name != "佐藤" || updated.HotelUse != model.UseYes || updated.TaxiUse != model.UseNone {
		t.Errorf("patch not applied: %+v", updated)
	}
	if snapshot[1].Name != "" {
		t.Errorf("previous list mutated: %+v", snapshot[1])
	}
	if !reflect.DeepEqual(snapshot[0], f.Attendees[0]) {
		t.Errorf("untouched element changed")
	}
}

func TestUpdateAttendee_RejectsBadUseOption(t *testing.T) {
	f := NewForm("f1", nil, &counterIDs{}, testNow)
	bad := model.UseOption("maybe")

	_, err := f.UpdateAttendee(f.Attendees[0].ID, AttendeePatch{TaxiUse: &bad})
	if !stderrors.Is(err, errors.AttendeeFieldBad) {
		t.Errorf("got %v, want AttendeeFieldBad", err)
	}
	if f.Attendees[0].TaxiUse != model.UseNone {
		t.Errorf("attendee changed on error")
	}
}

func TestSetAttendance(t *testing.T) {
	f := NewForm("f1", guestWithFamily(), &counterIDs{}, testNow)
	primary := f.Attendees[0].ID
	companion := f.Attendees[1].ID

	a, err := f.SetAttendance(primary, model.InviteCeremony, model.AttendanceAttending)
	if err != nil || a.Ceremony != model.AttendanceAttending {
		t.Fatalf("select attending: %+v %v", a, err)
	}

	a, err = f.SetAttendance(primary, model.InviteCeremony, model.AttendanceDeclined)
	if err != nil || a.Ceremony != model.AttendanceDeclined {
		t.Fatalf("switch to declined: %+v %v", a, err)
	}

	before := f.Attendees
	a, err = f.SetAttendance(primary, model.InviteCeremony, model.AttendanceDeclined)
	if err != nil || a.Ceremony != model.AttendanceDeclined {
		t.Fatalf("reselect: %+v %v", a, err)
	}
	if &before[0] != &f.Attendees[0] {
		t.Errorf("reselect replaced the attendee list")
	}

	if _, err := f.SetAttendance(primary, model.InviteCeremony, model.AttendanceUnset); !stderrors.Is(err, errors.AttendanceInvalid) {
		t.Errorf("unset after select: got %v", err)
	}
	if f.Attendees[0].Ceremony != model.AttendanceDeclined {
		t.Errorf("state changed on rejected transition")
	}

	if _, err := f.SetAttendance(primary, model.InviteAfterParty, model.AttendanceAttending); !stderrors.Is(err, errors.EventNotInvited) {
		t.Errorf("uninvited event: got %v", err)
	}
	if _, err := f.SetAttendance(companion, model.InviteCeremony, model.AttendanceAttending); !stderrors.Is(err, errors.EventNotInvited) {
		t.Errorf("companion outside intersection: got %v", err)
	}
	if _, err := f.SetAttendance(primary, model.InviteType("前撮り"), model.AttendanceAttending); !stderrors.Is(err, errors.AttendanceInvalid) {
		t.Errorf("unknown event: got %v", err)
	}
	if _, err := f.SetAttendance(primary, model.InviteReception, model.Attendance("maybe")); !stderrors.Is(err, errors.AttendanceInvalid) {
		t.Errorf("unknown value: got %v", err)
	}
	if _, err := f.SetAttendance("nobody", model.InviteReception, model.AttendanceAttending); !stderrors.Is(err, errors.AttendeeNotFound) {
		t.Errorf("unknown attendee: got %v", err)
	}
}

func TestEditAllergies(t *testing.T) {
	f := NewForm("f1", nil, &counterIDs{}, testNow)
	id := f.Attendees[0].ID

	editor, err := f.EditAllergies(id, func(e *allergy.Editor) {
		e.AddTag("卵")
		e.AddTag(" 卵 ")
		e.AddTag("えび")
	})
	if err != nil {
		t.Fatalf("EditAllergies: %v", err)
	}
	if want := []string{"卵", "えび"}; !reflect.DeepEqual(f.Attendees[0].Allergies, want) || !reflect.DeepEqual(editor.Tags, want) {
		t.Errorf("Allergies: got %v", f.Attendees[0].Allergies)
	}

	if _, err := f.EditAllergies(id, func(e *allergy.Editor) { e.RemoveTag("卵") }); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if want := []string{"えび"}; !reflect.DeepEqual(f.Attendees[0].Allergies, want) {
		t.Errorf("after remove: got %v", f.Attendees[0].Allergies)
	}

	if _, err := f.EditAllergies("nobody", func(*allergy.Editor) {}); !stderrors.Is(err, errors.AttendeeNotFound) {
		t.Errorf("unknown attendee: got %v", err)
	}
}

func TestBuildSubmission(t *testing.T) {
	f := NewForm("f1", guestWithFamily(), &counterIDs{}, testNow)
	f.SetMessage("おめでとう")
	f.UpdateContact(model.ContactInfo{PostalCode: "1000001", Email: "a@example.com"})

	s := f.BuildSubmission("s1", testNow)
	if s.SubmissionID != "s1" || s.GuestID != "g1" || s.Name != "山田太郎" || s.Message != "おめでとう" {
		t.Errorf("submission header: %+v", s)
	}
	if len(s.Attendees) != 3 || s.ContactInfo.Email != "a@example.com" {
		t.Errorf("submission body: %+v", s)
	}

	for i, a := range s.Attendees {
		if a.Invites != nil {
			t.Errorf("attendee %d carries invites into submission: %v", i, a.Invites)
		}
	}
	if len(f.Attendees[1].Invites) == 0 {
		t.Errorf("form lost companion invites")
	}

	s.Attendees[0].Allergies = append(s.Attendees[0].Allergies, "卵")
	if len(f.Attendees[0].Allergies) != 0 {
		t.Errorf("submission shares allergy slice with form")
	}

	anon := NewForm("f2", nil, &counterIDs{}, testNow)
	anon.Attendees[0].Name = "匿名"
	if got := anon.BuildSubmission("s2", testNow).Name; got != "匿名" {
		t.Errorf("anonymous name: got %q", got)
	}
}
