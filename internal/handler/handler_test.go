package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/route"
	ri "github.com/redis/go-redis/v9"

	cfgpkg "WeddingRSVP/config"
	"WeddingRSVP/internal/cache"
	"WeddingRSVP/internal/model"
	"WeddingRSVP/internal/rsvp"
	"WeddingRSVP/internal/service"
	"WeddingRSVP/pkg/errors"
	"WeddingRSVP/pkg/postal"
)

type stubGuests map[string]*model.Guest

func (s stubGuests) GetGuestByInvitationID(_ context.Context, id, _ string) *model.Guest {
	return s[id]
}

type stubResolver struct{ err error }

func (r stubResolver) Resolve(context.Context, string) (*postal.Address, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &postal.Address{Prefecture: "東京都", Address: "東京都千代田区千代田"}, nil
}

type stubSubmitter struct{ got []model.Submission }

func (s *stubSubmitter) Transport() string { return "stub" }

func (s *stubSubmitter) Submit(_ context.Context, sub model.Submission) error {
	s.got = append(s.got, sub)
	return nil
}

type seqIDs struct{ n int }

func (s *seqIDs) NextID() string {
	s.n++
	return "a" + string(rune('0'+s.n))
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Meta  map[string]any  `json:"meta"`
	Error struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

type formBody struct {
	ID        string `json:"id"`
	View      string `json:"view"`
	Invites   []string
	Attendees []struct {
		ID        string   `json:"id"`
		Events    []string `json:"events"`
		Removable bool     `json:"removable"`
	} `json:"attendees"`
}

type testEnv struct {
	engine    *route.Engine
	submitter *stubSubmitter
	redis     *miniredis.Miniredis
}

func newTestEnv(t *testing.T, resolverErr error) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := ri.NewClient(&ri.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	guests := stubGuests{
		"g1": {ID: "g1", Name: "テスト太郎", Invite: []model.InviteType{model.InviteReception}},
	}
	sub := &stubSubmitter{}

	service.SetInvitation(service.NewInvitationService(guests))
	service.SetRSVP(service.NewRSVPService(service.RSVPDeps{
		Forms:     cache.NewFormStore(rc, time.Hour),
		Locker:    cache.NewFormLocker(rc, 5*time.Second),
		Guard:     rsvp.NewGuard(cache.NewRedisKV(rc)),
		Guests:    guests,
		Postal:    stubResolver{err: resolverErr},
		Submitter: sub,
		IDs:       &seqIDs{},
		Now:       time.Now,
	}))

	engine := route.NewEngine(config.NewOptions([]config.Option{}))
	engine.GET("/v1/invitations/:invitation_id", GetInvitation)
	engine.GET("/v1/allergies/suggestions", GetAllergySuggestions)
	engine.GET("/v1/countdown", GetCountdown)
	engine.POST("/v1/rsvp/forms", CreateForm)
	engine.GET("/v1/rsvp/forms/:form_id", GetForm)
	engine.PUT("/v1/rsvp/forms/:form_id/contact", UpdateContact)
	engine.PUT("/v1/rsvp/forms/:form_id/message", UpdateMessage)
	engine.POST("/v1/rsvp/forms/:form_id/postal-lookup", PostalLookup)
	engine.POST("/v1/rsvp/forms/:form_id/submit", SubmitForm)
	engine.POST("/v1/rsvp/forms/:form_id/resubmit", ResubmitForm)
	engine.POST("/v1/rsvp/forms/:form_id/attendees", AddAttendee)
	engine.PATCH("/v1/rsvp/forms/:form_id/attendees/:attendee_id", UpdateAttendee)
	engine.DELETE("/v1/rsvp/forms/:form_id/attendees/:attendee_id", RemoveAttendee)
	engine.POST("/v1/rsvp/forms/:form_id/attendees/:attendee_id/allergies", EditAllergies)
	engine.DELETE("/v1/rsvp/forms/:form_id/attendees/:attendee_id/allergies", RemoveAllergy)

	return &testEnv{engine: engine, submitter: sub, redis: mr}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (int, envelope) {
	t.Helper()
	var b *ut.Body
	if body != "" {
		b = &ut.Body{Body: bytes.NewBufferString(body), Len: len(body)}
	}
	w := ut.PerformRequest(e.engine, method, path, b, ut.Header{Key: "Content-Type", Value: "application/json"})
	resp := w.Result()

	var env envelope
	if len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), &env); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, resp.Body(), err)
		}
	}
	return resp.StatusCode(), env
}

func decodeForm(t *testing.T, raw json.RawMessage) formBody {
	t.Helper()
	var f formBody
	if err := json.Unmarshal(raw, &f); err != nil {
		t.Fatalf("decode form: %v", err)
	}
	return f
}

func TestCreateAndGetForm(t *testing.T) {
	e := newTestEnv(t, nil)

	status, env := e.do(t, http.MethodPost, "/v1/rsvp/forms", `{"invitationId":"g1"}`)
	if status != http.StatusCreated {
		t.Fatalf("create: %d %+v", status, env.Error)
	}
	f := decodeForm(t, env.Data)
	if f.View != "form" || len(f.Attendees) != 1 || f.Attendees[0].Removable {
		t.Errorf("created form: %+v", f)
	}

	status, env = e.do(t, http.MethodGet, "/v1/rsvp/forms/"+f.ID, "")
	if status != http.StatusOK || decodeForm(t, env.Data).ID != f.ID {
		t.Errorf("get: %d %s", status, env.Data)
	}

	status, env = e.do(t, http.MethodGet, "/v1/rsvp/forms/nope", "")
	if status != http.StatusNotFound || env.Error.Code != errors.FormNotFound.Code {
		t.Errorf("unknown form: %d %+v", status, env.Error)
	}

	// 空 body 创建匿名表单
	status, env = e.do(t, http.MethodPost, "/v1/rsvp/forms", "")
	if status != http.StatusCreated || len(decodeForm(t, env.Data).Attendees[0].Events) != 3 {
		t.Errorf("anonymous create: %d %s", status, env.Data)
	}
}

func TestSubmit_ValidationErrorsInDetails(t *testing.T) {
	e := newTestEnv(t, nil)
	_, env := e.do(t, http.MethodPost, "/v1/rsvp/forms", "")
	f := decodeForm(t, env.Data)

	status, env := e.do(t, http.MethodPost, "/v1/rsvp/forms/"+f.ID+"/submit", "")
	if status != http.StatusUnprocessableEntity || env.Error.Code != errors.ValidationFailed.Code {
		t.Fatalf("submit: %d %+v", status, env.Error)
	}
	var details []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(env.Error.Details, &details); err != nil {
		t.Fatalf("details: %v (%s)", err, env.Error.Details)
	}
	index := map[string]int{}
	for i, d := range details {
		index[d.Field] = i
	}
	email, okEmail := index["contactInfo.email"]
	name, okName := index["attendees[0].name"]
	if !okEmail || !okName {
		t.Fatalf("details: %s", env.Error.Details)
	}
	if details[0].Field != "contactInfo.postalCode" || email > name {
		t.Errorf("details out of order: %s", env.Error.Details)
	}
	if len(e.submitter.got) != 0 {
		t.Errorf("submitter called")
	}
}

func TestSubmitAndResubmitFlow(t *testing.T) {
	e := newTestEnv(t, nil)
	_, env := e.do(t, http.MethodPost, "/v1/rsvp/forms", `{"guestId":"g1"}`)
	f := decodeForm(t, env.Data)
	attendeeID := f.Attendees[0].ID

	status, _ := e.do(t, http.MethodPut, "/v1/rsvp/forms/"+f.ID+"/contact",
		`{"postalCode":"1000001","prefecture":"東京都","address":"千代田1-1","phone":"0900000000","email":"a@example.com"}`)
	if status != http.StatusOK {
		t.Fatalf("contact: %d", status)
	}
	status, _ = e.do(t, http.MethodPatch, "/v1/rsvp/forms/"+f.ID+"/attendees/"+attendeeID,
		`{"name":"テスト太郎","furigana":"テストタロウ","birthday":"1990-01-02"}`)
	if status != http.StatusOK {
		t.Fatalf("patch attendee: %d", status)
	}
	if _, err := service.RSVP().SetAttendance(context.Background(), f.ID, attendeeID, model.InviteReception, model.AttendanceAttending); err != nil {
		t.Fatalf("SetAttendance: %v", err)
	}

	status, env = e.do(t, http.MethodPost, "/v1/rsvp/forms/"+f.ID+"/submit", "")
	if status != http.StatusOK {
		t.Fatalf("submit: %d %+v", status, env.Error)
	}
	var data struct {
		SubmissionID string   `json:"submissionId"`
		Form         formBody `json:"form"`
	}
	_ = json.Unmarshal(env.Data, &data)
	if data.SubmissionID == "" || data.Form.View != "completed" {
		t.Errorf("submit data: %+v", data)
	}
	if !e.redis.Exists("wedding:rsvp_submitted_g1") {
		t.Errorf("guard key missing")
	}

	status, env = e.do(t, http.MethodPut, "/v1/rsvp/forms/"+f.ID+"/message", `{"message":"x"}`)
	if status != http.StatusConflict || env.Error.Code != errors.FormCompleted.Code {
		t.Errorf("edit after submit: %d %+v", status, env.Error)
	}

	status, env = e.do(t, http.MethodPost, "/v1/rsvp/forms/"+f.ID+"/resubmit", "")
	if status != http.StatusOK || decodeForm(t, env.Data).View != "form" {
		t.Errorf("resubmit: %d %s", status, env.Data)
	}
	if e.redis.Exists("wedding:rsvp_submitted_g1") {
		t.Errorf("guard key not cleared")
	}
}

func TestAttendeeEndpoints(t *testing.T) {
	e := newTestEnv(t, nil)
	_, env := e.do(t, http.MethodPost, "/v1/rsvp/forms", "")
	f := decodeForm(t, env.Data)

	status, env := e.do(t, http.MethodPost, "/v1/rsvp/forms/"+f.ID+"/attendees", "")
	if status != http.StatusCreated {
		t.Fatalf("add: %d", status)
	}
	f = decodeForm(t, env.Data)
	if len(f.Attendees) != 2 || !f.Attendees[1].Removable {
		t.Fatalf("after add: %+v", f.Attendees)
	}

	status, env = e.do(t, http.MethodPatch, "/v1/rsvp/forms/"+f.ID+"/attendees/"+f.Attendees[1].ID, `{"hotelUse":"maybe"}`)
	if status != http.StatusBadRequest || env.Error.Code != errors.AttendeeFieldBad.Code {
		t.Errorf("bad option: %d %+v", status, env.Error)
	}

	status, env = e.do(t, http.MethodPost, "/v1/rsvp/forms/"+f.ID+"/attendees/"+f.Attendees[1].ID+"/allergies", `{"key":"Enter","buffer":"えび"}`)
	if status != http.StatusOK {
		t.Fatalf("allergy: %d %+v", status, env.Error)
	}
	var allergies struct {
		Tags    []string `json:"tags"`
		Changed bool     `json:"changed"`
	}
	_ = json.Unmarshal(env.Data, &allergies)
	if !allergies.Changed || len(allergies.Tags) != 1 || allergies.Tags[0] != "えび" {
		t.Errorf("allergies: %+v", allergies)
	}

	var removed struct {
		Removed bool `json:"removed"`
	}
	_, env = e.do(t, http.MethodDelete, "/v1/rsvp/forms/"+f.ID+"/attendees/"+f.Attendees[0].ID, "")
	_ = json.Unmarshal(env.Data, &removed)
	if removed.Removed {
		t.Errorf("primary attendee removed")
	}
	_, env = e.do(t, http.MethodDelete, "/v1/rsvp/forms/"+f.ID+"/attendees/"+f.Attendees[1].ID, "")
	_ = json.Unmarshal(env.Data, &removed)
	if !removed.Removed {
		t.Errorf("companion not removed")
	}
}

func TestRemoveAllergy_FreeTypedTags(t *testing.T) {
	e := newTestEnv(t, nil)
	_, env := e.do(t, http.MethodPost, "/v1/rsvp/forms", "")
	f := decodeForm(t, env.Data)
	base := "/v1/rsvp/forms/" + f.ID + "/attendees/" + f.Attendees[0].ID + "/allergies"

	type allergyBody struct {
		Tags    []string `json:"tags"`
		Changed bool     `json:"changed"`
	}

	tags := []string{"えび", "Raw fish", "えび/かに", "50%", "a&b?c"}
	for _, tag := range tags {
		body, _ := json.Marshal(map[string]string{"tag": tag})
		if status, env := e.do(t, http.MethodPost, base, string(body)); status != http.StatusOK {
			t.Fatalf("add %q: %d %+v", tag, status, env.Error)
		}
	}

	for i, tag := range tags {
		status, env := e.do(t, http.MethodDelete, base+"?tag="+url.QueryEscape(tag), "")
		if status != http.StatusOK {
			t.Fatalf("remove %q: %d %+v", tag, status, env.Error)
		}
		var data allergyBody
		_ = json.Unmarshal(env.Data, &data)
		if !data.Changed || len(data.Tags) != len(tags)-i-1 {
			t.Errorf("remove %q: %+v", tag, data)
		}
	}

	status, env := e.do(t, http.MethodDelete, base, "")
	if status != http.StatusBadRequest || env.Error.Code != errors.InvalidRequest.Code {
		t.Errorf("missing tag: %d %+v", status, env.Error)
	}
}

func TestPostalLookupReturnsStatusInData(t *testing.T) {
	e := newTestEnv(t, errors.AddressNotFound)
	_, env := e.do(t, http.MethodPost, "/v1/rsvp/forms", "")
	f := decodeForm(t, env.Data)

	status, env := e.do(t, http.MethodPost, "/v1/rsvp/forms/"+f.ID+"/postal-lookup", `{"postalCode":"9999999"}`)
	if status != http.StatusOK {
		t.Fatalf("lookup: %d %+v", status, env.Error)
	}
	var data struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(env.Data, &data)
	if data.Status != "not_found" || data.Message != errors.AddressNotFound.Message {
		t.Errorf("lookup data: %+v", data)
	}
}

func TestGetInvitation(t *testing.T) {
	e := newTestEnv(t, nil)

	_, env := e.do(t, http.MethodGet, "/v1/invitations/g1", "")
	var data struct {
		Guest     *struct{ Dear string } `json:"guest"`
		Events    []string               `json:"events"`
		Anonymous bool                   `json:"anonymous"`
	}
	_ = json.Unmarshal(env.Data, &data)
	if data.Anonymous || data.Guest == nil || data.Guest.Dear != "テスト太郎" || len(data.Events) != 1 {
		t.Errorf("guest invitation: %s", env.Data)
	}

	_, env = e.do(t, http.MethodGet, "/v1/invitations/unknown", "")
	data.Guest = nil
	_ = json.Unmarshal(env.Data, &data)
	if !data.Anonymous || len(data.Events) != 3 {
		t.Errorf("unknown invitation: %s", env.Data)
	}
}

func TestAllergySuggestions(t *testing.T) {
	e := newTestEnv(t, nil)

	_, env := e.do(t, http.MethodGet, "/v1/allergies/suggestions?exclude=%E3%81%88%E3%81%B3,%20", "")
	var data struct {
		Categories []struct {
			Items []string `json:"items"`
		} `json:"categories"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(data.Categories) == 0 {
		t.Fatalf("no categories")
	}
	for _, c := range data.Categories {
		for _, item := range c.Items {
			if item == "えび" {
				t.Errorf("excluded tag suggested")
			}
		}
	}
}

func TestCountdown(t *testing.T) {
	e := newTestEnv(t, nil)

	prevDate, prevNow := cfgpkg.Cfg.WeddingDate, now
	t.Cleanup(func() { cfgpkg.Cfg.WeddingDate, now = prevDate, prevNow })
	cfgpkg.Cfg.WeddingDate = "2026-11-22T11:00:00+09:00"
	now = func() time.Time { return time.Date(2026, 11, 21, 10, 0, 0, 0, time.FixedZone("JST", 9*3600)) }

	_, env := e.do(t, http.MethodGet, "/v1/countdown", "")
	var r struct {
		Days, Hours, Minutes, Seconds int
		Passed                        bool
	}
	_ = json.Unmarshal(env.Data, &r)
	if r.Days != 1 || r.Hours != 1 || r.Minutes != 0 || r.Passed {
		t.Errorf("countdown: %+v", r)
	}
	if env.Meta["target"] != "2026-11-22T11:00:00+09:00" {
		t.Errorf("meta: %v", env.Meta)
	}
}
