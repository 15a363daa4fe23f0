package rsvp

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"WeddingRSVP/internal/model"
	"WeddingRSVP/pkg/errors"
	"WeddingRSVP/pkg/postal"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// FieldError 字段级错误，显示在对应字段旁边
type FieldError = errors.FieldError

var eventLabels = map[model.InviteType]string{
	model.InviteCeremony:   "ceremony",
	model.InviteReception:  "reception",
	model.InviteAfterParty: "afterParty",
}

// EventField 场次对应的 JSON 字段名
func EventField(t model.InviteType) string {
	return eventLabels[t]
}

// Validate 每次提交都完整地重新校验；每个有问题的字段只产生一条错误。
// 格式检查只对非空值进行。
func (f *Form) Validate() []FieldError {
	var errs []FieldError
	add := func(field, msg string) {
		errs = append(errs, FieldError{Field: field, Message: msg})
	}

	c := f.Contact
	switch {
	case blank(c.PostalCode):
		add("contactInfo.postalCode", "郵便番号を入力してください")
	default:
		if _, ok := postal.ShouldResolve(c.PostalCode); !ok {
			add("contactInfo.postalCode", "郵便番号は7桁の数字で入力してください")
		}
	}
	if blank(c.Prefecture) {
		add("contactInfo.prefecture", "都道府県を入力してください")
	}
	if blank(c.Address) {
		add("contactInfo.address", "住所を入力してください")
	}
	if blank(c.Phone) {
		add("contactInfo.phone", "電話番号を入力してください")
	}
	switch {
	case blank(c.Email):
		add("contactInfo.email", "メールアドレスを入力してください")
	case !emailPattern.MatchString(strings.TrimSpace(c.Email)):
		add("contactInfo.email", "メールアドレスの形式が正しくありません")
	}

	for i, a := range f.Attendees {
		prefix := fmt.Sprintf("attendees[%d].", i)

		if blank(a.Name) {
			add(prefix+"name", "お名前を入力してください")
		}
		if blank(a.Furigana) {
			add(prefix+"furigana", "フリガナを入力してください")
		}
		switch {
		case blank(a.Birthday):
			add(prefix+"birthday", "生年月日を入力してください")
		case !validDate(a.Birthday):
			add(prefix+"birthday", "生年月日の形式が正しくありません")
		}

		for _, event := range f.EventsFor(i) {
			if a.AttendanceFor(event) == model.AttendanceUnset {
				add(prefix+EventField(event), fmt.Sprintf("%sの出欠を選択してください", event))
			}
		}
	}

	return errs
}

// ValidationError 把字段错误包装成 VALIDATION_FAILED，没有错误时返回 nil
func ValidationError(errs []FieldError) error {
	if len(errs) == 0 {
		return nil
	}
	return &errors.FieldErrors{Definition: errors.ValidationFailed, Fields: errs}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	return err == nil
}
