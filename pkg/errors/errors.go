package errors

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// 通用错误。
var (
	InvalidRequest  = Definition{Code: "INVALID_REQUEST", Message: "Invalid request"}
	TooManyRequests = Definition{Code: "TOO_MANY_REQUESTS", Message: "Too many requests"}
	CSRFInvalid     = Definition{Code: "CSRF_INVALID", Message: "CSRF token invalid"}
)

// 招待状（CMS）相关错误。
var (
	InvitationIDRequired = Definition{Code: "INVITATION_ID_REQUIRED", Message: "Invitation id required"}
)

// 表单会话相关错误。
var (
	FormNotFound       = Definition{Code: "FORM_NOT_FOUND", Message: "Form session not found or expired"}
	FormBusy           = Definition{Code: "FORM_BUSY", Message: "Form is being updated, retry shortly"}
	FormCompleted      = Definition{Code: "FORM_COMPLETED", Message: "Form already submitted"}
	SubmitInProgress   = Definition{Code: "SUBMIT_IN_PROGRESS", Message: "送信処理中です"}
	AttendeeNotFound   = Definition{Code: "ATTENDEE_NOT_FOUND", Message: "Attendee not found"}
	AttendeeFieldBad   = Definition{Code: "ATTENDEE_FIELD_INVALID", Message: "Attendee field invalid"}
	AttendanceInvalid  = Definition{Code: "ATTENDANCE_INVALID", Message: "Attendance value invalid"}
	EventNotInvited    = Definition{Code: "EVENT_NOT_INVITED", Message: "Attendee is not invited to this event"}
	ValidationFailed   = Definition{Code: "VALIDATION_FAILED", Message: "入力内容に誤りがあります"}
	NotSubmittedYet    = Definition{Code: "NOT_SUBMITTED", Message: "Form has not been submitted"}
	SubmissionFailed   = Definition{Code: "SUBMISSION_FAILED", Message: "送信に失敗しました。時間をおいて再度お試しください"}
	SubmitterNotConfig = Definition{Code: "SUBMITTER_NOT_CONFIGURED", Message: "Submission endpoint not configured"}
)

// 住所検索相关错误，作为字段级提示返回，不阻断手动输入。
var (
	PostalCodeInvalid   = Definition{Code: "POSTAL_CODE_INVALID", Message: "郵便番号は7桁の数字で入力してください"}
	AddressNotFound     = Definition{Code: "ADDRESS_NOT_FOUND", Message: "該当する住所が見つかりませんでした"}
	AddressLookupFailed = Definition{Code: "ADDRESS_LOOKUP_FAILED", Message: "住所の取得に失敗しました"}
	AddressLookupStale  = Definition{Code: "ADDRESS_LOOKUP_STALE", Message: "Address lookup superseded by a newer request"}
)

// As 从错误链中取出 Definition
func As(err error) (Definition, bool) {
	for err != nil {
		if def, ok := err.(Definition); ok {
			return def, true
		}
		if def, ok := err.(*Definition); ok && def != nil {
			return *def, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return Definition{}, false
		}
		err = u.Unwrap()
	}
	return Definition{}, false
}

// FieldError 单个字段的错误
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors 携带字段级错误信息，用于 VALIDATION_FAILED 的 details。
// Fields 保持表单上的显示顺序
type FieldErrors struct {
	Definition
	Fields []FieldError
}

func (e *FieldErrors) Unwrap() error { return e.Definition }

// Is 让 errors.Is(err, ValidationFailed) 成立
func (e *FieldErrors) Is(target error) bool {
	def, ok := target.(Definition)
	return ok && def.Code == e.Code
}
