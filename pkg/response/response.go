package response

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"

	"WeddingRSVP/pkg/errors"
)

// ErrorResponse 统一的错误响应格式
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
}

// SuccessResponse 统一的成功响应格式
type SuccessResponse struct {
	Data interface{}            `json:"data"`
	Meta map[string]interface{} `json:"meta,omitempty"`
}

func errorToHTTPStatus(err error) int {
	def, ok := errors.As(err)
	if !ok {
		return http.StatusInternalServerError
	}

	// 根据错误码映射 HTTP 状态码
	switch def.Code {
	case "TOO_MANY_REQUESTS":
		return http.StatusTooManyRequests // 429
	case "INVALID_REQUEST", "INVITATION_ID_REQUIRED", "ATTENDEE_FIELD_INVALID",
		"ATTENDANCE_INVALID", "EVENT_NOT_INVITED", "POSTAL_CODE_INVALID":
		return http.StatusBadRequest // 400
	case "CSRF_INVALID":
		return http.StatusForbidden // 403
	case "FORM_NOT_FOUND", "ATTENDEE_NOT_FOUND":
		return http.StatusNotFound // 404
	case "FORM_BUSY", "FORM_COMPLETED", "NOT_SUBMITTED", "SUBMIT_IN_PROGRESS":
		return http.StatusConflict // 409
	case "VALIDATION_FAILED":
		return http.StatusUnprocessableEntity // 422
	case "SUBMISSION_FAILED":
		return http.StatusBadGateway // 502
	case "SUBMITTER_NOT_CONFIGURED":
		return http.StatusServiceUnavailable // 503
	default:
		return http.StatusInternalServerError // 500
	}
}

// Error 返回错误响应，FieldErrors 按原顺序展开到 details
func Error(ctx context.Context, c *app.RequestContext, err error) {
	var fe *errors.FieldErrors
	if stderrors.As(err, &fe) && len(fe.Fields) > 0 {
		ErrorWithDetails(ctx, c, err, fe.Fields)
		return
	}
	ErrorWithDetails(ctx, c, err, nil)
}

func ErrorWithDetails(ctx context.Context, c *app.RequestContext, err error, details interface{}) {
	statusCode := errorToHTTPStatus(err)

	var code, message string
	if def, ok := errors.As(err); ok {
		code = def.Code
		message = def.Message
	} else {
		// 未分类的错误不把内部信息返回给客户端
		code = "INTERNAL_ERROR"
		message = "Internal server error"
	}

	c.JSON(statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func Success(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
	})
}

func Created(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusCreated, SuccessResponse{
		Data: data,
	})
}

func SuccessWithMeta(ctx context.Context, c *app.RequestContext, data interface{}, meta map[string]interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
		Meta: meta,
	})
}

func BindError(ctx context.Context, c *app.RequestContext, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: ErrorDetail{
			Code:    errors.InvalidRequest.Code,
			Message: err.Error(),
		},
	})
}
