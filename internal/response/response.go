package response

import (
	"github.com/gin-gonic/gin"
)

// Response is the API envelope. Clients decide success by StatusCode, not by the
// HTTP status.
type Response struct {
	StatusCode ErrCode `json:"statusCode"`
	Message    string  `json:"message"`
	Result     any     `json:"result"`
}

// Success sends a successful envelope with the given HTTP status and result.
func Success(c *gin.Context, httpStatus int, result any) {
	c.JSON(httpStatus, Response{
		StatusCode: CodeSuccess,
		Message:    GetMessage(CodeSuccess),
		Result:     result,
	})
}

// Fail sends an error envelope with no result.
func Fail(c *gin.Context, httpStatus int, code ErrCode) {
	c.JSON(httpStatus, Response{
		StatusCode: code,
		Message:    GetMessage(code),
	})
}

// FailWithFields sends an error envelope whose result carries field-level details.
func FailWithFields(c *gin.Context, httpStatus int, code ErrCode, fields map[string]string) {
	c.JSON(httpStatus, Response{
		StatusCode: code,
		Message:    GetMessage(code),
		Result:     fields,
	})
}

// FailWithMessage sends an error envelope with a specific message.
func FailWithMessage(c *gin.Context, httpStatus int, code ErrCode, message string) {
	c.JSON(httpStatus, Response{
		StatusCode: code,
		Message:    message,
	})
}

// AbortFail aborts the middleware chain and sends an error envelope.
func AbortFail(c *gin.Context, httpStatus int, code ErrCode) {
	c.AbortWithStatusJSON(httpStatus, Response{
		StatusCode: code,
		Message:    GetMessage(code),
	})
}
