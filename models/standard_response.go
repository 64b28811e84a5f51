package models

// StandardResponse 统一响应结构
type StandardResponse struct {
	Data         interface{} `json:"data"`
	Error        string      `json:"error"`
	ErrorMessage string      `json:"error_message"`
}

// 错误码
const (
	CodeNoError         = "NO_ERROR"
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeOperationFailed = "OPERATION_FAILED"
)

// OK 构造成功响应
func OK(data interface{}) StandardResponse {
	return StandardResponse{
		Data:         data,
		Error:        CodeNoError,
		ErrorMessage: "Operation completed successfully",
	}
}

// Fail 构造失败响应
func Fail(code string, err error) StandardResponse {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return StandardResponse{Data: nil, Error: code, ErrorMessage: msg}
}

// AgentReply is the body of a successful agent call.
type AgentReply struct {
	Reply string `json:"reply"`
}

// AgentError is the body of a rejected agent call.
type AgentError struct {
	Error string `json:"error"`
}
