package response

// Msg 所有非数据响应的统一形状
type Msg struct {
	Message string `json:"message"`
}

func Message(s string) Msg { return Msg{Message: s} }

// Error 未分类错误直接用错误文本
func Error(err error) Msg {
	if err == nil {
		return Msg{}
	}
	return Msg{Message: err.Error()}
}
