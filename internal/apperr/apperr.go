// Package apperr 业务错误分类，HTTP 层统一映射状态码
package apperr

import "errors"

type Kind int

const (
	KindInternal Kind = iota
	KindInvalidInput
	KindNotFound
	KindConflict
	KindHasDependents
	KindNoData
)

var kindNames = map[Kind]string{
	KindInternal:      "Internal",
	KindInvalidInput:  "InvalidInput",
	KindNotFound:      "NotFound",
	KindConflict:      "Conflict",
	KindHasDependents: "HasDependents",
	KindNoData:        "NoData",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Unknown"
}

// Error 带分类的错误（Msg 直接返回给客户端）
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

func InvalidInput(msg string) error  { return &Error{Kind: KindInvalidInput, Msg: msg} }
func NotFound(msg string) error      { return &Error{Kind: KindNotFound, Msg: msg} }
func Conflict(msg string) error      { return &Error{Kind: KindConflict, Msg: msg} }
func HasDependents(msg string) error { return &Error{Kind: KindHasDependents, Msg: msg} }
func NoData(msg string) error        { return &Error{Kind: KindNoData, Msg: msg} }

// Wrap 保留底层错误，便于 errors.Is 判断
func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf 非 *Error 一律视为 KindInternal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool { return err != nil && KindOf(err) == kind }
