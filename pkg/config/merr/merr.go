package merr

import (
	"fmt"

	"github.com/pkg/errors"
)

// terminateError は利用者による中断
type terminateError struct {
	message string
}

func (e *terminateError) Error() string {
	return e.message
}

func (e *terminateError) Is(target error) bool {
	_, ok := target.(*terminateError)
	return ok
}

// TerminateError は中断判定用の値
var TerminateError error = &terminateError{message: "terminate"}

func NewTerminateError(message string) error {
	return errors.WithStack(&terminateError{message: message})
}

func IsTerminateError(err error) bool {
	return err != nil && errors.Is(err, TerminateError)
}

// ConfigError はモデル定義の不備による継続不可能なエラー
type ConfigError struct {
	BoneName string
	Message  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.BoneName, e.Message)
}

func NewConfigError(boneName, message string) error {
	return errors.WithStack(&ConfigError{BoneName: boneName, Message: message})
}

func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}

// nameNotFoundError は名前で引けなかった
type nameNotFoundError struct {
	name string
}

func (e *nameNotFoundError) Error() string {
	return fmt.Sprintf("name not found: %s", e.name)
}

func (e *nameNotFoundError) Is(target error) bool {
	_, ok := target.(*nameNotFoundError)
	return ok
}

var NameNotFoundError error = &nameNotFoundError{}

func NewNameNotFoundError(name string) error {
	return &nameNotFoundError{name: name}
}

func IsNameNotFoundError(err error) bool {
	return err != nil && errors.Is(err, NameNotFoundError)
}

type indexOutOfRangeError struct {
	index int
}

func (e *indexOutOfRangeError) Error() string {
	return fmt.Sprintf("index out of range: %d", e.index)
}

func (e *indexOutOfRangeError) Is(target error) bool {
	_, ok := target.(*indexOutOfRangeError)
	return ok
}

var IndexOutOfRangeError error = &indexOutOfRangeError{}

func NewIndexOutOfRangeError(index int) error {
	return &indexOutOfRangeError{index: index}
}

// ParseError はファイル読み込み時の形式不正
type ParseError struct {
	Path    string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func NewParseError(path string, cause error) error {
	return errors.Wrap(&ParseError{Path: path, Message: cause.Error()}, "parse failed")
}

func IsParseError(err error) bool {
	var parseErr *ParseError
	return errors.As(err, &parseErr)
}
