// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package merr

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Code 返回给定错误对应的错误码，nil 返回 0。
func Code(err error) int32 {
	if err == nil {
		return 0
	}

	cause := errors.Cause(err)
	if specificErr, ok := cause.(serializerError); ok {
		return specificErr.code()
	}
	// 兼容通过 Unwrap 链包装的自定义错误类型（例如 UnsupportedStrategyError）。
	var target serializerError
	if errors.As(err, &target) {
		return target.code()
	}
	return errUnexpected.code()
}

func IsRetryableErr(err error) bool {
	var target serializerError
	if errors.As(err, &target) {
		return target.retriable
	}
	return false
}

// IsInputError 判断错误是否由调用方输入（配置、目标对象等）引起。
func IsInputError(err error) bool {
	var target serializerError
	if errors.As(err, &target) {
		return target.errType == InputError
	}
	return false
}

// Configuration related
func WrapErrConfigInvalid[T any](key string, actual T, msg ...string) error {
	err := wrapFields(ErrConfigInvalid,
		value("key", key),
		value("actual", actual),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrConfigLoad(path string, cause error) error {
	return wrapFieldsWithDesc(ErrConfigLoad, cause.Error(), value("path", path))
}

// Format related
func WrapErrUnsupportedFormat(format string, direction string, msg ...string) error {
	err := wrapFields(ErrUnsupportedFormat,
		value("format", format),
		value("direction", direction),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrEncodeFailed(format string, cause error) error {
	return wrapFieldsWithDesc(ErrEncodeFailed, cause.Error(), value("format", format))
}

func WrapErrDecodeFailed(format string, cause error) error {
	return wrapFieldsWithDesc(ErrDecodeFailed, cause.Error(), value("format", format))
}

// Object graph related
func WrapErrInvalidTarget(target any, msg ...string) error {
	err := wrapFields(ErrInvalidTarget, value("target", fmt.Sprintf("%T", target)))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrTypeMismatch(path string, expected string, actual any) error {
	return wrapFields(ErrTypeMismatch,
		value("path", path),
		value("expected", expected),
		value("actual", fmt.Sprintf("%T", actual)),
	)
}

func WrapErrCircularRef(typeName string) error {
	return wrapFields(ErrCircularRef, value("type", typeName))
}

func WrapErrConstructFailed(typeName string, cause error) error {
	return wrapFieldsWithDesc(ErrConstructFailed, cause.Error(), value("type", typeName))
}

// Metadata related
func WrapErrMetadataLoad(typeName string, cause error) error {
	return wrapFieldsWithDesc(ErrMetadataLoad, cause.Error(), value("type", typeName))
}

func WrapErrMetadataCache(path string, cause error) error {
	return wrapFieldsWithDesc(ErrMetadataCache, cause.Error(), value("path", path))
}

// Handler & listener related
func WrapErrHandlerFailed(typeName, format string, cause error) error {
	return wrapFieldsWithDesc(ErrHandlerFailed, cause.Error(),
		value("type", typeName),
		value("format", format),
	)
}

func WrapErrListenerAborted(event string, cause error) error {
	return wrapFieldsWithDesc(ErrListenerAborted, cause.Error(), value("event", event))
}

func wrapFields(err serializerError, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	return err
}

func wrapFieldsWithDesc(err serializerError, desc string, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.msg += ": " + desc
	return err
}

type errorField interface {
	String() string
}

type valueField struct {
	name  string
	value any
}

func value(name string, value any) valueField {
	return valueField{
		name,
		value,
	}
}

func (f valueField) String() string {
	return fmt.Sprintf("%s=%v", f.name, f.value)
}
