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
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

type ErrorType int32

const (
	SystemError ErrorType = 0
	InputError  ErrorType = 1
)

var ErrorTypeName = map[ErrorType]string{
	SystemError: "system_error",
	InputError:  "input_error",
}

func (err ErrorType) String() string {
	return ErrorTypeName[err]
}

// Define leaf errors here,
// WARN: take care to add new error,
// check whether you can use the errors below before adding a new one.
// Name: Err + related prefix + error name
var (
	// Configuration related
	ErrUnsupportedStrategy = newSerializerError("unsupported property naming strategy", 100, false, WithErrorType(InputError))
	ErrConfigInvalid       = newSerializerError("invalid serializer configuration", 101, false, WithErrorType(InputError))
	ErrConfigLoad          = newSerializerError("failed to load serializer configuration", 102, false)

	// Format related
	ErrUnsupportedFormat = newSerializerError("unsupported format", 200, false, WithErrorType(InputError))
	ErrEncodeFailed      = newSerializerError("encode failed", 201, false)
	ErrDecodeFailed      = newSerializerError("decode failed", 202, false)

	// Object graph related
	ErrInvalidTarget   = newSerializerError("invalid deserialization target", 300, false, WithErrorType(InputError))
	ErrTypeMismatch    = newSerializerError("type mismatch", 301, false, WithErrorType(InputError))
	ErrCircularRef     = newSerializerError("circular reference detected", 302, false, WithErrorType(InputError))
	ErrConstructFailed = newSerializerError("object construction failed", 303, false)

	// Metadata related
	ErrMetadataLoad  = newSerializerError("failed to load metadata", 400, false)
	ErrMetadataCache = newSerializerError("metadata cache failure", 401, true)

	// Handler & listener related
	ErrHandlerFailed   = newSerializerError("type handler failed", 500, false)
	ErrListenerAborted = newSerializerError("listener aborted operation", 501, false)

	// Do NOT export this,
	// keep only for converting unknown error to serializerError
	errUnexpected = newSerializerError("unexpected error", (1<<16)-1, false)
)

type errorOption func(*serializerError)

func WithErrorType(etype ErrorType) errorOption {
	return func(err *serializerError) {
		err.errType = etype
	}
}

type serializerError struct {
	msg       string
	retriable bool
	errCode   int32
	errType   ErrorType
}

func newSerializerError(msg string, code int32, retriable bool, options ...errorOption) serializerError {
	err := serializerError{
		msg:       msg,
		retriable: retriable,
		errCode:   code,
	}

	for _, option := range options {
		option(&err)
	}
	return err
}

func (e serializerError) code() int32 {
	return e.errCode
}

func (e serializerError) Error() string {
	return e.msg
}

func (e serializerError) Is(err error) bool {
	cause := errors.Cause(err)
	if cause, ok := cause.(serializerError); ok {
		return e.errCode == cause.errCode
	}
	return false
}

type multiErrors struct {
	errs []error
}

func (e multiErrors) Unwrap() error {
	if len(e.errs) <= 1 {
		return nil
	}
	// the cause of multi errors is defined as the last error
	if len(e.errs) == 2 {
		return e.errs[1]
	}

	return multiErrors{
		errs: e.errs[1:],
	}
}

func (e multiErrors) Error() string {
	final := e.errs[0]
	for i := 1; i < len(e.errs); i++ {
		final = errors.Wrap(e.errs[i], final.Error())
	}
	return final.Error()
}

func (e multiErrors) Is(err error) bool {
	for _, item := range e.errs {
		if errors.Is(item, err) {
			return true
		}
	}
	return false
}

func Combine(errs ...error) error {
	errs = lo.Filter(errs, func(err error, _ int) bool { return err != nil })
	if len(errs) == 0 {
		return nil
	}
	return multiErrors{
		errs,
	}
}
