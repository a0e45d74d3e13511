// Licensed to NASA JPL under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. NASA JPL licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Error types shared by the image model and the container codec. These are
// deliberately small concrete structs so callers can distinguish a broken
// invariant from a missing channel from a corrupt file with errors.As,
// without string matching.
package errortypes

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError - a structural invariant was violated: duplicate channels,
// shape mismatch, missing required metadata, invalid or lossy dtype request
type ValidationError struct {
	Err error
}

func (e ValidationError) Error() string {
	return e.Err.Error()
}
func (e ValidationError) Unwrap() error {
	return e.Err
}

func MakeValidationError(format string, a ...interface{}) ValidationError {
	return ValidationError{Err: fmt.Errorf(format, a...)}
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// NotFoundError - a channel/mass/target lookup missed. Suggestions carries
// best-effort likely matches for string target lookups
type NotFoundError struct {
	ID          string
	Suggestions []string
}

func (e NotFoundError) Error() string {
	if len(e.Suggestions) > 0 {
		return fmt.Sprintf("%v not found. Did you mean: %v?", e.ID, strings.Join(e.Suggestions, ", "))
	}
	return fmt.Sprintf("%v not found", e.ID)
}

func MakeNotFoundError(ID string) NotFoundError {
	return NotFoundError{ID: ID}
}

func MakeNotFoundErrorWithSuggestions(ID string, suggestions []string) NotFoundError {
	return NotFoundError{ID: ID, Suggestions: suggestions}
}

func IsNotFoundError(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// FormatError - a foreign or corrupt container, or a tag we expected to
// find wasn't there
type FormatError struct {
	Err error
}

func (e FormatError) Error() string {
	return e.Err.Error()
}
func (e FormatError) Unwrap() error {
	return e.Err
}

func MakeFormatError(format string, a ...interface{}) FormatError {
	return FormatError{Err: fmt.Errorf(format, a...)}
}

func IsFormatError(err error) bool {
	var fe FormatError
	return errors.As(err, &fe)
}
