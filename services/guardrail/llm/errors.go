// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"errors"
	"fmt"
)

// Sentinel errors for the llm package.
var (
	// ErrModelUnavailable marks a transient backend failure (quota,
	// timeout, transport). The fallback chain retries across models on it.
	ErrModelUnavailable = errors.New("model backend unavailable")

	// ErrUnknownProvider is returned for an unrecognized provider name.
	ErrUnknownProvider = errors.New("unknown model provider")

	// ErrMissingAPIKey is returned when a backend's credential is absent.
	ErrMissingAPIKey = errors.New("API key not configured")

	// ErrEmptyResponse is returned when a backend answers with no content.
	ErrEmptyResponse = errors.New("model returned no content")
)

// ExhaustedError is returned when the primary and every fallback model
// failed. It carries the last attempt's error for diagnosis.
type ExhaustedError struct {
	// Attempts is the number of generate calls made before giving up.
	Attempts int

	// Models lists the model names tried, in order.
	Models []string

	// LastErr is the error from the final attempt.
	LastErr error
}

// Error returns the error message.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d model attempts exhausted (tried %v): %v",
		e.Attempts, e.Models, e.LastErr)
}

// Unwrap returns the last attempt's error.
func (e *ExhaustedError) Unwrap() error {
	return e.LastErr
}

// IsExhausted reports whether err is an ExhaustedError.
func IsExhausted(err error) bool {
	var ee *ExhaustedError
	return errors.As(err, &ee)
}
