package lmstudio

import (
	"errors"
	"fmt"
	"strings"
)

// InstallURL is where users are pointed when the lms CLI cannot be found.
const InstallURL = "https://lmstudio.ai/download"

var (
	// ErrConfigurationMissing indicates the LM Studio provider entry or its
	// base URL is absent from the configuration.
	ErrConfigurationMissing = errors.New("configuration missing")

	// ErrBinaryNotInstalled indicates the lms CLI is neither on PATH nor in
	// the default LM Studio install location.
	ErrBinaryNotInstalled = fmt.Errorf("LM Studio CLI (lms) not found; install LM Studio from %s", InstallURL)
)

// TransportError indicates the request never produced an HTTP response
// (connection refused, DNS, connect timeout, dropped connection).
type TransportError struct {
	Err error
	URL string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ServerError indicates the server answered with a non-2xx status.
type ServerError struct {
	URL        string
	Op         string
	StatusCode int
	Status     string
}

func (e *ServerError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d", e.StatusCode)
	}
	switch e.Op {
	case opListModels:
		return fmt.Sprintf("failed to fetch models: %s", status)
	default:
		return fmt.Sprintf("server returned error: %s", status)
	}
}

// MalformedResponseError indicates the response body did not have the
// expected shape.
type MalformedResponseError struct {
	// Field names the missing or mistyped field. It is empty when the body
	// is not valid JSON or is too large.
	Field string
	Err   error
}

func (e *MalformedResponseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("no '%s' array in response", e.Field)
	}
	return fmt.Sprintf("parsing response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// SubprocessError indicates the lms CLI could not be started or exited
// with a non-zero status.
type SubprocessError struct {
	Command  []string
	ExitCode int
	// Err is the spawn error, or the *exec.ExitError for a non-zero exit.
	Err error
	// Started is false when the process could not be spawned at all.
	Started bool
}

func (e *SubprocessError) Error() string {
	if !e.Started {
		return fmt.Sprintf("failed to execute '%s': %v", strings.Join(e.Command, " "), e.Err)
	}
	return fmt.Sprintf("lms command failed with status: %v", e.Err)
}

func (e *SubprocessError) Unwrap() error {
	return e.Err
}
