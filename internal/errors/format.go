package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatForUser returns a user-friendly error message.
func FormatForUser(err error) string {
	if err == nil {
		return ""
	}

	ve, ok := err.(*VecError)
	if !ok {
		return err.Error()
	}

	var sb strings.Builder
	sb.WriteString("Error: ")
	sb.WriteString(ve.Message)
	sb.WriteString(fmt.Sprintf("\n[%s]", ve.Code))

	return sb.String()
}

// FormatForCLI formats an error for CLI output.
// Uses a concise format suitable for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	ve, ok := err.(*VecError)
	if !ok {
		ve = Internal(err.Error(), err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", ve.Message))
	sb.WriteString(fmt.Sprintf("  Code: %s\n", ve.Code))

	return sb.String()
}

// jsonError is the JSON representation of an error.
type jsonError struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Category string            `json:"category"`
	Severity string            `json:"severity"`
	Details  map[string]string `json:"details,omitempty"`
	Cause    string            `json:"cause,omitempty"`
	Latches  bool              `json:"latches"`
}

// FormatJSON returns a JSON representation of the error.
// Suitable for machine consumption and structured logging.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	ve, ok := err.(*VecError)
	if !ok {
		ve = Internal(err.Error(), err)
	}

	je := jsonError{
		Code:     ve.Code,
		Message:  ve.Message,
		Category: string(ve.Category),
		Severity: string(ve.Severity),
		Details:  ve.Details,
		Latches:  ve.Latches,
	}

	if ve.Cause != nil {
		je.Cause = ve.Cause.Error()
	}

	return json.Marshal(je)
}

// FormatForLog formats an error for structured logging.
// Returns key-value pairs suitable for slog attributes.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	ve, ok := err.(*VecError)
	if !ok {
		return map[string]any{
			"error": err.Error(),
		}
	}

	result := map[string]any{
		"error_code": ve.Code,
		"message":    ve.Message,
		"category":   string(ve.Category),
		"severity":   string(ve.Severity),
		"latches":    ve.Latches,
	}

	if ve.Cause != nil {
		result["cause"] = ve.Cause.Error()
	}

	for k, v := range ve.Details {
		result["detail_"+k] = v
	}

	return result
}
