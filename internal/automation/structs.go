package automation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlowDefinition is the part of a stored flow's JSON that drives follow-up
// actions after a response.
type FlowDefinition struct {
	Screens []FlowScreen `json:"screens"`
}

// FlowScreen is one screen of a stored flow
type FlowScreen struct {
	ID          string       `json:"id"`
	Title       string       `json:"title,omitempty"`
	NextActions []FlowAction `json:"nextActions,omitempty"`
}

// FlowAction runs after a response to its screen. Condition is matched
// against the submitted values; "default" always matches.
type FlowAction struct {
	Type           string `json:"type"` // send_message, trigger_flow, assign_doctor
	Condition      string `json:"condition"`
	Message        string `json:"message,omitempty"`
	FlowID         string `json:"flowId,omitempty"`
	Specialization string `json:"specialization,omitempty"`
}

// DecodeFlowDefinition reads a FlowDefinition out of a stored flow_json map.
func DecodeFlowDefinition(raw map[string]any) (FlowDefinition, error) {
	var def FlowDefinition
	if len(raw) == 0 {
		return def, nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return def, err
	}
	err = json.Unmarshal(b, &def)
	return def, err
}

// Helpers for reading submitted form values

// formString returns the first non-empty value among keys.
func formString(form map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := ToString(form[k]); s != "" {
			return s
		}
	}
	return ""
}

// ToString renders scalar JSON values as text. Nil and containers are empty.
func ToString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	case int:
		return strconv.Itoa(val)
	default:
		return ""
	}
}

// ToStrings accepts a JSON list or a comma separated string.
func ToStrings(v any) []string {
	var out []string
	switch val := v.(type) {
	case []any:
		for _, item := range val {
			if s := ToString(item); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, s := range val {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, s := range strings.Split(val, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// ReplaceVariables fills {{phone}} and {{response.<key>}} placeholders.
func ReplaceVariables(text, userPhone string, response map[string]any) string {
	text = strings.ReplaceAll(text, "{{phone}}", userPhone)
	for k, v := range response {
		s := ToString(v)
		if s == "" {
			if list := ToStrings(v); len(list) > 0 {
				s = strings.Join(list, ", ")
			} else if v != nil {
				s = fmt.Sprint(v)
			}
		}
		text = strings.ReplaceAll(text, "{{response."+k+"}}", s)
	}
	return text
}
