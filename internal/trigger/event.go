// Package trigger models the inbound scheduled-rule event, extracts the rule
// name from its resource identifier, and defines the outbound response
// envelope.
package trigger

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"

	"github.com/tidwall/gjson"
)

// Event is the scheduled-rule record delivered by the invoking platform.
// Only Resources is consulted; the remaining fields are carried for logging
// as the raw text the platform sent.
type Event struct {
	ID         string   `json:"id,omitempty"`
	Source     string   `json:"source,omitempty"`
	DetailType string   `json:"detail-type,omitempty"`
	Account    string   `json:"account,omitempty"`
	Region     string   `json:"region,omitempty"`
	Time       string   `json:"time,omitempty"`
	Resources  []string `json:"resources"`
}

// ParseEvent decodes a JSON trigger event. Only resources is decoded
// strictly; metadata of an unexpected shape never rejects the event.
func ParseEvent(data []byte) (Event, error) {
	if !gjson.ValidBytes(data) {
		return Event{}, &InvalidEventError{Reason: "event is not valid JSON"}
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return Event{}, &InvalidEventError{Reason: "event is not a JSON object"}
	}

	ev := Event{
		ID:         root.Get("id").String(),
		Source:     root.Get("source").String(),
		DetailType: root.Get("detail-type").String(),
		Account:    root.Get("account").String(),
		Region:     root.Get("region").String(),
		Time:       root.Get("time").String(),
	}
	if res := root.Get("resources"); res.Exists() && res.Type != gjson.Null {
		if err := json.Unmarshal([]byte(res.Raw), &ev.Resources); err != nil {
			return Event{}, &InvalidEventError{Reason: fmt.Sprintf("event 'resources' is not a list of strings: %v", err)}
		}
	}
	return ev, nil
}

var ruleNamePattern = regexp.MustCompile(`rule/(.+)`)

// ExtractRuleName returns everything after "rule/" in the first resource
// identifier, verbatim.
func ExtractRuleName(ev Event) (string, error) {
	if len(ev.Resources) == 0 {
		return "", &InvalidEventError{Reason: "Event is missing 'resources' key."}
	}

	arn := ev.Resources[0]
	m := ruleNamePattern.FindStringSubmatch(arn)
	if m == nil {
		return "", &MalformedRuleArnError{ARN: arn}
	}
	return m[1], nil
}

// Response is the status envelope returned to the invoking platform.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// SuccessMessage is the fixed body message of a successful invocation.
const SuccessMessage = "Execution completed successfully."

// Success returns the 200 response.
func Success() Response {
	body, _ := json.Marshal(map[string]string{"message": SuccessMessage})
	return Response{StatusCode: http.StatusOK, Body: string(body)}
}

// Failure returns the 500 response carrying err's message as plain text.
func Failure(err error) Response {
	body, _ := json.Marshal(map[string]string{"error": err.Error()})
	return Response{StatusCode: http.StatusInternalServerError, Body: string(body)}
}

// Message decodes the body and returns its message or error text.
func (r Response) Message() string {
	var body map[string]string
	if err := json.Unmarshal([]byte(r.Body), &body); err != nil {
		return r.Body
	}
	if m, ok := body["message"]; ok {
		return m
	}
	return body["error"]
}
