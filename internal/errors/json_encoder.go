package errors

import "encoding/json"

// EncodeJSON renders a slice of reports as a JSON object holding a schema
// tag and the reports array, used by the CLI's
// `-json` flag so tooling can consume compiler diagnostics without
// scraping text (spec.md leaves diagnostic *quality* unspecified beyond one
// message per failure; this is purely a transport-format convenience).
func EncodeJSON(reports []*Report, compact bool) (string, error) {
	type envelope struct {
		Schema  string    `json:"schema"`
		Reports []*Report `json:"reports"`
	}
	env := envelope{Schema: "niuc.error/v1", Reports: reports}

	var data []byte
	var err error
	if compact {
		data, err = json.Marshal(env)
	} else {
		data, err = json.MarshalIndent(env, "", "  ")
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}
