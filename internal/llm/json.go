package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSONObject finds the first {...} span in a free-text LLM response
// and unmarshals it into dest. LLMs asked for JSON-only output sometimes
// wrap it in prose or a code fence anyway, so this strips a leading fence,
// takes the span from the first '{' to the last '}', and unmarshals that.
func ExtractJSONObject(response string, dest interface{}) error {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end <= start {
		return fmt.Errorf("llm: no JSON object found in response")
	}
	if err := json.Unmarshal([]byte(response[start:end+1]), dest); err != nil {
		return fmt.Errorf("llm: parse JSON object: %w", err)
	}
	return nil
}
