package masking

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaskedSecretValue is the replacement string for masked sensitive field values.
const MaskedSecretValue = "[REDACTED]"

// sensitiveKeys names object keys whose values are masked wherever they
// appear in a JSON or YAML document, regardless of nesting depth.
var sensitiveKeys = map[string]bool{
	"password":                true,
	"secret":                  true,
	"api_key":                 true,
	"apikey":                  true,
	"token":                   true,
	"access_token":            true,
	"refresh_token":           true,
	"client_secret":           true,
	"private_key":             true,
	"authorization":           true,
	"search_console_api_key":  true,
	"psi_api_key":             true,
}

// SensitiveFieldMasker walks a parsed JSON or YAML document and masks the
// value of any field whose key matches sensitiveKeys. Unlike the regex
// patterns it has structural awareness: it only touches map values, so a
// page's own body text that happens to contain the word "token" is left
// alone unless it's actually the value of a token-shaped field.
type SensitiveFieldMasker struct{}

// Name returns the unique identifier for this masker.
func (m *SensitiveFieldMasker) Name() string { return "sensitive_field" }

// AppliesTo performs a lightweight check on whether this masker should process the data.
func (m *SensitiveFieldMasker) AppliesTo(data string) bool {
	trimmed := strings.TrimSpace(data)
	if trimmed == "" {
		return false
	}
	return trimmed[0] == '{' || trimmed[0] == '[' || looksLikeYAMLMapping(trimmed)
}

func looksLikeYAMLMapping(data string) bool {
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return strings.Contains(line, ":")
	}
	return false
}

// Mask applies structural sensitive-field masking.
// Detects JSON vs YAML and applies the appropriate parser.
// Returns original data on parse/processing errors (defensive).
func (m *SensitiveFieldMasker) Mask(data string) string {
	trimmed := strings.TrimSpace(data)

	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		if masked := m.maskJSON(data); masked != data {
			return masked
		}
	}

	if masked := m.maskYAML(data); masked != data {
		return masked
	}

	return data
}

// maskYAML parses multi-document YAML and masks sensitive fields in place.
func (m *SensitiveFieldMasker) maskYAML(data string) string {
	decoder := yaml.NewDecoder(strings.NewReader(data))
	var documents []any
	anyMasked := false

	for {
		var doc any
		err := decoder.Decode(&doc)
		if err == io.EOF {
			break
		}
		if err != nil {
			return data // Parse error — return original (defensive)
		}
		if doc == nil {
			continue
		}
		if maskSensitiveValues(doc) {
			anyMasked = true
		}
		documents = append(documents, doc)
	}

	if !anyMasked || len(documents) == 0 {
		return data
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	for _, doc := range documents {
		if err := encoder.Encode(doc); err != nil {
			return data
		}
	}
	if err := encoder.Close(); err != nil {
		return data
	}

	result := strings.TrimRight(buf.String(), "\n")
	if strings.HasSuffix(data, "\n") {
		result += "\n"
	}
	return result
}

// maskJSON parses JSON and masks sensitive fields in place.
func (m *SensitiveFieldMasker) maskJSON(data string) string {
	var obj any
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return data
	}

	if !maskSensitiveValues(obj) {
		return data
	}

	result, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return data
	}

	output := string(result)
	if strings.HasSuffix(data, "\n") {
		output += "\n"
	}
	return output
}

// maskSensitiveValues recursively walks maps and slices, replacing the value
// of any map key in sensitiveKeys with MaskedSecretValue. Returns true if
// anything was masked.
func maskSensitiveValues(node any) bool {
	anyMasked := false

	switch v := node.(type) {
	case map[string]any:
		for key, val := range v {
			if sensitiveKeys[strings.ToLower(key)] {
				if _, isString := val.(string); isString {
					v[key] = MaskedSecretValue
					anyMasked = true
					continue
				}
			}
			if maskSensitiveValues(val) {
				anyMasked = true
			}
		}
	case map[any]any: // yaml.v3 can decode untyped mapping nodes this way
		for key, val := range v {
			keyStr, ok := key.(string)
			if ok && sensitiveKeys[strings.ToLower(keyStr)] {
				if _, isString := val.(string); isString {
					v[key] = MaskedSecretValue
					anyMasked = true
					continue
				}
			}
			if maskSensitiveValues(val) {
				anyMasked = true
			}
		}
	case []any:
		for _, item := range v {
			if maskSensitiveValues(item) {
				anyMasked = true
			}
		}
	}

	return anyMasked
}
