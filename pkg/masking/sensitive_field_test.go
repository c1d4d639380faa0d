package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSensitiveFieldMasker_Name(t *testing.T) {
	m := &SensitiveFieldMasker{}
	assert.Equal(t, "sensitive_field", m.Name())
}

func TestSensitiveFieldMasker_AppliesTo(t *testing.T) {
	m := &SensitiveFieldMasker{}

	assert.True(t, m.AppliesTo(`{"api_key": "abc123"}`))
	assert.True(t, m.AppliesTo("api_key: abc123\n"))
	assert.False(t, m.AppliesTo("just some page body text"))
	assert.False(t, m.AppliesTo(""))
}

func TestSensitiveFieldMasker_MaskJSON(t *testing.T) {
	m := &SensitiveFieldMasker{}

	input := `{"hostname": "example.com", "api_key": "sk-live-deadbeef", "nested": {"token": "xyz"}}`
	masked := m.Mask(input)

	assert.Contains(t, masked, `"hostname": "example.com"`)
	assert.Contains(t, masked, `"api_key": "[REDACTED]"`)
	assert.Contains(t, masked, `"token": "[REDACTED]"`)
	assert.NotContains(t, masked, "sk-live-deadbeef")
	assert.NotContains(t, masked, "xyz")
}

func TestSensitiveFieldMasker_MaskYAML(t *testing.T) {
	m := &SensitiveFieldMasker{}

	input := "hostname: example.com\npassword: hunter2\n"
	masked := m.Mask(input)

	assert.Contains(t, masked, "hostname: example.com")
	assert.NotContains(t, masked, "hunter2")
}

func TestSensitiveFieldMasker_NoSensitiveFields(t *testing.T) {
	m := &SensitiveFieldMasker{}

	input := `{"hostname": "example.com", "depth": 2}`
	assert.Equal(t, input, m.Mask(input))
}

func TestSensitiveFieldMasker_MalformedInputReturnsOriginal(t *testing.T) {
	m := &SensitiveFieldMasker{}

	input := `{not valid json or yaml mapping :::`
	assert.Equal(t, input, m.Mask(input))
}
