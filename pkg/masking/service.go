package masking

import "log/slog"

// Service redacts credentials and secrets from text this application logs
// or persists: git command output, LLM provider request/response bodies,
// and structured previews (JSON/YAML) that might echo a site's own
// configuration back at us. Created once at startup and safe for concurrent
// use — it is stateless aside from its compiled patterns.
type Service struct {
	patterns    map[string]*CompiledPattern
	codeMaskers []Masker
}

// NewService compiles the built-in patterns and registers the structural
// maskers. Invalid patterns would be a programming error and panic at
// compile time rather than being silently skipped.
func NewService() *Service {
	s := &Service{
		patterns:    compileBuiltinPatterns(),
		codeMaskers: []Masker{&SensitiveFieldMasker{}},
	}

	slog.Info("masking service initialized",
		"regex_patterns", len(s.patterns),
		"code_maskers", len(s.codeMaskers))

	return s
}

// Redact applies every structural masker and then every regex pattern to
// content, returning the sanitized result. It never returns an error: on
// any internal failure it falls back to the original content rather than
// panicking in a logging hot path, since losing a masking pass is strictly
// better than crashing the caller.
func (s *Service) Redact(content string) string {
	if content == "" {
		return content
	}

	masked := content
	for _, m := range s.codeMaskers {
		if m.AppliesTo(masked) {
			masked = m.Mask(masked)
		}
	}

	for _, p := range s.patterns {
		masked = p.Regex.ReplaceAllString(masked, p.Replacement)
	}

	return masked
}
