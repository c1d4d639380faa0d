package masking

import "regexp"

// builtinPattern is the uncompiled form of a built-in masking rule.
type builtinPattern struct {
	pattern     string
	replacement string
	description string
}

// builtinPatterns are the regex-based rules applied to every log line and
// git/LLM transcript this service redacts. They cover the credential shapes
// that actually show up in this pipeline's external calls: git remote URLs
// with embedded basic-auth, GitHub/GitLab personal access tokens passed as
// bearer headers, and the API keys used by the PSI, Search Console, and LLM
// provider clients.
var builtinPatterns = map[string]builtinPattern{
	"git_url_credentials": {
		pattern:     `(https?://)[^/\s@:]+:[^/\s@]+@`,
		replacement: "${1}[REDACTED]@",
		description: "username:password embedded in a git remote URL",
	},
	"bearer_token": {
		pattern:     `(?i)(bearer\s+)[a-z0-9._\-]+`,
		replacement: "${1}[REDACTED]",
		description: "Authorization: Bearer <token> header value",
	},
	"github_pat": {
		pattern:     `gh[pousr]_[A-Za-z0-9]{20,}`,
		replacement: "[REDACTED_GITHUB_TOKEN]",
		description: "GitHub personal access / OAuth / app token",
	},
	"google_api_key": {
		pattern:     `AIza[0-9A-Za-z_\-]{35}`,
		replacement: "[REDACTED_GOOGLE_API_KEY]",
		description: "Google API key (used by PSI / Search Console clients)",
	},
	"aws_access_key_id": {
		pattern:     `AKIA[0-9A-Z]{16}`,
		replacement: "[REDACTED_AWS_ACCESS_KEY]",
		description: "AWS access key id",
	},
	"generic_secret_assignment": {
		pattern:     `(?i)(api[_-]?key|secret|password|token)\s*[:=]\s*["']?[A-Za-z0-9_\-./+=]{8,}["']?`,
		replacement: "${1}=[REDACTED]",
		description: "key=value style secret assignment in free-form log text",
	},
}

func compileBuiltinPatterns() map[string]*CompiledPattern {
	compiled := make(map[string]*CompiledPattern, len(builtinPatterns))
	for name, p := range builtinPatterns {
		re, err := regexp.Compile(p.pattern)
		if err != nil {
			// A bad built-in pattern is a programming error, not a runtime
			// condition — fail fast rather than silently operating unmasked.
			panic("masking: invalid builtin pattern " + name + ": " + err.Error())
		}
		compiled[name] = &CompiledPattern{
			Name:        name,
			Regex:       re,
			Replacement: p.replacement,
			Description: p.description,
		}
	}
	return compiled
}
