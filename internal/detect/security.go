package detect

import "github.com/ppiankov/slopwatch/internal/model"

// SecurityDetector verifies claims about authentication, sanitization and hardening
type SecurityDetector struct {
	signatureDetector
}

// NewSecurityDetector creates a security detector
func NewSecurityDetector(params model.ThresholdsConfig) *SecurityDetector {
	d := &SecurityDetector{signatureDetector{
		domain:     model.DomainSecurity,
		label:      "source or config",
		extensions: unionExt(codeExtensions, configExtensions),
		params:     params,
		categories: []Category{
			{Name: "sanitization", Keywords: []string{"sanitiz", "xss", "escape", "injection", "validation", "input"}},
			{Name: "crypto", Keywords: []string{"hash", "encrypt", "crypto", "bcrypt"}},
			{Name: "auth", Keywords: []string{"auth", "login", "password", "session", "jwt", "token", "permission"}},
			{Name: "headers", Keywords: []string{"csrf", "cors", "csp", "header", "rate limit"}},
			{Name: "secrets", Keywords: []string{"secret", "api key", "credential", "env"}},
		},
		signatures: []Signature{
			{Pattern: mustCompile(`(?i)sanitiz|DOMPurify|escapeHtml|htmlspecialchars|html\.EscapeString|\bescape\(`), Category: "sanitization", Weight: 0.4, Description: "output sanitization"},
			{Pattern: mustCompile(`(?i)\.prepare\(|prepared\s*statement|\$\d\b|\?\s*,\s*\[|parameteri[sz]ed`), Category: "sanitization", Weight: 0.3, Description: "parameterized query"},
			{Pattern: mustCompile(`(?i)\bvalidat\w*\(|\bjoi\.|\bzod\.|\byup\.|validator\.`), Category: "sanitization", Weight: 0.2, Description: "input validation"},
			{Pattern: mustCompile(`(?i)bcrypt|argon2|scrypt|pbkdf2`), Category: "crypto", Weight: 0.4, Description: "password hashing"},
			{Pattern: mustCompile(`(?i)createHash|createCipher|crypto\.|hashlib|sha256|subtle\.`), Category: "crypto", Weight: 0.3, Description: "cryptographic primitive"},
			{Pattern: mustCompile(`(?i)jsonwebtoken|\bjwt\b|verifyToken|Bearer\s`), Category: "auth", Weight: 0.3, Description: "token verification"},
			{Pattern: mustCompile(`(?i)\b(?:authenticate|authorize|isAuthenticated|requireAuth|checkPermission|login)\w*\(`), Category: "auth", Weight: 0.3, Description: "auth check"},
			{Pattern: mustCompile(`(?i)csrf|xsrf`), Category: "headers", Weight: 0.4, Description: "CSRF protection"},
			{Pattern: mustCompile(`(?i)content-security-policy|helmet\(|x-frame-options|strict-transport-security`), Category: "headers", Weight: 0.3, Description: "security header"},
			{Pattern: mustCompile(`(?i)cors\(|access-control-allow`), Category: "headers", Weight: 0.2, Description: "CORS policy"},
			{Pattern: mustCompile(`(?i)rate.?limit`), Category: "headers", Weight: 0.3, Description: "rate limiting"},
			{Pattern: mustCompile(`(?i)process\.env\.|os\.getenv|os\.Getenv|os\.environ`), Category: "secrets", Weight: 0.2, Description: "secret read from environment"},
		},
	}}
	d.bind()
	return d
}
