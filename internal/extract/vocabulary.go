package extract

import "github.com/ppiankov/slopwatch/internal/model"

// actionVerbs maps verb forms to the action they announce
var actionVerbs = map[string]model.Action{
	"added": model.ActionAdd, "add": model.ActionAdd, "adding": model.ActionAdd,
	"implemented": model.ActionAdd, "implement": model.ActionAdd,
	"created": model.ActionAdd, "create": model.ActionAdd,
	"introduced": model.ActionAdd, "built": model.ActionAdd, "wrote": model.ActionAdd,
	"written": model.ActionAdd, "integrated": model.ActionAdd,

	"fixed": model.ActionFix, "fix": model.ActionFix, "resolved": model.ActionFix,
	"repaired": model.ActionFix, "patched": model.ActionFix, "corrected": model.ActionFix,
	"addressed": model.ActionFix,

	"improved": model.ActionImprove, "improve": model.ActionImprove,
	"enhanced": model.ActionImprove, "optimized": model.ActionImprove,
	"refactored": model.ActionImprove, "hardened": model.ActionImprove,
	"strengthened": model.ActionImprove, "polished": model.ActionImprove,

	"updated": model.ActionUpdate, "update": model.ActionUpdate,
	"changed": model.ActionUpdate, "modified": model.ActionUpdate,
	"upgraded": model.ActionUpdate, "migrated": model.ActionUpdate,
	"replaced": model.ActionUpdate, "adjusted": model.ActionUpdate,
	"tweaked": model.ActionUpdate, "rewrote": model.ActionUpdate,

	"removed": model.ActionRemove, "remove": model.ActionRemove,
	"deleted": model.ActionRemove, "dropped": model.ActionRemove,
	"eliminated": model.ActionRemove, "stripped": model.ActionRemove,

	"configured": model.ActionConfigure, "configure": model.ActionConfigure,
	"enabled": model.ActionConfigure, "disabled": model.ActionConfigure,
	"setup": model.ActionConfigure,
}

// negators cancel a verb that directly follows them ("haven't added")
var negators = map[string]bool{
	"not": true, "never": true, "didn't": true, "haven't": true, "hasn't": true,
	"don't": true, "couldn't": true, "wasn't": true, "cannot": true, "can't": true,
}

// fillerWords never make a template object on their own
var fillerWords = map[string]bool{
	"it": true, "this": true, "that": true, "these": true, "those": true, "them": true,
	"everything": true, "something": true, "all": true, "some": true, "things": true,
	"stuff": true, "the": true, "a": true, "an": true, "now": true, "too": true,
	"as": true, "well": true, "requested": true, "up": true,
}

// domainPhrases lists the phrases that tie a claim to a domain.
// Multi-word phrases win over their single-word prefixes.
var domainPhrases = map[model.Domain][]string{
	model.DomainStyling: {
		"css", "scss", "sass", "stylesheet", "stylesheets", "style", "styles", "styling",
		"responsive", "responsive design", "responsive layout", "media query", "media queries",
		"breakpoint", "breakpoints", "mobile layout", "dark mode", "light mode", "theme", "themes",
		"theming", "color", "colors", "colour", "colours", "palette", "layout", "flexbox", "grid",
		"animation", "animations", "transition", "transitions", "font", "fonts", "typography",
		"padding", "margin", "margins", "spacing", "hover effect", "hover effects", "hover state",
	},
	model.DomainScripting: {
		"javascript", "typescript", "js", "ts", "function", "functions", "script", "scripts",
		"handler", "handlers", "event listener", "event listeners", "event handler", "click handler",
		"logic", "component", "components", "module", "modules", "method", "methods", "callback",
		"callbacks", "endpoint", "endpoints", "api call", "api calls", "async", "hook", "hooks",
	},
	model.DomainSecurity: {
		"security", "secure", "authentication", "auth", "authorization", "csrf", "xss",
		"sql injection", "injection", "sanitization", "sanitizing", "input validation", "validation",
		"password", "passwords", "password hashing", "hashing", "encryption", "encrypt", "token",
		"tokens", "jwt", "permission", "permissions", "vulnerability", "vulnerabilities", "secrets",
		"rate limiting", "cors",
	},
	model.DomainTesting: {
		"test", "tests", "testing", "unit test", "unit tests", "integration test", "integration tests",
		"test coverage", "coverage", "assertion", "assertions", "mock", "mocks", "test suite",
		"test case", "test cases", "fixtures",
	},
	model.DomainErrors: {
		"error handling", "error handler", "error", "errors", "exception", "exceptions",
		"exception handling", "try catch", "retry", "retries", "retry logic",
		"fallback", "fallbacks", "edge case", "edge cases", "null check", "null checks",
		"crash", "crashes", "graceful degradation",
	},
}
