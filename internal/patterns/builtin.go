package patterns

// Statement terminators followed by destructive verbs, comment delimiters,
// tautologies and UNION SELECT.
var builtinSQLInjection = []PatternSpec{
	{ID: "sql-drop", Pattern: `;\s*DROP\s+`},
	{ID: "sql-delete", Pattern: `;\s*DELETE\s+`},
	{ID: "sql-truncate", Pattern: `;\s*TRUNCATE\s+`},
	{ID: "sql-update", Pattern: `;\s*UPDATE\s+.*SET\s+`},
	{ID: "sql-insert", Pattern: `;\s*INSERT\s+`},
	{ID: "sql-line-comment", Pattern: `--\s*$`},
	{ID: "sql-block-comment", Pattern: `/\*.*\*/`},
	{ID: "sql-tautology-quoted", Pattern: `'\s*OR\s+'1'\s*=\s*'1`},
	{ID: "sql-tautology", Pattern: `'\s*OR\s+1\s*=\s*1`},
	{ID: "sql-union-select", Pattern: `UNION\s+SELECT`},
}

var builtinPromptInjection = []PatternSpec{
	{ID: "pi-ignore-instructions", Pattern: `ignore\s+(previous|all|your)\s+(instructions?|rules?|prompts?)`},
	{ID: "pi-forget", Pattern: `forget\s+(everything|your|all)`},
	{ID: "pi-role-reassign", Pattern: `you\s+are\s+now\s+a?`},
	{ID: "pi-new-rule", Pattern: `new\s+rule\s*:`},
	{ID: "pi-system-prefix", Pattern: `system\s*:\s*`},
	{ID: "pi-override", Pattern: `override\s+(security|permission|access)`},
	{ID: "pi-pretend", Pattern: `pretend\s+(you|to\s+be)`},
	{ID: "pi-act-as", Pattern: `act\s+as\s+(if|a)`},
	{ID: "pi-reveal-secret", Pattern: `tell\s+me\s+(the|your)\s+(password|secret|key)`},
	{ID: "pi-bulk-data", Pattern: `(show|display|list|give)\s+(me\s+)?(all|every|complete)\s+(the\s+)?(data|records?|employees?|salar(y|ies))`},
	{ID: "pi-debug-mode", Pattern: `debug\s+mode`},
	{ID: "pi-test-mode", Pattern: `test\s+mode`},
	{ID: "pi-admin-mode", Pattern: `admin\s+mode`},
	{ID: "pi-bypass", Pattern: `bypass\s+(security|permission|check)`},
}

var builtinOffTopic = []PatternSpec{
	{ID: "ot-weather", Pattern: `weather\s+(today|tomorrow|forecast)`},
	{ID: "ot-trivia", Pattern: `what\s+is\s+the\s+(capital|president|population)`},
	{ID: "ot-joke", Pattern: `tell\s+me\s+a\s+joke`},
	{ID: "ot-sports", Pattern: `who\s+won\s+(the|last)`},
	{ID: "ot-recipe", Pattern: `recipe\s+for`},
	{ID: "ot-cooking", Pattern: `how\s+to\s+cook`},
	{ID: "ot-movies", Pattern: `movie\s+recommendation`},
	{ID: "ot-opinion", Pattern: `what\s+do\s+you\s+think\s+about`},
	{ID: "ot-politics", Pattern: `political\s+opinion`},
	{ID: "ot-stocks", Pattern: `stock\s+price`},
	{ID: "ot-crypto", Pattern: `bitcoin|crypto`},
}

var builtinSensitiveFields = []string{
	"password", "password_hash", "auth_token", "access_token", "refresh_token",
	"secret", "api_key", "private_key", "ssn", "social_security", "aadhaar",
	"bank_account", "account_number", "routing_number", "credit_card", "cvv",
	"salary", "compensation", "pay", "wage", "bonus", "medical", "health_record",
	"address", "home_address", "personal_phone", "emergency_contact",
}

var builtinAmbiguity = []AmbiguityRule{
	{Phrases: []string{"all tasks", "everyone"}, Question: "Do you want to see your tasks or your team's tasks?"},
	{Phrases: []string{"all leaves"}, Question: "Do you want to see your leave requests or pending approvals?"},
}
