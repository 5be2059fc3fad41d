package transcription

import (
	"fmt"
	"strings"

	"github.com/kbukum/transcribe/errors"
)

// NamingRules constrain request ids, which become object keys, vocabulary
// names and job names on the remote side.
type NamingRules struct {
	MaxLength int
	// ReservedPrefixes are matched case-insensitively.
	ReservedPrefixes []string
}

// Naming presets.
var (
	AWSNaming    = NamingRules{MaxLength: 200, ReservedPrefixes: []string{"aws-"}}
	GoogleNaming = NamingRules{MaxLength: 256}
)

var forbiddenPairs = []string{"--", "__", "..", "-_", "_-", "-.", "._", "_.", ".-"}

// Validate returns a BAD_REQUEST error describing the first rule id breaks.
func (n NamingRules) Validate(id string) error {
	if reason := n.check(id); reason != "" {
		return errors.BadRequest(id, "Invalid request ID: "+reason)
	}
	return nil
}

func (n NamingRules) check(id string) string {
	if id == "" {
		return "Request ID cannot be empty"
	}
	if n.MaxLength > 0 && len(id) > n.MaxLength {
		return fmt.Sprintf("Request ID too long (max %d characters)", n.MaxLength)
	}
	for _, c := range id {
		if !isNameChar(c) {
			return "Request ID contains invalid characters. Only alphanumeric characters, hyphens (-), underscores (_), and dots (.) are allowed"
		}
	}
	lower := strings.ToLower(id)
	for _, prefix := range n.ReservedPrefixes {
		if strings.HasPrefix(lower, strings.ToLower(prefix)) {
			return fmt.Sprintf("Request ID cannot start with '%s' (reserved prefix)", prefix)
		}
	}
	if !isAlphanumeric(rune(id[0])) {
		return "Request ID must start with an alphanumeric character"
	}
	if strings.ContainsAny(id[len(id)-1:], "-_.") {
		return "Request ID cannot end with hyphens, underscores, or dots"
	}
	for _, pair := range forbiddenPairs {
		if strings.Contains(id, pair) {
			return "Request ID cannot contain consecutive special characters"
		}
	}
	return ""
}

func isAlphanumeric(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isNameChar(c rune) bool {
	return isAlphanumeric(c) || c == '-' || c == '_' || c == '.'
}
