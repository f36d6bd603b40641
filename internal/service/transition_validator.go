package service

import (
	"strings"

	"github.com/TronoSfera/Law-sub001/internal/domain"
	apperrors "github.com/TronoSfera/Law-sub001/pkg/util/errorutil"
)

// TransitionEvidence is what the request can show for a gated transition.
type TransitionEvidence struct {
	// DataKeys are extra field keys with a non-blank value.
	DataKeys []string
	// MimeTypes are the mime types of the request's attachments.
	MimeTypes []string
}

// ValidateTransition decides whether topic may move from -> to under rule.
// rule is nil when no row is configured for the triple.
func ValidateTransition(rule *domain.TopicStatusTransition, topic, from, to string, evidence TransitionEvidence) error {
	if from == to {
		return apperrors.NewValidationError("request is already in this status", map[string]any{"status": to})
	}
	if rule == nil || !rule.Enabled {
		return apperrors.NewInvalidTransition(topic, from, to)
	}

	keys := make(map[string]struct{}, len(evidence.DataKeys))
	for _, k := range evidence.DataKeys {
		keys[k] = struct{}{}
	}
	for _, required := range rule.RequiredDataKeys {
		required = strings.TrimSpace(required)
		if required == "" {
			continue
		}
		if _, ok := keys[required]; !ok {
			return apperrors.NewMissingRequirement("data_key", required)
		}
	}

	for _, required := range rule.RequiredMimeTypes {
		required = strings.TrimSpace(required)
		if required == "" {
			continue
		}
		if !anyMimeMatches(required, evidence.MimeTypes) {
			return apperrors.NewMissingRequirement("mime_type", required)
		}
	}
	return nil
}

func anyMimeMatches(pattern string, actual []string) bool {
	for _, mime := range actual {
		if mimeMatches(pattern, mime) {
			return true
		}
	}
	return false
}

// mimeMatches compares case-insensitively, ignores parameters and accepts a
// "type/*" pattern.
func mimeMatches(pattern, actual string) bool {
	pattern = normalizeMime(pattern)
	actual = normalizeMime(actual)
	if pattern == "" || actual == "" {
		return false
	}
	if strings.HasSuffix(pattern, "/*") {
		return strings.HasPrefix(actual, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == actual
}

func normalizeMime(m string) string {
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = m[:i]
	}
	return strings.ToLower(strings.TrimSpace(m))
}
