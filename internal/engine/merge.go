package engine

import (
	"github.com/spec-kit/roadside-assist/internal/domain"
)

var confirmationKeys = func() map[string]struct{} {
	set := make(map[string]struct{}, len(domain.ConfirmationFactKeys))
	for _, k := range domain.ConfirmationFactKeys {
		set[k] = struct{}{}
	}
	return set
}()

// MergeFacts folds newly extracted values into the current fact mapping and
// returns the merged copy. Every non-nil incoming value overwrites the stored
// one, except that a confirmation boolean already true is never demoted back
// to false by a later misclassification. Nil incoming values never erase
// existing facts.
func MergeFacts(current domain.Facts, incoming map[string]any) domain.Facts {
	merged := current.Clone()
	if merged == nil {
		merged = domain.Facts{}
	}
	for key, value := range incoming {
		if value == nil {
			continue
		}
		if _, protected := confirmationKeys[key]; protected {
			cur := merged.Bool(key)
			in := domain.Facts{key: value}.Bool(key)
			if cur != nil && *cur && in != nil && !*in {
				continue
			}
		}
		merged[key] = value
	}
	return merged
}
