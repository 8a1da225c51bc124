package outreach

import (
	"fmt"
	"regexp"
	"time"

	"github.com/jwalitptl/outreach-engine/internal/model"
)

var placeholderPattern = regexp.MustCompile(`\{([a-z_]+)\}`)

// Render substitutes named placeholders with recipient fields. Placeholders
// with no matching field are left as literal text rather than dropped, so a
// typo is visible in the delivered message instead of silently vanishing.
func Render(template string, recipient *model.Recipient, now time.Time) string {
	fields := map[string]string{
		"name":    recipient.Name,
		"phone":   recipient.Phone,
		"project": recipient.Project,
		"site":    recipient.Project,
	}
	if recipient.SilentSince != nil {
		hours := int(now.Sub(*recipient.SilentSince).Hours())
		fields["silence_hours"] = fmt.Sprintf("%d", hours)
	}

	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := match[1 : len(match)-1]
		if value, ok := fields[key]; ok {
			return value
		}
		return match
	})
}
