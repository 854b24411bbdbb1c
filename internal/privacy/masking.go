package privacy

import (
	"strings"
)

// MaskPhoneNumber masks a phone number showing only the last 4 digits
// Example: "+1234567890" -> "+******7890"
func MaskPhoneNumber(phone string) string {
	if phone == "" {
		return ""
	}

	if strings.HasPrefix(phone, "+") {
		if len(phone) == 1 {
			return phone
		}
		if len(phone) <= 5 {
			return "+" + strings.Repeat("*", len(phone)-1)
		}
		return "+" + strings.Repeat("*", len(phone)-5) + phone[len(phone)-4:]
	}

	if len(phone) <= 4 {
		return strings.Repeat("*", len(phone))
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}

// MaskMessageID masks a platform message id while preserving the tail for
// log correlation. Cloud API ids look like "wamid.<base64>".
func MaskMessageID(messageID string) string {
	if messageID == "" {
		return ""
	}

	if rest, ok := strings.CutPrefix(messageID, "wamid."); ok {
		return "wamid." + maskString(rest, 6)
	}

	return maskString(messageID, 6)
}

// MaskTenantID masks a tenant identifier
// Example: "tenant-123456" -> "*********3456"
func MaskTenantID(tenantID string) string {
	return maskString(tenantID, 4)
}

// MaskToken fully redacts a credential, keeping only its length class for
// debugging. Tokens must never reach logs even partially.
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	return "[redacted]"
}

// maskString masks a string showing only the last n characters
func maskString(s string, keepLast int) string {
	if s == "" {
		return ""
	}

	if len(s) <= keepLast {
		return strings.Repeat("*", len(s))
	}

	return strings.Repeat("*", len(s)-keepLast) + s[len(s)-keepLast:]
}

// MaskSensitiveFields applies appropriate masking to common logging fields
func MaskSensitiveFields(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return nil
	}

	masked := make(map[string]interface{})
	for k, v := range fields {
		switch k {
		case "phone", "phone_number", "from", "to", "display_phone_number":
			if s, ok := v.(string); ok {
				masked[k] = MaskPhoneNumber(s)
			} else {
				masked[k] = v
			}
		case "message_id", "platform_message_id":
			if s, ok := v.(string); ok {
				masked[k] = MaskMessageID(s)
			} else {
				masked[k] = v
			}
		case "tenant_id":
			if s, ok := v.(string); ok {
				masked[k] = MaskTenantID(s)
			} else {
				masked[k] = v
			}
		case "access_token", "token", "code":
			if s, ok := v.(string); ok {
				masked[k] = MaskToken(s)
			} else {
				masked[k] = v
			}
		default:
			masked[k] = v
		}
	}

	return masked
}
