// Package security masks PII before it reaches structured log output,
// following the teacher's security.MaskEmail/MaskPhone/MaskName call
// pattern (log.Printf("... %s ...", security.MaskEmail(addr))) — see
// DESIGN.md's dropped-dependency note for why this is a from-scratch
// reimplementation of that helper's call shape rather than an import of the
// teacher's own module.
package security

import "strings"

// MaskEmail keeps the first character of the local part and the full
// domain, replacing the rest of the local part with asterisks
// ("j***@example.com").
func MaskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return "***"
	}
	local, domain := email[:at], email[at:]
	if len(local) == 1 {
		return local + "***" + domain
	}
	return local[:1] + strings.Repeat("*", len(local)-1) + domain
}

// MaskPhone keeps the last 4 digits, replacing everything before them with
// asterisks.
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return strings.Repeat("*", len(phone))
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}

// MaskName keeps the first character of each space-separated part,
// replacing the rest with asterisks ("J*** D***").
func MaskName(name string) string {
	parts := strings.Fields(name)
	for i, p := range parts {
		if len(p) <= 1 {
			continue
		}
		parts[i] = p[:1] + strings.Repeat("*", len(p)-1)
	}
	return strings.Join(parts, " ")
}

// MaskID keeps the first 8 characters of an opaque identifier (a UUID or
// similar), replacing the rest with asterisks — long enough to correlate
// log lines by eye, short enough not to leak the full identifier.
func MaskID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + strings.Repeat("*", len(id)-8)
}

// MaskIP replaces the last octet/group of an IPv4 or IPv6 address with
// asterisks, keeping the network portion for log correlation.
func MaskIP(ip string) string {
	if i := strings.LastIndex(ip, "."); i >= 0 {
		return ip[:i+1] + "***"
	}
	if i := strings.LastIndex(ip, ":"); i >= 0 {
		return ip[:i+1] + "***"
	}
	return "***"
}
