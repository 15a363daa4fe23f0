package utils

import "strings"

// MaskEmail 日志里只保留首字母和域名：t***@example.com
func MaskEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return MaskTail(email, 0)
	}
	return email[:1] + "***" + email[at:]
}

// MaskPhone 只保留末 4 位数字
func MaskPhone(phone string) string {
	var digits []byte
	for i := 0; i < len(phone); i++ {
		if phone[i] >= '0' && phone[i] <= '9' {
			digits = append(digits, phone[i])
		}
	}
	return MaskTail(string(digits), 4)
}

// MaskTail 保留末 keep 个字符，其余替换为 *
func MaskTail(s string, keep int) string {
	if s == "" {
		return ""
	}
	r := []rune(s)
	if keep >= len(r) {
		keep = 0
	}
	return strings.Repeat("*", len(r)-keep) + string(r[len(r)-keep:])
}
