package sms

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// NormalizePhone prefixes "+" when missing and renders the number as E.164 when
// it parses. Numbers that do not parse are returned with the prefix only.
func NormalizePhone(raw, defaultRegion string) string {
	phone := strings.TrimSpace(raw)
	if phone == "" {
		return ""
	}
	if !strings.HasPrefix(phone, "+") {
		phone = "+" + phone
	}

	num, err := phonenumbers.Parse(phone, strings.ToUpper(defaultRegion))
	if err != nil || !phonenumbers.IsPossibleNumber(num) {
		return phone
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}
