// Package encoding provides shared text encoding and escaping utilities.
package encoding

import "strings"

// EscapeXMLText escapes the basic XML entities for text content.
// Carriage returns become character references so they survive reparsing;
// newlines and quotes are left alone.
func EscapeXMLText(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\r", "&#xD;")
	return s
}

// EscapeXMLAttr escapes text for use in double-quoted XML attributes.
// Tabs and newlines are written as character references because attribute
// value normalization would otherwise turn them into spaces.
func EscapeXMLAttr(s string) string {
	s = EscapeXMLText(s)
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "\t", "&#x9;")
	s = strings.ReplaceAll(s, "\n", "&#xA;")
	return s
}
