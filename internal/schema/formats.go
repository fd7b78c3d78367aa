package schema

import (
	"regexp"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
)

// shortIDPattern matches the compact alphanumeric ids the world server
// assigns to documents.
var shortIDPattern = regexp.MustCompile(`^[a-zA-Z0-9]{16}$`)

// documentIDFormatChecker implements gojsonschema.FormatChecker for
// document_id: either a server-assigned short id or a UUID.
type documentIDFormatChecker struct{}

func (c documentIDFormatChecker) IsFormat(input interface{}) bool {
	s, ok := input.(string)
	if !ok || s == "" {
		return false
	}
	if shortIDPattern.MatchString(s) {
		return true
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// RegisterCustomFormats registers the document_id format. Call once
// before building validators that reference it.
func RegisterCustomFormats() {
	gojsonschema.FormatCheckers.Add("document_id", documentIDFormatChecker{})
}
