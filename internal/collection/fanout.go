package collection

// dependentTypes maps a document type to the collection types whose
// documents reference it and therefore need a directory refresh when it
// mutates. Consulted by the dispatcher instead of scanning collections.
var dependentTypes = map[string][]string{
	"Folder": {"Item", "Actor", "JournalEntry", "Scene", "RollTable"},
	"Actor":  {"Item"},
}

// DependentTypes returns the collection types that show documents of the
// given type, or nil when the type has no dependents.
func DependentTypes(documentType string) []string {
	return dependentTypes[documentType]
}
