package fieldcrypt

import (
	"fmt"
	"regexp"
)

// Field names one encrypted column: the table it lives in, the primary key
// column used for row-addressed updates, and whether the plaintext is a
// JSON document rather than a scalar.
type Field struct {
	Table    string
	PKColumn string
	Column   string
	IsJSON   bool
}

// Registry is the static allow-list of encrypted columns. Rotation and any
// other maintenance tooling iterate it in declaration order.
type Registry []Field

// identPattern matches the only identifiers the registry may carry. SQL
// statements interpolate these names directly, so the charset is strict.
var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Validate rejects a registry containing identifiers outside the allowed
// charset or duplicate (table, column) entries.
func (r Registry) Validate() error {
	seen := make(map[string]struct{}, len(r))
	for _, f := range r {
		for _, ident := range []string{f.Table, f.PKColumn, f.Column} {
			if !identPattern.MatchString(ident) {
				return fmt.Errorf("registry identifier %q is not a valid SQL name", ident)
			}
		}
		key := f.Table + "." + f.Column
		if _, dup := seen[key]; dup {
			return fmt.Errorf("registry lists %s twice", key)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// DefaultRegistry enumerates every Fernet-encrypted PII column in the
// application schema. New encrypted columns must be added here or rotation
// will silently miss them.
var DefaultRegistry = Registry{
	{Table: "core_userprofile", PKColumn: "id", Column: "va_file_number_encrypted"},
	{Table: "core_userprofile", PKColumn: "id", Column: "date_of_birth_encrypted"},
	{Table: "core_userprofile", PKColumn: "id", Column: "ssn_last_four_encrypted"},
	{Table: "claims_claim", PKColumn: "id", Column: "contact_details_encrypted", IsJSON: true},
	{Table: "documents_document", PKColumn: "id", Column: "analysis_summary_encrypted"},
}
