package dictionary

import (
	"errors"
	"fmt"
	"strings"
)

// IsValidIdentifier checks if a string is a safe SQL identifier
// (letters, digits and underscore, not starting with a digit)
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, char := range s {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9' && i > 0) ||
			char == '_') {
			return false
		}
	}
	return true
}

func validateTable(t *TableSchema) error {
	if !IsValidIdentifier(t.Name) {
		return fmt.Errorf("invalid table name: %q", t.Name)
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %s has no columns", t.Name)
	}

	seen := make(map[string]bool, len(t.Columns))
	for _, col := range t.Columns {
		if !IsValidIdentifier(col.Name) {
			return fmt.Errorf("table %s: invalid column name: %q", t.Name, col.Name)
		}
		lower := strings.ToLower(col.Name)
		if seen[lower] {
			return fmt.Errorf("table %s: duplicate column %s", t.Name, col.Name)
		}
		seen[lower] = true
		if col.DisplayType.IsLookup() && col.ReferenceID == "" {
			return fmt.Errorf("table %s: lookup column %s has no reference", t.Name, col.Name)
		}
	}
	return nil
}

// ValidateAll checks cross references between all registered metadata
func (r *Registry) ValidateAll() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error

	for _, t := range r.tables {
		for _, col := range t.Columns {
			if col.ReferenceID != "" {
				if _, ok := r.references[col.ReferenceID]; !ok {
					errs = append(errs, fmt.Errorf("column %s.%s: unknown reference %s", t.Name, col.Name, col.ReferenceID))
				}
			}
			if col.ValidationRuleID != "" {
				if _, ok := r.rules[col.ValidationRuleID]; !ok {
					errs = append(errs, fmt.Errorf("column %s.%s: unknown validation rule %s", t.Name, col.Name, col.ValidationRuleID))
				}
			}
		}
	}

	for _, c := range r.containers {
		errs = append(errs, r.validateContainer(c)...)
	}

	for _, w := range r.windows {
		for _, id := range w.ContainerIDs {
			if _, ok := r.containers[id]; !ok {
				errs = append(errs, fmt.Errorf("window %s: unknown container %s", w.ID, id))
			}
		}
	}

	for _, d := range r.references {
		if err := validateReference(d); err != nil {
			errs = append(errs, err)
		}
		if table := d.BackingTable(); table != "" && d.Kind != RefList && d.Kind != RefPlain {
			if _, ok := r.tables[table]; !ok {
				errs = append(errs, fmt.Errorf("reference %s: unknown table %s", d.ID, table))
			}
		}
		if d.ValidationRuleID != "" {
			if _, ok := r.rules[d.ValidationRuleID]; !ok {
				errs = append(errs, fmt.Errorf("reference %s: unknown validation rule %s", d.ID, d.ValidationRuleID))
			}
		}
	}

	return errors.Join(errs...)
}

func (r *Registry) validateContainer(c *Container) []error {
	var errs []error

	t, ok := r.tables[c.TableName]
	if !ok {
		return []error{fmt.Errorf("container %s: unknown table %s", c.ID, c.TableName)}
	}
	if c.ParentID != "" {
		if _, ok := r.containers[c.ParentID]; !ok {
			errs = append(errs, fmt.Errorf("container %s: unknown parent container %s", c.ID, c.ParentID))
		}
	}
	for _, f := range c.Fields {
		if _, ok := t.Column(f.ColumnName); !ok {
			errs = append(errs, fmt.Errorf("container %s: field %s references unknown column %s.%s", c.ID, f.ID, t.Name, f.ColumnName))
		}
		if f.ValidationRuleID != "" {
			if _, ok := r.rules[f.ValidationRuleID]; !ok {
				errs = append(errs, fmt.Errorf("container %s: field %s: unknown validation rule %s", c.ID, f.ID, f.ValidationRuleID))
			}
		}
	}
	return errs
}

func validateReference(d *ReferenceDescriptor) error {
	switch d.Kind {
	case RefPlain:
		return nil
	case RefList:
		if d.ReferenceValueID == "" {
			return fmt.Errorf("reference %s: list reference requires reference_value", d.ID)
		}
	case RefTable, RefSearch:
		if d.TableName == "" || d.KeyColumn == "" {
			return fmt.Errorf("reference %s: %s reference requires table and key_column", d.ID, d.Kind)
		}
	case RefTableDirect:
		if d.TableName == "" && !strings.HasSuffix(d.ID, "_ID") {
			return fmt.Errorf("reference %s: table_direct reference requires table or an id of the form <Table>_ID", d.ID)
		}
	}
	for _, ident := range []string{d.BackingTable(), d.BackingKey(), d.ValueColumn, d.DisplayColumn} {
		if ident != "" && !IsValidIdentifier(ident) {
			return fmt.Errorf("reference %s: invalid identifier %q", d.ID, ident)
		}
	}
	return nil
}
