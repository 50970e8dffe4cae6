// Package dictionary defines the application dictionary: table schemas, containers,
// windows, reference descriptors and validation rules. Dictionary metadata is read-only
// once loaded and is safe to share between goroutines.
package dictionary

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// DisplayType is the reference/display-type tag of a column
type DisplayType int

const (
	DisplayString DisplayType = iota
	DisplayText
	DisplayInteger
	DisplayNumber
	DisplayAmount
	DisplayYesNo
	DisplayDate
	DisplayDateTime
	DisplayID
	DisplayList
	DisplayTable
	DisplayTableDirect
	DisplaySearch
)

var displayTypeNames = map[DisplayType]string{
	DisplayString:      "string",
	DisplayText:        "text",
	DisplayInteger:     "integer",
	DisplayNumber:      "number",
	DisplayAmount:      "amount",
	DisplayYesNo:       "yes_no",
	DisplayDate:        "date",
	DisplayDateTime:    "datetime",
	DisplayID:          "id",
	DisplayList:        "list",
	DisplayTable:       "table",
	DisplayTableDirect: "table_direct",
	DisplaySearch:      "search",
}

// String returns the string representation of the display type
func (d DisplayType) String() string {
	if name, ok := displayTypeNames[d]; ok {
		return name
	}
	return "unknown"
}

// ParseDisplayType converts a string to a DisplayType
func ParseDisplayType(s string) (DisplayType, error) {
	for t, name := range displayTypeNames {
		if strings.EqualFold(name, s) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown display type: %s", s)
}

// UnmarshalYAML implements yaml.Unmarshaler
func (d *DisplayType) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseDisplayType(value.Value)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// IsLookup reports whether values of this type are resolved through a reference
func (d DisplayType) IsLookup() bool {
	switch d {
	case DisplayList, DisplayTable, DisplayTableDirect, DisplaySearch:
		return true
	default:
		return false
	}
}

// IsText reports whether values of this type are character data
func (d DisplayType) IsText() bool {
	return d == DisplayString || d == DisplayText
}

// Column is a column of a table schema
type Column struct {
	Name             string      `yaml:"name"`
	DisplayType      DisplayType `yaml:"type"`
	ReferenceID      string      `yaml:"reference"`
	ReferenceValueID string      `yaml:"reference_value"`
	ValidationRuleID string      `yaml:"validation_rule"`

	IsKey        bool `yaml:"key"`
	IsParent     bool `yaml:"parent"`
	IsSearchable bool `yaml:"searchable"`
	IsTranslated bool `yaml:"translated"`
	IsIdentifier bool `yaml:"identifier"`

	DisplayLogic   string `yaml:"display_logic"`
	ReadOnlyLogic  string `yaml:"read_only_logic"`
	MandatoryLogic string `yaml:"mandatory_logic"`
	DefaultValue   string `yaml:"default_value"`
}

// TableSchema is a table with its ordered columns
type TableSchema struct {
	Name    string    `yaml:"name"`
	Columns []*Column `yaml:"columns"`
}

// Column finds a column by name. Lookup is case-insensitive, as SQL identifiers are.
func (t *TableSchema) Column(name string) (*Column, bool) {
	for _, col := range t.Columns {
		if col.Name == name {
			return col, true
		}
	}
	for _, col := range t.Columns {
		if strings.EqualFold(col.Name, name) {
			return col, true
		}
	}
	return nil, false
}

// KeyColumns returns the key columns in definition order
func (t *TableSchema) KeyColumns() []*Column {
	return t.filter(func(c *Column) bool { return c.IsKey })
}

// ParentColumns returns the parent-link columns in definition order
func (t *TableSchema) ParentColumns() []*Column {
	return t.filter(func(c *Column) bool { return c.IsParent })
}

// SearchableColumns returns the columns designated for search-value matching.
// Tables without designated columns fall back to their text columns.
func (t *TableSchema) SearchableColumns() []*Column {
	cols := t.filter(func(c *Column) bool { return c.IsSearchable })
	if len(cols) > 0 {
		return cols
	}
	return t.filter(func(c *Column) bool { return c.DisplayType.IsText() })
}

// IdentifierColumns returns the columns forming the record display text
func (t *TableSchema) IdentifierColumns() []*Column {
	return t.filter(func(c *Column) bool { return c.IsIdentifier })
}

func (t *TableSchema) filter(keep func(*Column) bool) []*Column {
	result := make([]*Column, 0)
	for _, col := range t.Columns {
		if keep(col) {
			result = append(result, col)
		}
	}
	return result
}

// ContainerKind distinguishes tabs, browsers and parameter groups
type ContainerKind int

const (
	// KindTab is a hierarchical container that may have a parent container
	KindTab ContainerKind = iota
	// KindBrowser is a flat, view-backed container
	KindBrowser
	// KindParameters is a parameter group without persisted rows
	KindParameters
)

// String returns the string representation of the container kind
func (k ContainerKind) String() string {
	switch k {
	case KindTab:
		return "tab"
	case KindBrowser:
		return "browser"
	case KindParameters:
		return "parameters"
	default:
		return "unknown"
	}
}

// UnmarshalYAML implements yaml.Unmarshaler
func (k *ContainerKind) UnmarshalYAML(value *yaml.Node) error {
	switch strings.ToLower(value.Value) {
	case "", "tab":
		*k = KindTab
	case "browser":
		*k = KindBrowser
	case "parameters":
		*k = KindParameters
	default:
		return fmt.Errorf("unknown container kind: %s", value.Value)
	}
	return nil
}

// Field binds a column into a container. Non-blank logic on the field overrides the column's.
type Field struct {
	ID               string `yaml:"id"`
	Name             string `yaml:"name"`
	ColumnName       string `yaml:"column"`
	Inactive         bool   `yaml:"inactive"`
	DisplayLogic     string `yaml:"display_logic"`
	ReadOnlyLogic    string `yaml:"read_only_logic"`
	MandatoryLogic   string `yaml:"mandatory_logic"`
	DefaultValue     string `yaml:"default_value"`
	ValidationRuleID string `yaml:"validation_rule"`
}

// IsActive reports whether the field takes part in the container
func (f *Field) IsActive() bool {
	return !f.Inactive
}

// Logic holds the effective logic expressions of a field
type Logic struct {
	DisplayLogic     string
	DefaultValue     string
	ReadOnlyLogic    string
	MandatoryLogic   string
	ValidationRuleID string
}

// EffectiveLogic merges field overrides over the column definition
func (f *Field) EffectiveLogic(col *Column) Logic {
	logic := Logic{
		DisplayLogic:     f.DisplayLogic,
		DefaultValue:     f.DefaultValue,
		ReadOnlyLogic:    f.ReadOnlyLogic,
		MandatoryLogic:   f.MandatoryLogic,
		ValidationRuleID: f.ValidationRuleID,
	}
	if col == nil {
		return logic
	}
	logic.DisplayLogic = firstNonBlank(logic.DisplayLogic, col.DisplayLogic)
	logic.DefaultValue = firstNonBlank(logic.DefaultValue, col.DefaultValue)
	logic.ReadOnlyLogic = firstNonBlank(logic.ReadOnlyLogic, col.ReadOnlyLogic)
	logic.MandatoryLogic = firstNonBlank(logic.MandatoryLogic, col.MandatoryLogic)
	logic.ValidationRuleID = firstNonBlank(logic.ValidationRuleID, col.ValidationRuleID)
	return logic
}

// Container is an ordered set of fields bound to one table schema
type Container struct {
	ID            string        `yaml:"id"`
	Name          string        `yaml:"name"`
	Kind          ContainerKind `yaml:"kind"`
	TableName     string        `yaml:"table"`
	WindowID      string        `yaml:"window"`
	ParentID      string        `yaml:"parent"`
	IsTranslation bool          `yaml:"translation"`
	WhereClause   string        `yaml:"where"`
	OrderBy       string        `yaml:"order_by"`
	Fields        []*Field      `yaml:"fields"`
}

// Window groups containers in display order
type Window struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	ContainerIDs []string `yaml:"containers"`
}

// ValidationRule is a stored predicate further restricting lookup candidates
type ValidationRule struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Code string `yaml:"code"`
}

// ReferenceKind is the closed set of lookup strategies
type ReferenceKind int

const (
	RefPlain ReferenceKind = iota
	RefList
	RefTable
	RefTableDirect
	RefSearch
)

// String returns the string representation of the reference kind
func (k ReferenceKind) String() string {
	switch k {
	case RefList:
		return "list"
	case RefTable:
		return "table"
	case RefTableDirect:
		return "table_direct"
	case RefSearch:
		return "search"
	default:
		return "plain"
	}
}

// UnmarshalYAML implements yaml.Unmarshaler
func (k *ReferenceKind) UnmarshalYAML(value *yaml.Node) error {
	switch strings.ToLower(value.Value) {
	case "", "plain":
		*k = RefPlain
	case "list":
		*k = RefList
	case "table":
		*k = RefTable
	case "table_direct":
		*k = RefTableDirect
	case "search":
		*k = RefSearch
	default:
		return fmt.Errorf("unknown reference kind: %s", value.Value)
	}
	return nil
}

// ReferenceDescriptor describes how a column's value is looked up and displayed
type ReferenceDescriptor struct {
	ID               string        `yaml:"id"`
	Name             string        `yaml:"name"`
	Kind             ReferenceKind `yaml:"kind"`
	ReferenceValueID string        `yaml:"reference_value"`
	ValidationRuleID string        `yaml:"validation_rule"`

	TableName     string `yaml:"table"`
	KeyColumn     string `yaml:"key_column"`
	ValueColumn   string `yaml:"value_column"`
	DisplayColumn string `yaml:"display_column"`
	WhereClause   string `yaml:"where"`
	OrderBy       string `yaml:"order_by"`

	// DirectQuery and ListQuery are optional SELECT ... FROM templates without WHERE.
	// When blank the reference kind derives them from the structured fields above.
	DirectQuery string `yaml:"direct_query"`
	ListQuery   string `yaml:"list_query"`
}

// BackingTable returns the table a table-backed reference reads. Table-direct
// references named <Table>_ID may leave the table implicit.
func (d *ReferenceDescriptor) BackingTable() string {
	if d.TableName == "" && d.Kind == RefTableDirect {
		return strings.TrimSuffix(d.ID, "_ID")
	}
	return d.TableName
}

// BackingKey returns the key column of the backing table. Table-direct references
// default it to <Table>_ID.
func (d *ReferenceDescriptor) BackingKey() string {
	if d.KeyColumn == "" && d.Kind == RefTableDirect {
		return d.BackingTable() + "_ID"
	}
	return d.KeyColumn
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
