package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/dictquery/internal/access"
	"github.com/conduit-lang/dictquery/internal/expression"
	"github.com/conduit-lang/dictquery/internal/query"
	"github.com/conduit-lang/dictquery/internal/web/params"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

// filterFlagPattern matches Column=value and Column[operator]=value
var filterFlagPattern = regexp.MustCompile(`^([^\[\]=]+)(?:\[([^\]]+)\])?=(.*)$`)

// listFlags are the paging, filtering and context flags of rows and lookup
type listFlags struct {
	filters   []string
	search    string
	sort      string
	scope     string
	pageToken string
	pageSize  int32
	context   []string
	output    string

	principalID string
	roles       []string
	attributes  []string
}

func addListFlags(cmd *cobra.Command, lf *listFlags) {
	f := cmd.Flags()
	f.StringArrayVarP(&lf.filters, "filter", "f", nil, "filter as Column=value or Column[operator]=value (repeatable)")
	f.StringVarP(&lf.search, "search", "q", "", "case-insensitive search value")
	f.StringVar(&lf.sort, "sort", "", "sort columns, e.g. Name,-Created")
	f.StringVar(&lf.scope, "scope", "", "paging scope id; a new one is generated when empty")
	f.StringVar(&lf.pageToken, "page-token", "", "token of the page to fetch")
	f.Int32Var(&lf.pageSize, "page-size", 0, "rows per page (0 uses the configured default)")
	addContextFlags(cmd, lf)
}

func addContextFlags(cmd *cobra.Command, lf *listFlags) {
	f := cmd.Flags()
	f.StringArrayVar(&lf.context, "ctx", nil, "context value as Name=value; #Name for globals (repeatable)")
	f.StringVarP(&lf.output, "output", "o", outputTable, "output format: table or json")
	f.StringVar(&lf.principalID, "principal", "", "principal id the query runs as")
	f.StringSliceVar(&lf.roles, "role", nil, "principal roles")
	f.StringArrayVar(&lf.attributes, "attr", nil, "principal attribute as Name=value (repeatable)")
}

func (lf *listFlags) validateOutput() error {
	switch lf.output {
	case outputTable, outputJSON:
		return nil
	default:
		return fmt.Errorf("unknown output format %q: use table or json", lf.output)
	}
}

// criteria parses the --filter flags
func (lf *listFlags) criteria() ([]query.Criterion, error) {
	out := make([]query.Criterion, 0, len(lf.filters))
	for _, raw := range lf.filters {
		m := filterFlagPattern.FindStringSubmatch(raw)
		if m == nil {
			return nil, fmt.Errorf("invalid filter %q: use Column=value or Column[operator]=value", raw)
		}
		c, err := params.ParseCriterion(strings.TrimSpace(m[1]), m[2], m[3])
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// snapshot parses the --ctx flags
func (lf *listFlags) snapshot() (expression.Snapshot, error) {
	vars, err := pairs("ctx", lf.context)
	if err != nil {
		return expression.Snapshot{}, err
	}
	return expression.SnapshotFromStrings(vars), nil
}

// principal builds the caller from --principal, --role and --attr
func (lf *listFlags) principal() (access.Principal, error) {
	attrs, err := pairs("attr", lf.attributes)
	if err != nil {
		return access.Principal{}, err
	}
	p := access.Principal{ID: lf.principalID, Roles: lf.roles}
	if len(attrs) > 0 {
		p.Attributes = make(map[string]interface{}, len(attrs))
		for k, v := range attrs {
			p.Attributes[k] = v
		}
	}
	return p, nil
}

// scopeID returns the paging scope, generating one when none was given
func (lf *listFlags) scopeID() string {
	if lf.scope == "" {
		lf.scope = uuid.New().String()
	}
	return lf.scope
}

func pairs(flag string, values []string) (map[string]string, error) {
	out := make(map[string]string, len(values))
	for _, raw := range values {
		name, value, ok := strings.Cut(raw, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --%s %q: use Name=value", flag, raw)
		}
		out[name] = value
	}
	return out, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatCell renders a scanned column value for table output
func formatCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}
