package query

import (
	"context"
	"strings"

	"github.com/conduit-lang/dictquery/internal/access"
	"github.com/conduit-lang/dictquery/internal/dictionary"
	"github.com/conduit-lang/dictquery/internal/executor"
	"github.com/conduit-lang/dictquery/internal/expression"
	"github.com/conduit-lang/dictquery/internal/fault"
	"github.com/conduit-lang/dictquery/internal/pagination"
)

// Row is one decoded result row keyed by column name or display alias
type Row = executor.Row

// ListRequest describes one page of a container listing
type ListRequest struct {
	ContainerID string
	Context     expression.Snapshot
	Filters     []Criterion
	SearchValue string
	Sort        []SortField
	ScopeID     string
	PageToken   string
	PageSize    int32
	Access      access.Fn
}

// ListResult is one page of rows with the unpaged total
type ListResult struct {
	Rows          []Row  `json:"rows"`
	TotalCount    int64  `json:"totalCount"`
	NextPageToken string `json:"nextPageToken,omitempty"`
}

// Page selects the page of a statement to return
type Page struct {
	ScopeID string
	Token   string
	Size    int32
}

// Assembler builds and runs list queries over dictionary containers
type Assembler struct {
	repo  dictionary.Repository
	exec  executor.Executor
	pages *pagination.Manager
}

// NewAssembler creates a new query assembler. A nil page manager uses the default limits.
func NewAssembler(repo dictionary.Repository, exec executor.Executor, pages *pagination.Manager) *Assembler {
	if pages == nil {
		pages = pagination.NewManager(0, 0)
	}
	return &Assembler{repo: repo, exec: exec, pages: pages}
}

// Repository returns the metadata source of the assembler
func (a *Assembler) Repository() dictionary.Repository {
	return a.repo
}

const opList = "query.ListContainerRows"

// ListContainerRows returns one page of the rows of a container that match the
// scope predicate, the access predicate, the filters and the search value, with
// the total match count and the token of the next page.
func (a *Assembler) ListContainerRows(ctx context.Context, req ListRequest) (*ListResult, error) {
	if strings.TrimSpace(req.ContainerID) == "" {
		return nil, fault.New(fault.InvalidArgument, opList, "", "container id is required")
	}

	container, err := a.repo.Container(ctx, req.ContainerID)
	if err != nil {
		return nil, fault.Wrap(fault.NotFound, opList, req.ContainerID, err)
	}
	if container.Kind == dictionary.KindParameters {
		return nil, fault.New(fault.InvalidArgument, opList, container.ID, "parameter containers have no rows")
	}

	table, err := a.repo.Table(ctx, container.TableName)
	if err != nil {
		return nil, fault.Wrap(fault.NotFound, opList, container.ID, err)
	}
	alias := table.Name

	base, err := Projection(ctx, a.repo, table, alias)
	if err != nil {
		return nil, fault.Wrap(fault.NotFound, opList, container.ID, err)
	}
	stmt := NewStatement(base)

	if strings.TrimSpace(container.WhereClause) != "" {
		scope, err := expression.Bind(container.WhereClause, req.Context)
		if err != nil {
			return nil, fault.Wrap(fault.Unparseable, opList, container.ID, err)
		}
		stmt.Where(group(scope))
	}

	if err := ApplyAccess(stmt, req.Access, table.Name, alias); err != nil {
		return nil, fault.Wrap(fault.AccessDenied, opList, container.ID, err)
	}

	criteria, err := CriteriaPredicate(table, alias, req.Filters)
	if err != nil {
		return nil, fault.Wrap(fault.InvalidArgument, opList, container.ID, err)
	}
	stmt.Where(criteria)
	stmt.Where(SearchPredicate(table, alias, req.SearchValue))

	orderBy, err := containerOrder(container, table, alias, req)
	if err != nil {
		return nil, err
	}
	stmt.OrderBy(orderBy)

	return a.Execute(ctx, opList, container.ID, stmt, Page{
		ScopeID: req.ScopeID,
		Token:   req.PageToken,
		Size:    req.PageSize,
	})
}

// containerOrder picks the explicit sort, else the container's order-by template,
// else the key columns.
func containerOrder(container *dictionary.Container, table *dictionary.TableSchema, alias string, req ListRequest) (string, error) {
	if len(req.Sort) > 0 {
		orderBy, err := ExplicitOrder(table, alias, req.Sort)
		if err != nil {
			return "", fault.Wrap(fault.InvalidArgument, opList, container.ID, err)
		}
		return orderBy, nil
	}
	if strings.TrimSpace(container.OrderBy) != "" {
		orderBy, err := TemplateOrder(container.OrderBy, req.Context)
		if err != nil {
			return "", fault.Wrap(fault.Unparseable, opList, container.ID, err)
		}
		return orderBy, nil
	}
	return KeyOrder(table, alias), nil
}

// ApplyAccess ANDs the access predicate for table into stmt. A nil fn leaves the
// statement unrestricted.
func ApplyAccess(stmt *Statement, fn access.Fn, tableName, alias string) error {
	if fn == nil {
		return nil
	}
	pred, err := fn(tableName, alias)
	if err != nil {
		return err
	}
	if !pred.IsBlank() {
		stmt.Where(group(pred))
	}
	return nil
}

// Execute counts the filtered statement, then fetches the requested page of it.
// The count ignores paging, so it is the same for every page of one listing.
func (a *Assembler) Execute(ctx context.Context, op, ref string, stmt *Statement, page Page) (*ListResult, error) {
	format := a.exec.Dialect().PlaceholderFormat()

	pageNumber := a.pages.DecodePage(page.ScopeID, page.Token)
	size := a.pages.ClampPageSize(page.Size)
	offset := a.pages.Offset(pageNumber, size)

	countSQL, countArgs, err := Render(stmt.Count(), format)
	if err != nil {
		return nil, fault.Wrap(fault.InvalidArgument, op, ref, err)
	}
	total, err := a.exec.Count(ctx, countSQL, countArgs...)
	if err != nil {
		return nil, fault.Wrap(fault.ExecutionFailure, op, ref, err)
	}

	dataSQL, dataArgs, err := Render(stmt.Page(uint64(size), uint64(offset)), format)
	if err != nil {
		return nil, fault.Wrap(fault.InvalidArgument, op, ref, err)
	}
	rows, err := a.fetch(ctx, op, ref, dataSQL, dataArgs)
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Rows:          rows,
		TotalCount:    total,
		NextPageToken: a.pages.NextToken(page.ScopeID, pageNumber, total, offset, size),
	}, nil
}

// First runs the statement for at most one row. ok is false when nothing matched.
func (a *Assembler) First(ctx context.Context, op, ref string, stmt *Statement) (Row, bool, error) {
	sql, args, err := Render(stmt.Single(), a.exec.Dialect().PlaceholderFormat())
	if err != nil {
		return nil, false, fault.Wrap(fault.InvalidArgument, op, ref, err)
	}
	rows, err := a.fetch(ctx, op, ref, sql, args)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0], true, nil
}

func (a *Assembler) fetch(ctx context.Context, op, ref, sql string, args []interface{}) ([]Row, error) {
	cursor, err := a.exec.Query(ctx, sql, args...)
	if err != nil {
		return nil, fault.Wrap(fault.ExecutionFailure, op, ref, err)
	}
	rows, err := executor.ScanRows(cursor)
	if err != nil {
		classified := executor.Classify(ctx, op, err)
		return nil, fault.Wrap(fault.ExecutionFailure, op, ref, fault.WithSQL(classified, sql))
	}
	return rows, nil
}
