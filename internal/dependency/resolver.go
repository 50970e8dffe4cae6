// Package dependency computes which fields must be re-evaluated when a column value
// changes, by scanning the logic expressions attached to every field in a scope.
package dependency

import (
	"context"
	"strings"

	"github.com/conduit-lang/dictquery/internal/dictionary"
	"github.com/conduit-lang/dictquery/internal/expression"
	"github.com/conduit-lang/dictquery/internal/fault"
)

// DependentField is an edge from the source column to a field that depends on it
type DependentField struct {
	ContainerID   string `json:"containerId"`
	ContainerName string `json:"containerName"`
	FieldID       string `json:"fieldId"`
	ColumnName    string `json:"columnName"`
}

// ScopeRef names the fields searched for dependents: either a single container
// or every container of a window. Exactly one of the ids is set.
type ScopeRef struct {
	ContainerID string
	WindowID    string
}

// ContainerScope returns a scope over one container
func ContainerScope(id string) ScopeRef {
	return ScopeRef{ContainerID: id}
}

// WindowScope returns a scope over all containers of a window
func WindowScope(id string) ScopeRef {
	return ScopeRef{WindowID: id}
}

// String returns a stable form of the scope, used in cache keys and errors
func (s ScopeRef) String() string {
	if s.WindowID != "" {
		return "window:" + s.WindowID
	}
	return "container:" + s.ContainerID
}

func (s ScopeRef) validate() error {
	hasContainer := strings.TrimSpace(s.ContainerID) != ""
	hasWindow := strings.TrimSpace(s.WindowID) != ""
	if hasContainer == hasWindow {
		return fault.New(fault.InvalidArgument, opResolve, s.String(), "scope must name exactly one container or window")
	}
	return nil
}

const opResolve = "dependency.ResolveDependents"

// Resolver finds dependent fields using dictionary metadata
type Resolver struct {
	repo dictionary.Repository
}

// NewResolver creates a new dependency resolver
func NewResolver(repo dictionary.Repository) *Resolver {
	return &Resolver{repo: repo}
}

// ResolveDependents returns, in definition order, every active field of scope whose
// logic references sourceColumn. The source column's own field is never included.
// Window scopes skip translation containers.
func (r *Resolver) ResolveDependents(ctx context.Context, sourceColumn string, scope ScopeRef) ([]DependentField, error) {
	if strings.TrimSpace(sourceColumn) == "" {
		return nil, fault.New(fault.InvalidArgument, opResolve, scope.String(), "source column is required")
	}
	if err := scope.validate(); err != nil {
		return nil, err
	}

	containerIDs := []string{scope.ContainerID}
	if scope.WindowID != "" {
		window, err := r.repo.Window(ctx, scope.WindowID)
		if err != nil {
			return nil, fault.Wrap(fault.NotFound, opResolve, scope.WindowID, err)
		}
		containerIDs = window.ContainerIDs
	}

	dependents := make([]DependentField, 0)
	for _, id := range containerIDs {
		container, err := r.repo.Container(ctx, id)
		if err != nil {
			return nil, fault.Wrap(fault.NotFound, opResolve, id, err)
		}
		if scope.WindowID != "" && container.IsTranslation {
			continue
		}

		found, err := r.scanContainer(ctx, container, sourceColumn)
		if err != nil {
			return nil, err
		}
		dependents = append(dependents, found...)
	}
	return dependents, nil
}

func (r *Resolver) scanContainer(ctx context.Context, container *dictionary.Container, sourceColumn string) ([]DependentField, error) {
	table, err := r.repo.Table(ctx, container.TableName)
	if err != nil {
		return nil, fault.Wrap(fault.NotFound, opResolve, container.ID, err)
	}

	var found []DependentField
	for _, field := range container.Fields {
		if !field.IsActive() || field.ColumnName == sourceColumn {
			continue
		}

		col, _ := table.Column(field.ColumnName)
		logic := field.EffectiveLogic(col)

		ruleCode, err := r.ruleCode(ctx, logic.ValidationRuleID)
		if err != nil {
			return nil, err
		}

		if expression.ReferencesAny(sourceColumn,
			logic.DisplayLogic,
			logic.DefaultValue,
			logic.ReadOnlyLogic,
			logic.MandatoryLogic,
			ruleCode,
		) {
			found = append(found, DependentField{
				ContainerID:   container.ID,
				ContainerName: container.Name,
				FieldID:       field.ID,
				ColumnName:    field.ColumnName,
			})
		}
	}
	return found, nil
}

// ruleCode returns the stored code of a validation rule. A dangling rule id
// contributes nothing rather than failing the whole scan.
func (r *Resolver) ruleCode(ctx context.Context, ruleID string) (string, error) {
	if ruleID == "" {
		return "", nil
	}
	rule, err := r.repo.ValidationRule(ctx, ruleID)
	if err != nil {
		if fault.IsNotFound(err) {
			return "", nil
		}
		return "", fault.Wrap(fault.ExecutionFailure, opResolve, ruleID, err)
	}
	return rule.Code, nil
}
