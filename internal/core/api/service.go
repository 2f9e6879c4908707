// Package api implements the gRPC filter service.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/spelfilter/internal/core/auth"
	"github.com/solatis/spelfilter/internal/core/config"
	"github.com/solatis/spelfilter/internal/filter"
	"github.com/solatis/spelfilter/internal/records"
	"github.com/solatis/spelfilter/internal/types"
)

// targetEmployee names the record type saved filters are validated against.
const targetEmployee = "Employee"

// Store is the storage the service needs. Implemented by *db.Store.
type Store interface {
	ListEmployees(ctx context.Context) ([]types.Employee, error)
	SaveFilter(ctx context.Context, owner, name, query, target string) (*types.SavedFilter, error)
	GetFilterByName(ctx context.Context, owner, name string) (*types.SavedFilter, error)
	ListFilters(ctx context.Context, owner string) ([]types.SavedFilter, error)
	DeleteFilter(ctx context.Context, owner, name string) error
}

// FilterService compiles filter queries against the employee record type
// and runs them over inline or stored records. Queries are compiled per
// request; saved filters hold query text only.
type FilterService struct {
	store  Store
	engine *filter.Engine[types.Employee]
	cfg    *config.FilterAPIConfig
	logger *slog.Logger
}

var _ FilterServiceServer = (*FilterService)(nil)

// NewFilterService creates the service.
func NewFilterService(store Store, cfg *config.FilterAPIConfig, logger *slog.Logger) (*FilterService, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	engine, err := filter.NewEngine[types.Employee](cfg.MaxQueryLength)
	if err != nil {
		return nil, err
	}

	return &FilterService{store: store, engine: engine, cfg: cfg, logger: logger}, nil
}

// Check compiles a query without running it.
//
//	request:  {query: string}
//	response: {valid: bool, kind?, message?, field?, literal?, type?, position?}
//
// A query that does not compile is a successful call with valid=false.
func (s *FilterService) Check(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	query, err := requiredString(req, "query")
	if err != nil {
		return nil, err
	}

	_, err = s.engine.Compile(query)
	if err == nil {
		return structpb.NewStruct(map[string]any{"valid": true})
	}

	var cerr *filter.CompileError
	if !errors.As(err, &cerr) {
		return nil, toStatus(err)
	}
	s.logger.Debug("query rejected", "query", query, "error", err)
	return structpb.NewStruct(diagnostic(cerr))
}

// diagnostic is the map form of a compile error.
func diagnostic(cerr *filter.CompileError) map[string]any {
	d := map[string]any{
		"valid":   false,
		"kind":    cerr.Kind.Error(),
		"message": cerr.Error(),
	}
	if cerr.Field != "" {
		d["field"] = cerr.Field
	}
	if cerr.Literal != "" {
		d["literal"] = cerr.Literal
	}
	if cerr.Type != "" {
		d["type"] = cerr.Type
	}
	if cerr.Pos > 0 {
		d["position"] = cerr.Pos
	}
	return d
}

// Filter runs a query over inline records, or over the stored employees
// when no records are given.
//
//	request:  {query: string, records?: [employee]}
//	response: {count: number, records: [employee]}
func (s *FilterService) Filter(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	query, err := requiredString(req, "query")
	if err != nil {
		return nil, err
	}

	p, err := s.engine.Compile(query)
	if err != nil {
		s.logger.Debug("query rejected", "query", query, "error", err)
		return nil, toStatus(err)
	}

	var input []types.Employee
	if v, ok := req.GetFields()["records"]; ok {
		list := v.GetListValue()
		if list == nil {
			return nil, invalidArgument("records must be a list")
		}
		if len(list.GetValues()) > s.cfg.MaxBatchSize {
			return nil, invalidArgument(fmt.Sprintf("batch size exceeds maximum of %d records", s.cfg.MaxBatchSize))
		}
		input, err = records.EmployeesFromList(list.AsSlice())
		if err != nil {
			return nil, invalidArgument(err.Error())
		}
	} else {
		input, err = s.store.ListEmployees(ctx)
		if err != nil {
			s.logger.Error("failed to list employees", "error", err)
			return nil, toStatus(err)
		}
	}

	return matchesResponse(filter.Apply(p, input))
}

// SaveFilter validates and stores a query under a name for the caller.
//
//	request:  {name: string, query: string}
//	response: {filterId, name, query, target, createdAt}
func (s *FilterService) SaveFilter(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	owner, err := ownerOf(ctx)
	if err != nil {
		return nil, err
	}
	name, err := requiredString(req, "name")
	if err != nil {
		return nil, err
	}
	query, err := requiredString(req, "query")
	if err != nil {
		return nil, err
	}

	if _, err := s.engine.Compile(query); err != nil {
		return nil, toStatus(err)
	}

	f, err := s.store.SaveFilter(ctx, owner, name, query, targetEmployee)
	if err != nil {
		if !errors.Is(err, types.ErrFilterExists) && !errors.Is(err, types.ErrInvalidFilterName) {
			s.logger.Error("failed to save filter", "owner", owner, "name", name, "error", err)
		}
		return nil, toStatus(err)
	}
	s.logger.Info("filter saved", "owner", owner, "name", name, "filter_id", f.FilterID)
	return structpb.NewStruct(savedFilterMap(f))
}

// ListFilters returns the caller's saved filters.
//
//	request:  {}
//	response: {filters: [{filterId, name, query, target, createdAt}]}
func (s *FilterService) ListFilters(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	owner, err := ownerOf(ctx)
	if err != nil {
		return nil, err
	}

	filters, err := s.store.ListFilters(ctx, owner)
	if err != nil {
		s.logger.Error("failed to list filters", "owner", owner, "error", err)
		return nil, toStatus(err)
	}

	list := make([]any, len(filters))
	for i := range filters {
		list[i] = savedFilterMap(&filters[i])
	}
	return structpb.NewStruct(map[string]any{"filters": list})
}

// RunFilter compiles a saved filter and runs it over the stored employees.
//
//	request:  {name: string}
//	response: {count: number, records: [employee]}
func (s *FilterService) RunFilter(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	owner, err := ownerOf(ctx)
	if err != nil {
		return nil, err
	}
	name, err := requiredString(req, "name")
	if err != nil {
		return nil, err
	}

	f, err := s.store.GetFilterByName(ctx, owner, name)
	if err != nil {
		return nil, toStatus(err)
	}

	p, err := s.engine.Compile(f.Query)
	if err != nil {
		// Stored text compiled when saved; failing now means the record
		// type changed underneath it.
		s.logger.Warn("saved filter no longer compiles", "owner", owner, "name", name, "error", err)
		return nil, status.Error(codes.FailedPrecondition, err.Error())
	}

	employees, err := s.store.ListEmployees(ctx)
	if err != nil {
		s.logger.Error("failed to list employees", "error", err)
		return nil, toStatus(err)
	}
	return matchesResponse(filter.Apply(p, employees))
}

// DeleteFilter removes one of the caller's saved filters.
//
//	request:  {name: string}
//	response: {}
func (s *FilterService) DeleteFilter(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	owner, err := ownerOf(ctx)
	if err != nil {
		return nil, err
	}
	name, err := requiredString(req, "name")
	if err != nil {
		return nil, err
	}

	if err := s.store.DeleteFilter(ctx, owner, name); err != nil {
		return nil, toStatus(err)
	}
	s.logger.Info("filter deleted", "owner", owner, "name", name)
	return &structpb.Struct{}, nil
}

func matchesResponse(matches []types.Employee) (*structpb.Struct, error) {
	resp, err := structpb.NewStruct(map[string]any{
		"count":   len(matches),
		"records": records.EmployeesToList(matches),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

func savedFilterMap(f *types.SavedFilter) map[string]any {
	return map[string]any{
		"filterId":  string(f.FilterID),
		"name":      f.Name,
		"query":     f.Query,
		"target":    f.Target,
		"createdAt": f.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func ownerOf(ctx context.Context) (string, error) {
	owner := auth.OwnerFromContext(ctx)
	if owner == "" {
		return "", status.Error(codes.Internal, "missing owner in context")
	}
	return owner, nil
}

func requiredString(req *structpb.Struct, key string) (string, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return "", invalidArgument(key + " is required")
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", invalidArgument(key + " must be a string")
	}
	if s.StringValue == "" {
		return "", invalidArgument(key + " is required")
	}
	return s.StringValue, nil
}
