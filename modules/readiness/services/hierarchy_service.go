package services

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forcetrack/readiness/modules/readiness/domain/events"
	"github.com/forcetrack/readiness/modules/readiness/domain/unit"
	"github.com/forcetrack/readiness/pkg/eventbus"
)

// HierarchyService maintains the materialized view of the unit forest: per
// unit the ancestor chain (nearest parent first), the direct children, and
// the full descendant set. Every read path in the system scopes itself
// through these lists; nothing re-walks the live tree at query time.
//
// Writers (RegisterUnit, Reparent, DeleteUnit) hold the write lock across
// persist-and-recompute, so readers always observe a consistent snapshot.
type HierarchyService struct {
	mu   sync.RWMutex
	repo unit.Repository
	bus  eventbus.EventBus

	loaded      bool
	units       map[string]unit.Unit
	ancestors   map[string][]string
	children    map[string]map[string]struct{}
	descendants map[string]map[string]struct{}
}

func NewHierarchyService(repo unit.Repository, bus eventbus.EventBus) *HierarchyService {
	return &HierarchyService{
		repo:        repo,
		bus:         bus,
		units:       make(map[string]unit.Unit),
		ancestors:   make(map[string][]string),
		children:    make(map[string]map[string]struct{}),
		descendants: make(map[string]map[string]struct{}),
	}
}

// Load materializes the view from the unit store. It is called once at
// startup and again only if the backing store is repopulated out of band.
func (s *HierarchyService) Load(ctx context.Context) error {
	all, err := inTx(ctx, func(txCtx context.Context) ([]unit.Unit, error) {
		return s.repo.GetAll(txCtx)
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.units = make(map[string]unit.Unit, len(all))
	for _, u := range all {
		s.units[u.Code()] = u
	}
	if err := s.rebuildLocked(); err != nil {
		s.loaded = false
		return err
	}
	s.loaded = true
	return nil
}

func (s *HierarchyService) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.Load(ctx)
}

// rebuildLocked recomputes every cached list from parent pointers alone.
// Callers hold the write lock.
func (s *HierarchyService) rebuildLocked() error {
	s.children = make(map[string]map[string]struct{}, len(s.units))
	for code := range s.units {
		s.children[code] = make(map[string]struct{})
	}
	for code, u := range s.units {
		if u.IsRoot() {
			continue
		}
		parent, ok := s.children[u.ParentCode()]
		if !ok {
			return newServiceError(http.StatusInternalServerError, CodeConsistency,
				fmt.Sprintf("unit %q references missing parent %q", code, u.ParentCode()), nil)
		}
		parent[code] = struct{}{}
	}

	s.ancestors = make(map[string][]string, len(s.units))
	for code := range s.units {
		chain, err := s.computeAncestorsLocked(code)
		if err != nil {
			return err
		}
		s.ancestors[code] = chain
	}

	s.descendants = make(map[string]map[string]struct{}, len(s.units))
	for code := range s.units {
		s.descendants[code] = s.computeDescendantsLocked(code)
	}

	hierarchyRecomputes.Inc()
	return nil
}

// computeAncestorsLocked walks parent links upward, nearest parent first.
// The walk fails if it revisits a unit or exceeds the known unit count,
// which would mean the forest holds a cycle.
func (s *HierarchyService) computeAncestorsLocked(code string) ([]string, error) {
	chain := make([]string, 0, 4)
	seen := map[string]struct{}{code: {}}
	cur := s.units[code]
	for !cur.IsRoot() {
		parentCode := cur.ParentCode()
		if _, dup := seen[parentCode]; dup || len(chain) >= len(s.units) {
			return nil, newServiceError(http.StatusConflict, CodeCycle,
				fmt.Sprintf("cycle detected while walking ancestors of unit %q", code), nil)
		}
		parent, ok := s.units[parentCode]
		if !ok {
			return nil, newServiceError(http.StatusInternalServerError, CodeConsistency,
				fmt.Sprintf("unit %q references missing parent %q", cur.Code(), parentCode), nil)
		}
		chain = append(chain, parentCode)
		seen[parentCode] = struct{}{}
		cur = parent
	}
	return chain, nil
}

// computeDescendantsLocked breadth-first collects everything reachable over
// direct children. The start unit itself is never part of the result.
func (s *HierarchyService) computeDescendantsLocked(code string) map[string]struct{} {
	out := make(map[string]struct{})
	queue := make([]string, 0, len(s.children[code]))
	for child := range s.children[code] {
		queue = append(queue, child)
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if _, dup := out[cur]; dup || cur == code {
			continue
		}
		out[cur] = struct{}{}
		for child := range s.children[cur] {
			queue = append(queue, child)
		}
	}
	return out
}

// recomputeAroundLocked refreshes the cached lists after the parent of
// unitCode changed: the moved subtree's ancestor chains, the children index
// of both parents, and the descendant sets of every ancestor on the old and
// the new side.
func (s *HierarchyService) recomputeAroundLocked(unitCode, oldParent, newParent string) error {
	if oldParent != "" {
		delete(s.children[oldParent], unitCode)
	}
	if newParent != "" {
		s.children[newParent][unitCode] = struct{}{}
	}

	subtree := append([]string{unitCode}, s.sortedSetLocked(s.descendants[unitCode])...)
	for _, code := range subtree {
		chain, err := s.computeAncestorsLocked(code)
		if err != nil {
			return err
		}
		s.ancestors[code] = chain
	}

	touched := map[string]struct{}{unitCode: {}}
	for _, anchor := range []string{oldParent, newParent} {
		if anchor == "" {
			continue
		}
		touched[anchor] = struct{}{}
		for _, code := range s.ancestors[anchor] {
			touched[code] = struct{}{}
		}
	}
	for code := range touched {
		s.descendants[code] = s.computeDescendantsLocked(code)
	}

	hierarchyRecomputes.Inc()
	return nil
}

func (s *HierarchyService) sortedSetLocked(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for code := range set {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// RegisterUnit adds a unit to the forest. The parent, when given, must
// already exist.
func (s *HierarchyService) RegisterUnit(ctx context.Context, u unit.Unit) error {
	if u.Code() == "" {
		return newServiceError(http.StatusBadRequest, CodeInvalidBody, "unit code is required", nil)
	}
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.units[u.Code()]; exists {
		recordHierarchyRejection("duplicate")
		return newServiceError(http.StatusConflict, CodeInvalidBody,
			fmt.Sprintf("unit %q already registered", u.Code()), nil)
	}
	if !u.IsRoot() {
		if _, ok := s.units[u.ParentCode()]; !ok {
			recordHierarchyRejection("missing_parent")
			return notFoundError("parent unit", u.ParentCode())
		}
	}

	if _, err := inTx(ctx, func(txCtx context.Context) (struct{}, error) {
		return struct{}{}, s.repo.Create(txCtx, u)
	}); err != nil {
		return err
	}

	s.units[u.Code()] = u
	s.children[u.Code()] = make(map[string]struct{})
	s.descendants[u.Code()] = make(map[string]struct{})
	if err := s.recomputeAroundLocked(u.Code(), "", u.ParentCode()); err != nil {
		return err
	}

	s.publish(events.HierarchyChangedV1{
		EventID:         uuid.New(),
		EventVersion:    events.EventVersionV1,
		TransactionTime: time.Now().UTC(),
		ChangeType:      "registered",
		UnitCode:        u.Code(),
		NewParentCode:   u.ParentCode(),
	})
	return nil
}

// Reparent moves a unit (and implicitly its whole subtree) under a new
// parent. A move that would place the unit under itself or one of its own
// descendants is rejected before any store or cache mutation.
func (s *HierarchyService) Reparent(ctx context.Context, unitCode, newParentCode string) error {
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.units[unitCode]
	if !ok {
		return notFoundError("unit", unitCode)
	}
	if newParentCode != "" {
		if _, ok := s.units[newParentCode]; !ok {
			return notFoundError("parent unit", newParentCode)
		}
		if newParentCode == unitCode {
			recordHierarchyRejection("cycle")
			return newServiceError(http.StatusConflict, CodeCycle,
				fmt.Sprintf("unit %q cannot be its own parent", unitCode), nil)
		}
		if _, under := s.descendants[unitCode][newParentCode]; under {
			recordHierarchyRejection("cycle")
			return newServiceError(http.StatusConflict, CodeCycle,
				fmt.Sprintf("reparenting unit %q under its descendant %q would create a cycle", unitCode, newParentCode), nil)
		}
	}

	oldParent := u.ParentCode()
	if oldParent == newParentCode {
		return nil
	}

	if _, err := inTx(ctx, func(txCtx context.Context) (struct{}, error) {
		return struct{}{}, s.repo.UpdateParent(txCtx, unitCode, newParentCode)
	}); err != nil {
		return err
	}

	s.units[unitCode] = u.WithParent(newParentCode)
	if err := s.recomputeAroundLocked(unitCode, oldParent, newParentCode); err != nil {
		return err
	}

	s.publish(events.HierarchyChangedV1{
		EventID:         uuid.New(),
		EventVersion:    events.EventVersionV1,
		TransactionTime: time.Now().UTC(),
		ChangeType:      "reparented",
		UnitCode:        unitCode,
		OldParentCode:   oldParent,
		NewParentCode:   newParentCode,
	})
	return nil
}

// DeleteUnit removes a childless unit. Units carrying descendants must be
// reparented or deleted bottom-up first.
func (s *HierarchyService) DeleteUnit(ctx context.Context, unitCode string) error {
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.units[unitCode]
	if !ok {
		return notFoundError("unit", unitCode)
	}
	if len(s.descendants[unitCode]) > 0 {
		recordHierarchyRejection("has_descendants")
		return newServiceError(http.StatusConflict, CodeHasDescendants,
			fmt.Sprintf("unit %q still has %d descendant(s)", unitCode, len(s.descendants[unitCode])), nil)
	}

	if _, err := inTx(ctx, func(txCtx context.Context) (struct{}, error) {
		return struct{}{}, s.repo.Delete(txCtx, unitCode)
	}); err != nil {
		return err
	}

	oldParent := u.ParentCode()
	delete(s.units, unitCode)
	delete(s.ancestors, unitCode)
	delete(s.children, unitCode)
	delete(s.descendants, unitCode)
	if oldParent != "" {
		delete(s.children[oldParent], unitCode)
		touched := append([]string{oldParent}, s.ancestors[oldParent]...)
		for _, code := range touched {
			s.descendants[code] = s.computeDescendantsLocked(code)
		}
		hierarchyRecomputes.Inc()
	}

	s.publish(events.HierarchyChangedV1{
		EventID:         uuid.New(),
		EventVersion:    events.EventVersionV1,
		TransactionTime: time.Now().UTC(),
		ChangeType:      "deleted",
		UnitCode:        unitCode,
		OldParentCode:   oldParent,
	})
	return nil
}

// Subordinates returns the cached descendant set, optionally including the
// unit itself, optionally restricted to units exactly levelDown steps below.
// levelDown of 1 yields the direct children.
func (s *HierarchyService) Subordinates(ctx context.Context, unitCode string, includeSelf bool, levelDown *int) ([]string, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.units[unitCode]; !ok {
		return nil, notFoundError("unit", unitCode)
	}

	baseDepth := len(s.ancestors[unitCode])
	candidates := make([]string, 0, len(s.descendants[unitCode])+1)
	for code := range s.descendants[unitCode] {
		candidates = append(candidates, code)
	}
	if includeSelf {
		candidates = append(candidates, unitCode)
	}

	out := make([]string, 0, len(candidates))
	for _, code := range candidates {
		if levelDown != nil && len(s.ancestors[code])-baseDepth != *levelDown {
			continue
		}
		out = append(out, code)
	}
	sort.Strings(out)
	return out, nil
}

// Peers returns units sharing both the echelon and the immediate parent of
// the given unit, excluding the unit itself.
func (s *HierarchyService) Peers(ctx context.Context, unitCode string) ([]string, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.units[unitCode]
	if !ok {
		return nil, notFoundError("unit", unitCode)
	}

	out := make([]string, 0, 4)
	for code, other := range s.units {
		if code == unitCode {
			continue
		}
		if other.ParentCode() != u.ParentCode() || other.Echelon() != u.Echelon() {
			continue
		}
		out = append(out, code)
	}
	sort.Strings(out)
	return out, nil
}

// Ancestors returns the cached ancestor chain, nearest parent first.
func (s *HierarchyService) Ancestors(ctx context.Context, unitCode string) ([]string, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.units[unitCode]; !ok {
		return nil, notFoundError("unit", unitCode)
	}
	return append([]string(nil), s.ancestors[unitCode]...), nil
}

// DirectChildren returns the cached direct children, sorted by code.
func (s *HierarchyService) DirectChildren(ctx context.Context, unitCode string) ([]string, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.units[unitCode]; !ok {
		return nil, notFoundError("unit", unitCode)
	}
	return s.sortedSetLocked(s.children[unitCode]), nil
}

func (s *HierarchyService) GetUnit(ctx context.Context, unitCode string) (unit.Unit, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return unit.Unit{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.units[unitCode]
	if !ok {
		return unit.Unit{}, notFoundError("unit", unitCode)
	}
	return u, nil
}

func (s *HierarchyService) publish(event any) {
	if s.bus != nil {
		s.bus.Publish(event)
	}
}
