package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forcetrack/readiness/modules/readiness/domain/unit"
)

func newHierarchyFixture(t *testing.T) (*HierarchyService, *memUnitRepo) {
	t.Helper()
	repo := newMemUnitRepo(
		unit.New("1CORPS", "I Corps", "1C", unit.EchelonCorps, ""),
		unit.New("1DIV", "1st Division", "1D", unit.EchelonDivision, "1CORPS"),
		unit.New("1BDE", "1st Brigade", "1B", unit.EchelonBrigade, "1DIV"),
		unit.New("2BDE", "2nd Brigade", "2B", unit.EchelonBrigade, "1DIV"),
		unit.New("1-1BN", "1st Battalion, 1st Brigade", "1-1", unit.EchelonBattalion, "1BDE"),
		unit.New("1-2BN", "2nd Battalion, 1st Brigade", "1-2", unit.EchelonBattalion, "1BDE"),
		unit.New("ACO", "Alpha Company", "A", unit.EchelonCompany, "1-1BN"),
	)
	svc := NewHierarchyService(repo, nil)
	require.NoError(t, svc.Load(context.Background()))
	return svc, repo
}

func allCodes() []string {
	return []string{"1CORPS", "1DIV", "1BDE", "2BDE", "1-1BN", "1-2BN", "ACO"}
}

type hierarchyView struct {
	ancestors map[string][]string
	children  map[string][]string
	subs      map[string][]string
}

func captureView(t *testing.T, svc *HierarchyService) hierarchyView {
	t.Helper()
	ctx := context.Background()
	view := hierarchyView{
		ancestors: make(map[string][]string),
		children:  make(map[string][]string),
		subs:      make(map[string][]string),
	}
	for _, code := range allCodes() {
		chain, err := svc.Ancestors(ctx, code)
		require.NoError(t, err)
		children, err := svc.DirectChildren(ctx, code)
		require.NoError(t, err)
		subs, err := svc.Subordinates(ctx, code, false, nil)
		require.NoError(t, err)
		view.ancestors[code] = chain
		view.children[code] = children
		view.subs[code] = subs
	}
	return view
}

func TestHierarchyAncestorsNearestFirst(t *testing.T) {
	svc, _ := newHierarchyFixture(t)
	ctx := context.Background()

	chain, err := svc.Ancestors(ctx, "ACO")
	require.NoError(t, err)
	require.Equal(t, []string{"1-1BN", "1BDE", "1DIV", "1CORPS"}, chain)

	chain, err = svc.Ancestors(ctx, "1CORPS")
	require.NoError(t, err)
	require.Empty(t, chain)

	_, err = svc.Ancestors(ctx, "GHOST")
	requireServiceCode(t, err, CodeNotFound)
}

func TestHierarchyUnitNeverItsOwnRelative(t *testing.T) {
	svc, _ := newHierarchyFixture(t)
	ctx := context.Background()

	for _, code := range allCodes() {
		chain, err := svc.Ancestors(ctx, code)
		require.NoError(t, err)
		require.NotContains(t, chain, code)

		subs, err := svc.Subordinates(ctx, code, false, nil)
		require.NoError(t, err)
		require.NotContains(t, subs, code)
	}
}

func TestHierarchyDescendantAncestorDuality(t *testing.T) {
	svc, _ := newHierarchyFixture(t)
	ctx := context.Background()

	for _, u := range allCodes() {
		subs, err := svc.Subordinates(ctx, u, false, nil)
		require.NoError(t, err)
		subSet := make(map[string]struct{}, len(subs))
		for _, code := range subs {
			subSet[code] = struct{}{}
		}
		for _, v := range allCodes() {
			if u == v {
				continue
			}
			chain, err := svc.Ancestors(ctx, v)
			require.NoError(t, err)
			inChain := false
			for _, code := range chain {
				if code == u {
					inChain = true
				}
			}
			_, inSubs := subSet[v]
			require.Equal(t, inChain, inSubs, "duality violated for u=%s v=%s", u, v)
		}
	}
}

func TestHierarchySubordinatesLevelDown(t *testing.T) {
	svc, _ := newHierarchyFixture(t)
	ctx := context.Background()
	one := 1
	zero := 0

	levelOne, err := svc.Subordinates(ctx, "1DIV", false, &one)
	require.NoError(t, err)
	children, err := svc.DirectChildren(ctx, "1DIV")
	require.NoError(t, err)
	require.Equal(t, children, levelOne)
	require.Equal(t, []string{"1BDE", "2BDE"}, levelOne)

	selfOnly, err := svc.Subordinates(ctx, "1DIV", true, &zero)
	require.NoError(t, err)
	require.Equal(t, []string{"1DIV"}, selfOnly)

	none, err := svc.Subordinates(ctx, "1DIV", false, &zero)
	require.NoError(t, err)
	require.Empty(t, none)

	withSelf, err := svc.Subordinates(ctx, "1BDE", true, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"1-1BN", "1-2BN", "1BDE", "ACO"}, withSelf)
}

func TestHierarchyPeers(t *testing.T) {
	svc, _ := newHierarchyFixture(t)
	ctx := context.Background()

	peers, err := svc.Peers(ctx, "1BDE")
	require.NoError(t, err)
	require.Equal(t, []string{"2BDE"}, peers)

	peers, err = svc.Peers(ctx, "1-1BN")
	require.NoError(t, err)
	require.Equal(t, []string{"1-2BN"}, peers)

	peers, err = svc.Peers(ctx, "1CORPS")
	require.NoError(t, err)
	require.Empty(t, peers)
}

func TestHierarchyReparentMovesSubtree(t *testing.T) {
	svc, repo := newHierarchyFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.Reparent(ctx, "1-1BN", "2BDE"))

	chain, err := svc.Ancestors(ctx, "ACO")
	require.NoError(t, err)
	require.Equal(t, []string{"1-1BN", "2BDE", "1DIV", "1CORPS"}, chain)

	oldSide, err := svc.Subordinates(ctx, "1BDE", false, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"1-2BN"}, oldSide)

	newSide, err := svc.Subordinates(ctx, "2BDE", false, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"1-1BN", "ACO"}, newSide)

	persisted, err := repo.GetByCode(ctx, "1-1BN")
	require.NoError(t, err)
	require.Equal(t, "2BDE", persisted.ParentCode())
}

func TestHierarchyReparentRoundTripRestoresView(t *testing.T) {
	svc, _ := newHierarchyFixture(t)
	ctx := context.Background()

	before := captureView(t, svc)
	require.NoError(t, svc.Reparent(ctx, "1-1BN", "2BDE"))
	require.NoError(t, svc.Reparent(ctx, "1-1BN", "1BDE"))
	require.Equal(t, before, captureView(t, svc))
}

func TestHierarchyReparentRejectsCycles(t *testing.T) {
	svc, repo := newHierarchyFixture(t)
	ctx := context.Background()

	before := captureView(t, svc)

	err := svc.Reparent(ctx, "1BDE", "ACO")
	requireServiceCode(t, err, CodeCycle)

	err = svc.Reparent(ctx, "1BDE", "1BDE")
	requireServiceCode(t, err, CodeCycle)

	require.Equal(t, before, captureView(t, svc))
	persisted, err := repo.GetByCode(ctx, "1BDE")
	require.NoError(t, err)
	require.Equal(t, "1DIV", persisted.ParentCode())
}

func TestHierarchyReparentToRoot(t *testing.T) {
	svc, _ := newHierarchyFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.Reparent(ctx, "1DIV", ""))

	chain, err := svc.Ancestors(ctx, "1DIV")
	require.NoError(t, err)
	require.Empty(t, chain)

	subs, err := svc.Subordinates(ctx, "1CORPS", false, nil)
	require.NoError(t, err)
	require.Empty(t, subs)

	chain, err = svc.Ancestors(ctx, "ACO")
	require.NoError(t, err)
	require.Equal(t, []string{"1-1BN", "1BDE", "1DIV"}, chain)
}

func TestHierarchyRegisterUnit(t *testing.T) {
	svc, _ := newHierarchyFixture(t)
	ctx := context.Background()

	bco := unit.New("BCO", "Bravo Company", "B", unit.EchelonCompany, "1-2BN")
	require.NoError(t, svc.RegisterUnit(ctx, bco))

	chain, err := svc.Ancestors(ctx, "BCO")
	require.NoError(t, err)
	require.Equal(t, []string{"1-2BN", "1BDE", "1DIV", "1CORPS"}, chain)

	subs, err := svc.Subordinates(ctx, "1DIV", false, nil)
	require.NoError(t, err)
	require.Contains(t, subs, "BCO")

	err = svc.RegisterUnit(ctx, bco)
	requireServiceCode(t, err, CodeInvalidBody)

	orphan := unit.New("CCO", "Charlie Company", "C", unit.EchelonCompany, "GHOST")
	err = svc.RegisterUnit(ctx, orphan)
	requireServiceCode(t, err, CodeNotFound)
}

func TestHierarchyDeleteUnit(t *testing.T) {
	svc, repo := newHierarchyFixture(t)
	ctx := context.Background()

	err := svc.DeleteUnit(ctx, "1DIV")
	requireServiceCode(t, err, CodeHasDescendants)

	require.NoError(t, svc.DeleteUnit(ctx, "ACO"))

	subs, err := svc.Subordinates(ctx, "1-1BN", false, nil)
	require.NoError(t, err)
	require.Empty(t, subs)

	subs, err = svc.Subordinates(ctx, "1BDE", false, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"1-1BN", "1-2BN"}, subs)

	persisted, err := repo.GetByCode(ctx, "ACO")
	require.NoError(t, err)
	require.True(t, persisted.IsZero())

	err = svc.DeleteUnit(ctx, "ACO")
	requireServiceCode(t, err, CodeNotFound)
}
