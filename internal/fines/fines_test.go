// internal/fines/fines_test.go
package fines

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"libralend/internal/auth"
	"libralend/internal/inventory"
	"libralend/internal/lending"
	"libralend/internal/liberr"
	"libralend/internal/notifications"
	"libralend/internal/policy"
	"libralend/internal/users"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fixture wires the whole engine against in-memory stores: lending and
// fines share the clock so time travel affects both.
type fixture struct {
	ctx       context.Context
	fines     Service
	lending   lending.Service
	inv       inventory.Service
	users     users.Service
	notes     notifications.Service
	clock     *fakeClock
	librarian auth.Actor
	member    auth.Actor
}

func newFixture(t *testing.T, pol policy.Policy) *fixture {
	t.Helper()
	log := zerolog.Nop()
	clock := &fakeClock{t: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)}

	f := &fixture{
		ctx:   context.Background(),
		inv:   inventory.NewService(inventory.NewMemoryStore(), log),
		users: users.NewService(users.NewMemoryStore(), log),
		notes: notifications.NewService(notifications.NewMemoryStore(), log),
		clock: clock,
	}
	sink := notifications.NewSink(f.notes, log)
	polSvc := policy.NewService(policy.NewMemoryStore(pol), log)

	f.lending = lending.NewService(
		lending.NewMemoryStore(), f.inv, f.users, polSvc, sink, log,
		lending.WithClock(clock.Now),
		lending.WithRequestLimit(rate.NewLimiter(rate.Inf, 0)),
	)
	f.fines = NewService(NewMemoryStore(), f.lending, f.inv, polSvc, sink, log, WithClock(clock.Now))
	f.lending.AttachFineEvaluator(f.fines)

	lib, err := f.users.Register(f.ctx, "Head Librarian", "librarian@example.org", users.RoleLibrarian)
	require.NoError(t, err)
	f.librarian = auth.Actor{UserID: lib.ID, Role: users.RoleLibrarian}

	mem, err := f.users.Register(f.ctx, "Ada Lovelace", "ada@example.org", users.RoleMember)
	require.NoError(t, err)
	f.member = auth.Actor{UserID: mem.ID, Role: users.RoleMember}
	return f
}

// approvedIssue creates a book and walks an issue to APPROVED.
func (f *fixture) approvedIssue(t *testing.T, title string) *lending.Issue {
	t.Helper()
	b, err := f.inv.AddBook(f.ctx, "978-0-"+title, title, "", 1)
	require.NoError(t, err)
	issue, err := f.lending.RequestIssue(f.ctx, f.member, f.member.UserID, b.ID)
	require.NoError(t, err)
	issue, err = f.lending.Approve(f.ctx, f.librarian, issue.ID)
	require.NoError(t, err)
	return issue
}

func (f *fixture) userFines(t *testing.T) []*Fine {
	t.Helper()
	list, err := f.fines.ListUserFines(f.ctx, f.member, f.member.UserID, false)
	require.NoError(t, err)
	return list
}

func TestOverdueDays(t *testing.T) {
	due := time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		ref   time.Time
		grace int
		want  int
	}{
		{"on time", due, 0, 0},
		{"one hour late", due.Add(time.Hour), 0, 0},
		{"six days late", due.AddDate(0, 0, 6), 0, 6},
		{"grace absorbs", due.AddDate(0, 0, 2), 3, 0},
		{"past grace", due.AddDate(0, 0, 5), 3, 2},
		{"early return", due.AddDate(0, 0, -4), 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, overdueDays(due, tt.ref, tt.grace))
		})
	}
}

func TestLateReturnCreatesFine(t *testing.T) {
	f := newFixture(t, policy.Default())
	issue := f.approvedIssue(t, "Tardy")

	// Returned 20 days after issue against a 14-day loan.
	f.clock.Advance(20 * 24 * time.Hour)
	_, err := f.lending.ConfirmReturn(f.ctx, f.librarian, issue.ID)
	require.NoError(t, err)

	list := f.userFines(t)
	require.Len(t, list, 1)
	fine := list[0]
	assert.Equal(t, TypeLateReturn, fine.Type)
	assert.Equal(t, issue.ID, fine.IssueID)
	assert.Equal(t, 60.0, fine.Amount)
	assert.False(t, fine.IsPaid)

	notes, err := f.notes.List(f.ctx, f.member.UserID, typePtr(notifications.TypeFineNotice))
	require.NoError(t, err)
	assert.Len(t, notes, 1)
}

func TestOnTimeReturnCreatesNoFine(t *testing.T) {
	f := newFixture(t, policy.Default())
	issue := f.approvedIssue(t, "Prompt")

	f.clock.Advance(10 * 24 * time.Hour)
	_, err := f.lending.ConfirmReturn(f.ctx, f.librarian, issue.ID)
	require.NoError(t, err)

	assert.Empty(t, f.userFines(t))
}

func TestGracePeriodAbsorbsLateness(t *testing.T) {
	pol := policy.Default()
	pol.GracePeriodDays = 7
	f := newFixture(t, pol)
	issue := f.approvedIssue(t, "Forgiven")

	f.clock.Advance(20 * 24 * time.Hour)
	_, err := f.lending.ConfirmReturn(f.ctx, f.librarian, issue.ID)
	require.NoError(t, err)

	assert.Empty(t, f.userFines(t))
}

func TestZeroFinePerDaySkipsFine(t *testing.T) {
	pol := policy.Default()
	pol.FinePerDay = 0
	f := newFixture(t, pol)
	issue := f.approvedIssue(t, "Free")

	f.clock.Advance(30 * 24 * time.Hour)
	_, err := f.lending.ConfirmReturn(f.ctx, f.librarian, issue.ID)
	require.NoError(t, err)

	assert.Empty(t, f.userFines(t))
}

func TestEvaluateLateFineIdempotent(t *testing.T) {
	f := newFixture(t, policy.Default())
	issue := f.approvedIssue(t, "Swept")

	f.clock.Advance(20 * 24 * time.Hour)
	current, err := f.lending.GetIssue(f.ctx, issue.ID)
	require.NoError(t, err)

	require.NoError(t, f.fines.EvaluateLateFine(f.ctx, *current))
	require.NoError(t, f.fines.EvaluateLateFine(f.ctx, *current))

	list := f.userFines(t)
	require.Len(t, list, 1)
}

func TestSweepOverdue(t *testing.T) {
	f := newFixture(t, policy.Default())
	issue := f.approvedIssue(t, "Forgotten")

	f.clock.Advance(17 * 24 * time.Hour)
	require.NoError(t, f.fines.SweepOverdue(f.ctx))

	list := f.userFines(t)
	require.Len(t, list, 1)
	// Unreturned: the fine accrues against the sweep time, 3 days past due.
	assert.Equal(t, 30.0, list[0].Amount)
	assert.Equal(t, issue.ID, list[0].IssueID)

	reminders, err := f.notes.List(f.ctx, f.member.UserID, typePtr(notifications.TypeReminder))
	require.NoError(t, err)
	assert.NotEmpty(t, reminders)

	// A second sweep finds the unpaid fine already in place.
	require.NoError(t, f.fines.SweepOverdue(f.ctx))
	assert.Len(t, f.userFines(t), 1)
}

func TestMarkPaidIdempotent(t *testing.T) {
	f := newFixture(t, policy.Default())
	issue := f.approvedIssue(t, "Settled")

	f.clock.Advance(20 * 24 * time.Hour)
	_, err := f.lending.ConfirmReturn(f.ctx, f.librarian, issue.ID)
	require.NoError(t, err)
	fine := f.userFines(t)[0]

	paid, err := f.fines.MarkPaid(f.ctx, f.librarian, fine.ID)
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)
	require.NotNil(t, paid.PaidAt)
	firstPaidAt := *paid.PaidAt

	f.clock.Advance(time.Hour)
	again, err := f.fines.MarkPaid(f.ctx, f.librarian, fine.ID)
	require.NoError(t, err)
	assert.True(t, again.IsPaid)
	require.NotNil(t, again.PaidAt)
	assert.Equal(t, firstPaidAt, *again.PaidAt)
}

func TestMarkPaidRequiresLibrarian(t *testing.T) {
	f := newFixture(t, policy.Default())
	_, err := f.fines.MarkPaid(f.ctx, f.member, uuid.New())
	require.Error(t, err)
	assert.True(t, liberr.IsKind(err, liberr.KindUnauthorized))
}

func TestMarkPaidUnknownFine(t *testing.T) {
	f := newFixture(t, policy.Default())
	_, err := f.fines.MarkPaid(f.ctx, f.librarian, uuid.New())
	require.Error(t, err)
	assert.True(t, liberr.IsKind(err, liberr.KindNotFound))
}

func TestAssessLostBook(t *testing.T) {
	f := newFixture(t, policy.Default())
	issue := f.approvedIssue(t, "Vanished")

	before, err := f.inv.GetBook(f.ctx, issue.BookID)
	require.NoError(t, err)
	require.Equal(t, 1, before.TotalCopies)
	require.Equal(t, 0, before.AvailableCopies)

	fine, err := f.fines.AssessLostBook(f.ctx, f.librarian, issue.ID, 25.0)
	require.NoError(t, err)
	assert.Equal(t, TypeLostBook, fine.Type)
	assert.Equal(t, 50.0, fine.Amount)

	closed, err := f.lending.GetIssue(f.ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, lending.StatusReturned, closed.Status)
	require.NotNil(t, closed.ReturnedAt)

	// The copy leaves the holding instead of returning to the shelf.
	after, err := f.inv.GetBook(f.ctx, issue.BookID)
	require.NoError(t, err)
	assert.Equal(t, 0, after.TotalCopies)
	assert.Equal(t, 0, after.AvailableCopies)
}

func TestAssessLostBookRejectsBadPrice(t *testing.T) {
	f := newFixture(t, policy.Default())
	issue := f.approvedIssue(t, "Priceless")

	_, err := f.fines.AssessLostBook(f.ctx, f.librarian, issue.ID, 0)
	require.Error(t, err)
	assert.True(t, liberr.IsKind(err, liberr.KindInvalidInput))
}

func TestAssessLostBookRequiresLibrarian(t *testing.T) {
	f := newFixture(t, policy.Default())
	issue := f.approvedIssue(t, "Guarded")

	_, err := f.fines.AssessLostBook(f.ctx, f.member, issue.ID, 25.0)
	require.Error(t, err)
	assert.True(t, liberr.IsKind(err, liberr.KindUnauthorized))
}

func TestAssessLostBookOnReturnedIssue(t *testing.T) {
	f := newFixture(t, policy.Default())
	issue := f.approvedIssue(t, "Found")

	_, err := f.lending.ConfirmReturn(f.ctx, f.librarian, issue.ID)
	require.NoError(t, err)

	_, err = f.fines.AssessLostBook(f.ctx, f.librarian, issue.ID, 25.0)
	require.Error(t, err)
	assert.True(t, liberr.IsKind(err, liberr.KindInvalidStateTransition))
}

func TestListUserFinesAuthorization(t *testing.T) {
	f := newFixture(t, policy.Default())
	other, err := f.users.Register(f.ctx, "Grace Hopper", "grace@example.org", users.RoleMember)
	require.NoError(t, err)
	otherActor := auth.Actor{UserID: other.ID, Role: users.RoleMember}

	_, err = f.fines.ListUserFines(f.ctx, otherActor, f.member.UserID, false)
	require.Error(t, err)
	assert.True(t, liberr.IsKind(err, liberr.KindUnauthorized))

	_, err = f.fines.ListUserFines(f.ctx, f.librarian, f.member.UserID, true)
	require.NoError(t, err)

	_, err = f.fines.ListUnpaid(f.ctx, otherActor)
	require.Error(t, err)
	assert.True(t, liberr.IsKind(err, liberr.KindUnauthorized))
}

func typePtr(t notifications.Type) *notifications.Type { return &t }
