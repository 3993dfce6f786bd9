// internal/lending/lending_test.go
package lending

import (
	"context"
	"errors"
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
	"libralend/internal/liberr"
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

type recordingNotifier struct {
	mu        sync.Mutex
	system    []string
	reminders []string
}

func (n *recordingNotifier) NotifySystem(_ context.Context, _ uuid.UUID, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.system = append(n.system, message)
}

func (n *recordingNotifier) NotifyReminder(_ context.Context, _ uuid.UUID, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reminders = append(n.reminders, message)
}

type recordingEvaluator struct {
	mu     sync.Mutex
	issues []Issue
}

func (e *recordingEvaluator) EvaluateLateFine(_ context.Context, issue Issue) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.issues = append(e.issues, issue)
	return nil
}

type fixture struct {
	ctx       context.Context
	svc       Service
	inv       inventory.Service
	users     users.Service
	notes     *recordingNotifier
	evaluator *recordingEvaluator
	clock     *fakeClock
	librarian auth.Actor
}

func newFixture(t *testing.T, pol policy.Policy) *fixture {
	t.Helper()
	log := zerolog.Nop()
	clock := &fakeClock{t: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)}
	notes := &recordingNotifier{}

	f := &fixture{
		ctx:   context.Background(),
		inv:   inventory.NewService(inventory.NewMemoryStore(), log),
		users: users.NewService(users.NewMemoryStore(), log),
		notes: notes,
		clock: clock,
	}
	f.svc = NewService(
		NewMemoryStore(), f.inv, f.users, policy.NewService(policy.NewMemoryStore(pol), log), notes, log,
		WithClock(clock.Now),
		WithRequestLimit(rate.NewLimiter(rate.Inf, 0)),
	)
	f.evaluator = &recordingEvaluator{}
	f.svc.AttachFineEvaluator(f.evaluator)

	lib, err := f.users.Register(f.ctx, "Head Librarian", "librarian@example.org", users.RoleLibrarian)
	require.NoError(t, err)
	f.librarian = auth.Actor{UserID: lib.ID, Role: users.RoleLibrarian}
	return f
}

func (f *fixture) member(t *testing.T, name, email string) auth.Actor {
	t.Helper()
	u, err := f.users.Register(f.ctx, name, email, users.RoleMember)
	require.NoError(t, err)
	return auth.Actor{UserID: u.ID, Role: users.RoleMember}
}

func (f *fixture) book(t *testing.T, title string, copies int) uuid.UUID {
	t.Helper()
	b, err := f.inv.AddBook(f.ctx, "978-0-"+title, title, "", copies)
	require.NoError(t, err)
	return b.ID
}

func (f *fixture) available(t *testing.T, bookID uuid.UUID) int {
	t.Helper()
	b, err := f.inv.GetBook(f.ctx, bookID)
	require.NoError(t, err)
	return b.AvailableCopies
}

func TestRequestIssueReservesCopy(t *testing.T) {
	f := newFixture(t, policy.Default())
	member := f.member(t, "Ada", "ada@example.org")
	bookID := f.book(t, "SICP", 2)

	issue, err := f.svc.RequestIssue(f.ctx, member, member.UserID, bookID)
	require.NoError(t, err)

	assert.Equal(t, StatusPending, issue.Status)
	assert.Equal(t, f.clock.Now().AddDate(0, 0, 14), issue.DueDate)
	assert.Equal(t, 1, f.available(t, bookID))
}

func TestRequestIssueOutOfStock(t *testing.T) {
	f := newFixture(t, policy.Default())
	first := f.member(t, "Ada", "ada@example.org")
	second := f.member(t, "Grace", "grace@example.org")
	bookID := f.book(t, "TAOCP", 1)

	_, err := f.svc.RequestIssue(f.ctx, first, first.UserID, bookID)
	require.NoError(t, err)

	_, err = f.svc.RequestIssue(f.ctx, second, second.UserID, bookID)
	require.Error(t, err)
	assert.True(t, liberr.IsKind(err, liberr.KindOutOfStock))
	assert.Equal(t, 0, f.available(t, bookID))
}

func TestConcurrentRequestsSingleCopy(t *testing.T) {
	f := newFixture(t, policy.Default())
	bookID := f.book(t, "Scarce", 1)

	const n = 8
	members := make([]auth.Actor, n)
	for i := range members {
		members[i] = f.member(t, "Member", "member"+string(rune('a'+i))+"@example.org")
	}

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range members {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.RequestIssue(f.ctx, members[i], members[i].UserID, bookID)
		}(i)
	}
	wg.Wait()

	var won, outOfStock int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case liberr.IsKind(err, liberr.KindOutOfStock):
			outOfStock++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, n-1, outOfStock)
	assert.Equal(t, 0, f.available(t, bookID))
}

func TestBorrowLimitCompensatesReservation(t *testing.T) {
	pol := policy.Default()
	pol.MaxBooksPerUser = 1
	f := newFixture(t, pol)
	member := f.member(t, "Ada", "ada@example.org")
	first := f.book(t, "First", 1)
	second := f.book(t, "Second", 1)

	_, err := f.svc.RequestIssue(f.ctx, member, member.UserID, first)
	require.NoError(t, err)

	_, err = f.svc.RequestIssue(f.ctx, member, member.UserID, second)
	require.Error(t, err)
	assert.True(t, liberr.IsKind(err, liberr.KindBorrowLimitExceeded))
	// The reservation taken for the refused request is put back.
	assert.Equal(t, 1, f.available(t, second))
}

func TestRejectRestoresAvailability(t *testing.T) {
	f := newFixture(t, policy.Default())
	member := f.member(t, "Ada", "ada@example.org")
	bookID := f.book(t, "Disputed", 1)

	issue, err := f.svc.RequestIssue(f.ctx, member, member.UserID, bookID)
	require.NoError(t, err)
	assert.Equal(t, 0, f.available(t, bookID))

	rejected, err := f.svc.Reject(f.ctx, f.librarian, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	assert.Equal(t, 1, f.available(t, bookID))
}

func TestApproveRequiresLibrarian(t *testing.T) {
	f := newFixture(t, policy.Default())
	member := f.member(t, "Ada", "ada@example.org")
	bookID := f.book(t, "Guarded", 1)

	issue, err := f.svc.RequestIssue(f.ctx, member, member.UserID, bookID)
	require.NoError(t, err)

	_, err = f.svc.Approve(f.ctx, member, issue.ID)
	require.Error(t, err)
	assert.True(t, liberr.IsKind(err, liberr.KindUnauthorized))
}

func TestMemberCannotBorrowForAnother(t *testing.T) {
	f := newFixture(t, policy.Default())
	ada := f.member(t, "Ada", "ada@example.org")
	grace := f.member(t, "Grace", "grace@example.org")
	bookID := f.book(t, "Hers", 1)

	_, err := f.svc.RequestIssue(f.ctx, ada, grace.UserID, bookID)
	require.Error(t, err)
	assert.True(t, liberr.IsKind(err, liberr.KindUnauthorized))
}

func TestLibrarianBorrowsOnBehalfOfMember(t *testing.T) {
	f := newFixture(t, policy.Default())
	member := f.member(t, "Ada", "ada@example.org")
	bookID := f.book(t, "Assisted", 1)

	issue, err := f.svc.RequestIssue(f.ctx, f.librarian, member.UserID, bookID)
	require.NoError(t, err)
	assert.Equal(t, member.UserID, issue.UserID)
}

func TestOnlyMembersBorrow(t *testing.T) {
	f := newFixture(t, policy.Default())
	bookID := f.book(t, "Restricted", 1)

	_, err := f.svc.RequestIssue(f.ctx, f.librarian, f.librarian.UserID, bookID)
	require.Error(t, err)
	assert.True(t, liberr.IsKind(err, liberr.KindInvalidInput))
}

func TestFullReturnFlow(t *testing.T) {
	f := newFixture(t, policy.Default())
	member := f.member(t, "Ada", "ada@example.org")
	bookID := f.book(t, "RoundTrip", 1)

	issue, err := f.svc.RequestIssue(f.ctx, member, member.UserID, bookID)
	require.NoError(t, err)

	_, err = f.svc.Approve(f.ctx, f.librarian, issue.ID)
	require.NoError(t, err)

	_, err = f.svc.RequestReturn(f.ctx, member, issue.ID)
	require.NoError(t, err)

	// The member changes their mind, then asks again.
	back, err := f.svc.CancelReturn(f.ctx, member, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, back.Status)

	_, err = f.svc.RequestReturn(f.ctx, member, issue.ID)
	require.NoError(t, err)

	returned, err := f.svc.ConfirmReturn(f.ctx, f.librarian, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReturned, returned.Status)
	require.NotNil(t, returned.ReturnedAt)
	assert.Equal(t, f.clock.Now(), *returned.ReturnedAt)
	assert.Equal(t, 1, f.available(t, bookID))
}

func TestConfirmReturnEvaluatesFine(t *testing.T) {
	f := newFixture(t, policy.Default())
	member := f.member(t, "Ada", "ada@example.org")
	bookID := f.book(t, "Tardy", 1)

	issue, err := f.svc.RequestIssue(f.ctx, member, member.UserID, bookID)
	require.NoError(t, err)
	_, err = f.svc.Approve(f.ctx, f.librarian, issue.ID)
	require.NoError(t, err)

	f.clock.Advance(20 * 24 * time.Hour)
	_, err = f.svc.ConfirmReturn(f.ctx, f.librarian, issue.ID)
	require.NoError(t, err)

	require.Len(t, f.evaluator.issues, 1)
	handed := f.evaluator.issues[0]
	assert.Equal(t, issue.ID, handed.ID)
	require.NotNil(t, handed.ReturnedAt)
	assert.Equal(t, f.clock.Now(), *handed.ReturnedAt)
}

func TestDoubleApproveNamesActualStatus(t *testing.T) {
	f := newFixture(t, policy.Default())
	member := f.member(t, "Ada", "ada@example.org")
	bookID := f.book(t, "Raced", 1)

	issue, err := f.svc.RequestIssue(f.ctx, member, member.UserID, bookID)
	require.NoError(t, err)
	_, err = f.svc.Approve(f.ctx, f.librarian, issue.ID)
	require.NoError(t, err)

	_, err = f.svc.Approve(f.ctx, f.librarian, issue.ID)
	require.Error(t, err)
	assert.True(t, liberr.IsKind(err, liberr.KindInvalidStateTransition))
	assert.Contains(t, err.Error(), "APPROVED")
}

func TestOnlyOwnerRequestsReturn(t *testing.T) {
	f := newFixture(t, policy.Default())
	ada := f.member(t, "Ada", "ada@example.org")
	grace := f.member(t, "Grace", "grace@example.org")
	bookID := f.book(t, "Owned", 1)

	issue, err := f.svc.RequestIssue(f.ctx, ada, ada.UserID, bookID)
	require.NoError(t, err)
	_, err = f.svc.Approve(f.ctx, f.librarian, issue.ID)
	require.NoError(t, err)

	_, err = f.svc.RequestReturn(f.ctx, grace, issue.ID)
	require.Error(t, err)
	assert.True(t, liberr.IsKind(err, liberr.KindUnauthorized))
}

func TestRenewExtendsDueDate(t *testing.T) {
	f := newFixture(t, policy.Default())
	member := f.member(t, "Ada", "ada@example.org")
	bookID := f.book(t, "KeptLonger", 1)

	issue, err := f.svc.RequestIssue(f.ctx, member, member.UserID, bookID)
	require.NoError(t, err)
	_, err = f.svc.Approve(f.ctx, f.librarian, issue.ID)
	require.NoError(t, err)

	renewed, err := f.svc.Renew(f.ctx, member, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, issue.DueDate.AddDate(0, 0, 14), renewed.DueDate)
	assert.Equal(t, 1, renewed.RenewalCount)

	// Default policy allows a single renewal.
	_, err = f.svc.Renew(f.ctx, member, issue.ID)
	require.Error(t, err)
	assert.True(t, liberr.IsKind(err, liberr.KindRenewalLimitExceeded))
}

func TestRenewRefusedWhenOverdue(t *testing.T) {
	f := newFixture(t, policy.Default())
	member := f.member(t, "Ada", "ada@example.org")
	bookID := f.book(t, "TooLate", 1)

	issue, err := f.svc.RequestIssue(f.ctx, member, member.UserID, bookID)
	require.NoError(t, err)
	_, err = f.svc.Approve(f.ctx, f.librarian, issue.ID)
	require.NoError(t, err)

	f.clock.Advance(15 * 24 * time.Hour)
	_, err = f.svc.Renew(f.ctx, member, issue.ID)
	require.Error(t, err)
	assert.True(t, liberr.IsKind(err, liberr.KindAlreadyOverdue))
}

func TestRenewPendingIssueIsIllegal(t *testing.T) {
	f := newFixture(t, policy.Default())
	member := f.member(t, "Ada", "ada@example.org")
	bookID := f.book(t, "Unapproved", 1)

	issue, err := f.svc.RequestIssue(f.ctx, member, member.UserID, bookID)
	require.NoError(t, err)

	_, err = f.svc.Renew(f.ctx, member, issue.ID)
	require.Error(t, err)
	assert.True(t, liberr.IsKind(err, liberr.KindInvalidStateTransition))
}

func TestActionsFollowStatus(t *testing.T) {
	f := newFixture(t, policy.Default())
	member := f.member(t, "Ada", "ada@example.org")
	bookID := f.book(t, "Choices", 1)

	issue, err := f.svc.RequestIssue(f.ctx, member, member.UserID, bookID)
	require.NoError(t, err)

	actions, err := f.svc.Actions(f.ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, []Action{ActionApprove, ActionReject}, actions)

	_, err = f.svc.Approve(f.ctx, f.librarian, issue.ID)
	require.NoError(t, err)

	actions, err = f.svc.Actions(f.ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, []Action{ActionRequestReturn, ActionConfirmReturn, ActionRenew, ActionDeclareLost}, actions)
}

func TestListOverdue(t *testing.T) {
	f := newFixture(t, policy.Default())
	member := f.member(t, "Ada", "ada@example.org")
	late := f.book(t, "Late", 1)
	onTime := f.book(t, "OnTime", 1)

	lateIssue, err := f.svc.RequestIssue(f.ctx, member, member.UserID, late)
	require.NoError(t, err)
	_, err = f.svc.Approve(f.ctx, f.librarian, lateIssue.ID)
	require.NoError(t, err)

	f.clock.Advance(16 * 24 * time.Hour)
	freshIssue, err := f.svc.RequestIssue(f.ctx, member, member.UserID, onTime)
	require.NoError(t, err)
	_, err = f.svc.Approve(f.ctx, f.librarian, freshIssue.ID)
	require.NoError(t, err)

	overdue, err := f.svc.ListOverdue(f.ctx, f.clock.Now())
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, lateIssue.ID, overdue[0].ID)
}

func TestListUserActive(t *testing.T) {
	f := newFixture(t, policy.Default())
	member := f.member(t, "Ada", "ada@example.org")
	kept := f.book(t, "Kept", 1)
	returned := f.book(t, "Returned", 1)

	keptIssue, err := f.svc.RequestIssue(f.ctx, member, member.UserID, kept)
	require.NoError(t, err)
	returnedIssue, err := f.svc.RequestIssue(f.ctx, member, member.UserID, returned)
	require.NoError(t, err)
	_, err = f.svc.Approve(f.ctx, f.librarian, returnedIssue.ID)
	require.NoError(t, err)
	_, err = f.svc.ConfirmReturn(f.ctx, f.librarian, returnedIssue.ID)
	require.NoError(t, err)

	active, err := f.svc.ListUserActive(f.ctx, member, member.UserID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, keptIssue.ID, active[0].ID)

	all, err := f.svc.ListUserIssues(f.ctx, member, member.UserID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// Another member cannot read the list.
	other := f.member(t, "Grace", "grace@example.org")
	_, err = f.svc.ListUserIssues(f.ctx, other, member.UserID)
	require.Error(t, err)
	assert.True(t, liberr.IsKind(err, liberr.KindUnauthorized))
}

// flakyLedger fails a set number of releases before handing through to the
// real ledger.
type flakyLedger struct {
	Ledger
	mu           sync.Mutex
	failReleases int
}

func (l *flakyLedger) ReleaseCopy(ctx context.Context, bookID uuid.UUID) error {
	l.mu.Lock()
	if l.failReleases > 0 {
		l.failReleases--
		l.mu.Unlock()
		return errors.New("ledger briefly unavailable")
	}
	l.mu.Unlock()
	return l.Ledger.ReleaseCopy(ctx, bookID)
}

func (f *fixture) flakyService(failReleases int) Service {
	ledger := &flakyLedger{Ledger: f.inv, failReleases: failReleases}
	return NewService(
		NewMemoryStore(), ledger, f.users,
		policy.NewService(policy.NewMemoryStore(policy.Default()), zerolog.Nop()),
		f.notes, zerolog.Nop(),
		WithClock(f.clock.Now),
		WithRequestLimit(rate.NewLimiter(rate.Inf, 0)),
	)
}

func TestRejectRetriesAfterReleaseFailure(t *testing.T) {
	f := newFixture(t, policy.Default())
	member := f.member(t, "Ada", "ada@example.org")
	bookID := f.book(t, "Unsteady", 1)
	svc := f.flakyService(1)

	issue, err := svc.RequestIssue(f.ctx, member, member.UserID, bookID)
	require.NoError(t, err)

	_, err = svc.Reject(f.ctx, f.librarian, issue.ID)
	require.Error(t, err)

	// The failed release left the issue PENDING and the copy reserved, so
	// nothing leaked and the reject can simply be retried.
	cur, err := svc.GetIssue(f.ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, cur.Status)
	assert.Equal(t, 0, f.available(t, bookID))

	rejected, err := svc.Reject(f.ctx, f.librarian, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	assert.Equal(t, 1, f.available(t, bookID))
}

func TestConfirmReturnRetriesAfterReleaseFailure(t *testing.T) {
	f := newFixture(t, policy.Default())
	member := f.member(t, "Ada", "ada@example.org")
	bookID := f.book(t, "Unsteady", 1)
	svc := f.flakyService(1)

	issue, err := svc.RequestIssue(f.ctx, member, member.UserID, bookID)
	require.NoError(t, err)
	_, err = svc.Approve(f.ctx, f.librarian, issue.ID)
	require.NoError(t, err)

	_, err = svc.ConfirmReturn(f.ctx, f.librarian, issue.ID)
	require.Error(t, err)

	cur, err := svc.GetIssue(f.ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, cur.Status)
	assert.Equal(t, 0, f.available(t, bookID))

	returned, err := svc.ConfirmReturn(f.ctx, f.librarian, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReturned, returned.Status)
	require.NotNil(t, returned.ReturnedAt)
	assert.Equal(t, 1, f.available(t, bookID))
}

func TestRequestRateLimited(t *testing.T) {
	f := newFixture(t, policy.Default())
	member := f.member(t, "Ada", "ada@example.org")
	bookID := f.book(t, "Flooded", 5)

	limited := NewService(
		NewMemoryStore(), f.inv, f.users,
		policy.NewService(policy.NewMemoryStore(policy.Default()), zerolog.Nop()),
		f.notes, zerolog.Nop(),
		WithClock(f.clock.Now),
		WithRequestLimit(rate.NewLimiter(rate.Every(time.Hour), 1)),
	)

	_, err := limited.RequestIssue(f.ctx, member, member.UserID, bookID)
	require.NoError(t, err)

	_, err = limited.RequestIssue(f.ctx, member, member.UserID, bookID)
	require.Error(t, err)
	assert.True(t, liberr.IsKind(err, liberr.KindRateLimited))
}
