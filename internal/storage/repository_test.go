package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pockets/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "pockets.db"))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// seedGroup creates a group owned by "alice" with member "bob" plus one
// shared and one personal category.
func seedGroup(t *testing.T, repo *SQLiteRepository) (group Group, shared, personal core.Category) {
	t.Helper()
	ctx := context.Background()

	group, err := repo.CreateGroup(ctx, "casa", "alice")
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if err := repo.AddMember(ctx, group.ID, "bob"); err != nil {
		t.Fatalf("add member: %v", err)
	}

	shared, err = repo.CreateCategory(ctx, core.SharedCategory(group.ID, "Groceries"))
	if err != nil {
		t.Fatalf("create shared category: %v", err)
	}
	personal, err = repo.CreateCategory(ctx, core.PersonalCategory(group.ID, "bob", "Hobby"))
	if err != nil {
		t.Fatalf("create personal category: %v", err)
	}
	return group, shared, personal
}

func TestUpsertAllocationKeepsSpent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	group, shared, _ := seedGroup(t, repo)

	key := core.AllocationKey{GroupID: group.ID, CategoryID: shared.ID, Month: 6, Year: 2025}

	a, err := repo.UpsertAllocation(ctx, key, dec("300"))
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if !a.Allocated.Equal(dec("300")) || !a.Spent.IsZero() {
		t.Fatalf("got allocated=%s spent=%s", a.Allocated, a.Spent)
	}

	// Record an expense so spent is non-zero, then re-upsert.
	_, err = repo.CreateExpense(ctx, core.Expense{
		GroupID: group.ID, CategoryID: shared.ID, Amount: dec("45.50"),
		Date: core.NewDate(2025, 6, 10), CreatedBy: "alice",
	})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}

	a, err = repo.UpsertAllocation(ctx, key, dec("250"))
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if !a.Allocated.Equal(dec("250")) {
		t.Fatalf("allocated: got %s, want 250", a.Allocated)
	}
	if !a.Spent.Equal(dec("45.50")) {
		t.Fatalf("spent must survive re-upsert: got %s", a.Spent)
	}

	all, err := repo.ListAllocations(ctx, group.ID, 6, 2025)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected exactly one allocation row, got %d", len(all))
	}
}

func TestUpsertAllocationConcurrent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	group, shared, _ := seedGroup(t, repo)

	key := core.AllocationKey{GroupID: group.ID, CategoryID: shared.ID, Month: 7, Year: 2025}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := repo.UpsertAllocation(ctx, key, decimal.NewFromInt(int64(100+n)))
			if err != nil && !errors.Is(err, core.ErrConflict) && !errors.Is(err, core.ErrStoreUnavailable) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	all, err := repo.ListAllocations(ctx, group.ID, 7, 2025)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("concurrent upserts produced %d rows, want 1", len(all))
	}
}

func TestExpenseWritesConcurrent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	group, shared, _ := seedGroup(t, repo)

	key := core.AllocationKey{GroupID: group.ID, CategoryID: shared.ID, Month: 9, Year: 2025}
	if _, err := repo.UpsertAllocation(ctx, key, dec("1000")); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	var (
		mu      sync.Mutex
		created []string
		wg      sync.WaitGroup
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := repo.CreateExpense(ctx, core.Expense{
				GroupID: group.ID, CategoryID: shared.ID, Amount: dec("12.50"),
				Date: core.NewDate(2025, 9, 10), CreatedBy: "alice",
			})
			if err != nil {
				if !errors.Is(err, core.ErrStoreUnavailable) {
					t.Errorf("create: %v", err)
				}
				return
			}
			mu.Lock()
			created = append(created, e.ID)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(created) == 0 {
		t.Fatal("no expense survived the concurrent creates")
	}

	// Delete every other expense, again from racing goroutines, and count
	// what actually went through.
	var deleted int
	for i := 0; i < len(created); i += 2 {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := repo.DeleteExpense(ctx, id); err != nil {
				if !errors.Is(err, core.ErrStoreUnavailable) {
					t.Errorf("delete: %v", err)
				}
				return
			}
			mu.Lock()
			deleted++
			mu.Unlock()
		}(created[i])
	}
	wg.Wait()

	a, err := repo.GetAllocation(ctx, key)
	if err != nil {
		t.Fatalf("get allocation: %v", err)
	}
	sum, err := repo.SumExpenses(ctx, key)
	if err != nil {
		t.Fatalf("sum expenses: %v", err)
	}
	if !a.Spent.Equal(sum) {
		t.Fatalf("spent drifted from the expense sum: spent=%s, sum=%s", a.Spent, sum)
	}

	want := dec("12.50").Mul(decimal.NewFromInt(int64(len(created) - deleted)))
	if !a.Spent.Equal(want) {
		t.Fatalf("spent = %s, want %s after %d creates and %d deletes",
			a.Spent, want, len(created), deleted)
	}
}

func TestExpenseLifecycleKeepsInvariant(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	group, shared, _ := seedGroup(t, repo)

	key := core.AllocationKey{GroupID: group.ID, CategoryID: shared.ID, Month: 3, Year: 2025}
	if _, err := repo.UpsertAllocation(ctx, key, dec("500")); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	assertInvariant := func() {
		t.Helper()
		a, err := repo.GetAllocation(ctx, key)
		if err != nil {
			t.Fatalf("get allocation: %v", err)
		}
		sum, err := repo.SumExpenses(ctx, key)
		if err != nil {
			t.Fatalf("sum expenses: %v", err)
		}
		if !a.Spent.Equal(sum) {
			t.Fatalf("invariant broken: spent=%s, sum=%s", a.Spent, sum)
		}
	}

	e1, err := repo.CreateExpense(ctx, core.Expense{
		GroupID: group.ID, CategoryID: shared.ID, Amount: dec("50"),
		Description: "weekly shop", Date: core.NewDate(2025, 3, 5), CreatedBy: "alice",
	})
	if err != nil {
		t.Fatalf("create e1: %v", err)
	}
	e2, err := repo.CreateExpense(ctx, core.Expense{
		GroupID: group.ID, CategoryID: shared.ID, Amount: dec("19.99"),
		Date: core.NewDate(2025, 3, 12), CreatedBy: "bob",
	})
	if err != nil {
		t.Fatalf("create e2: %v", err)
	}
	assertInvariant()

	// Amount edit applies the delta, not a decrement-then-increment.
	e1.Amount = dec("30")
	if err := repo.UpdateExpense(ctx, e1); err != nil {
		t.Fatalf("update e1: %v", err)
	}
	assertInvariant()

	a, _ := repo.GetAllocation(ctx, key)
	if !a.Spent.Equal(dec("49.99")) {
		t.Fatalf("spent after edit: got %s, want 49.99", a.Spent)
	}

	if err := repo.DeleteExpense(ctx, e2.ID); err != nil {
		t.Fatalf("delete e2: %v", err)
	}
	assertInvariant()

	a, _ = repo.GetAllocation(ctx, key)
	if !a.Spent.Equal(dec("30")) {
		t.Fatalf("spent after delete: got %s, want 30", a.Spent)
	}
}

func TestExpenseMonthMoveDebitsAndCredits(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	group, shared, _ := seedGroup(t, repo)

	march := core.AllocationKey{GroupID: group.ID, CategoryID: shared.ID, Month: 3, Year: 2025}
	april := core.AllocationKey{GroupID: group.ID, CategoryID: shared.ID, Month: 4, Year: 2025}
	if _, err := repo.UpsertAllocation(ctx, march, dec("100")); err != nil {
		t.Fatalf("upsert march: %v", err)
	}
	if _, err := repo.UpsertAllocation(ctx, april, dec("100")); err != nil {
		t.Fatalf("upsert april: %v", err)
	}

	e, err := repo.CreateExpense(ctx, core.Expense{
		GroupID: group.ID, CategoryID: shared.ID, Amount: dec("40"),
		Date: core.NewDate(2025, 3, 20), CreatedBy: "alice",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	e.Date = core.NewDate(2025, 4, 2)
	if err := repo.UpdateExpense(ctx, e); err != nil {
		t.Fatalf("move: %v", err)
	}

	ma, _ := repo.GetAllocation(ctx, march)
	aa, _ := repo.GetAllocation(ctx, april)
	if !ma.Spent.IsZero() {
		t.Fatalf("march spent: got %s, want 0", ma.Spent)
	}
	if !aa.Spent.Equal(dec("40")) {
		t.Fatalf("april spent: got %s, want 40", aa.Spent)
	}
}

func TestExpenseCategoryMoveAcrossScopes(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	group, shared, personal := seedGroup(t, repo)

	sharedKey := core.AllocationKey{GroupID: group.ID, CategoryID: shared.ID, Month: 5, Year: 2025}
	personalKey := core.AllocationKey{GroupID: group.ID, CategoryID: personal.ID, Month: 5, Year: 2025, UserID: "bob"}
	if _, err := repo.UpsertAllocation(ctx, sharedKey, dec("200")); err != nil {
		t.Fatalf("upsert shared: %v", err)
	}
	if _, err := repo.UpsertAllocation(ctx, personalKey, dec("80")); err != nil {
		t.Fatalf("upsert personal: %v", err)
	}

	e, err := repo.CreateExpense(ctx, core.Expense{
		GroupID: group.ID, CategoryID: shared.ID, Amount: dec("25"),
		Date: core.NewDate(2025, 5, 9), CreatedBy: "bob",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	e.CategoryID = personal.ID
	if err := repo.UpdateExpense(ctx, e); err != nil {
		t.Fatalf("recategorize: %v", err)
	}

	sa, _ := repo.GetAllocation(ctx, sharedKey)
	pa, _ := repo.GetAllocation(ctx, personalKey)
	if !sa.Spent.IsZero() {
		t.Fatalf("shared spent: got %s, want 0", sa.Spent)
	}
	if !pa.Spent.Equal(dec("25")) {
		t.Fatalf("personal spent: got %s, want 25", pa.Spent)
	}
}

func TestExpenseWithoutAllocation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	group, shared, _ := seedGroup(t, repo)

	// No allocation exists for this month: the expense insert still
	// succeeds, and so does its later deletion.
	e, err := repo.CreateExpense(ctx, core.Expense{
		GroupID: group.ID, CategoryID: shared.ID, Amount: dec("10"),
		Date: core.NewDate(2025, 9, 1), CreatedBy: "alice",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.DeleteExpense(ctx, e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetExpense(ctx, e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateExpenseUnknownCategory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	group, _, _ := seedGroup(t, repo)

	_, err := repo.CreateExpense(ctx, core.Expense{
		GroupID: group.ID, CategoryID: "nope", Amount: dec("10"),
		Date: core.NewDate(2025, 9, 1), CreatedBy: "alice",
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPersonalExpenseUsesCreatorScopedAllocation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	group, _, personal := seedGroup(t, repo)

	bobKey := core.AllocationKey{GroupID: group.ID, CategoryID: personal.ID, Month: 2, Year: 2025, UserID: "bob"}
	if _, err := repo.UpsertAllocation(ctx, bobKey, dec("60")); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if _, err := repo.CreateExpense(ctx, core.Expense{
		GroupID: group.ID, CategoryID: personal.ID, Amount: dec("15"),
		Date: core.NewDate(2025, 2, 3), CreatedBy: "bob",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	a, err := repo.GetAllocation(ctx, bobKey)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !a.Spent.Equal(dec("15")) {
		t.Fatalf("spent: got %s, want 15", a.Spent)
	}
}

func TestCategoryListingAndDeletion(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	group, shared, personal := seedGroup(t, repo)

	cats, err := repo.ListCategories(ctx, group.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(cats) != 2 {
		t.Fatalf("got %d categories, want 2", len(cats))
	}
	if cats[0].Name != "Groceries" || cats[1].Name != "Hobby" {
		t.Fatalf("not ordered by name: %s, %s", cats[0].Name, cats[1].Name)
	}

	// A referenced category cannot be deleted.
	if _, err := repo.CreateExpense(ctx, core.Expense{
		GroupID: group.ID, CategoryID: shared.ID, Amount: dec("5"),
		Date: core.NewDate(2025, 1, 1), CreatedBy: "alice",
	}); err != nil {
		t.Fatalf("create expense: %v", err)
	}
	if err := repo.DeleteCategory(ctx, shared.ID); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	// An unreferenced one can.
	if err := repo.DeleteCategory(ctx, personal.ID); err != nil {
		t.Fatalf("delete personal: %v", err)
	}
	if err := repo.DeleteCategory(ctx, personal.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRemoveMemberPrunesPersonalCategories(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	group, _, personal := seedGroup(t, repo)

	bobKey := core.AllocationKey{GroupID: group.ID, CategoryID: personal.ID, Month: 6, Year: 2025, UserID: "bob"}
	if _, err := repo.UpsertAllocation(ctx, bobKey, dec("70")); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	e, err := repo.CreateExpense(ctx, core.Expense{
		GroupID: group.ID, CategoryID: personal.ID, Amount: dec("12"),
		Date: core.NewDate(2025, 6, 6), CreatedBy: "bob",
	})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}

	if err := repo.RemoveMember(ctx, group.ID, "bob"); err != nil {
		t.Fatalf("remove member: %v", err)
	}

	if _, err := repo.GetCategory(ctx, personal.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("personal category should be pruned, got %v", err)
	}
	if _, err := repo.GetAllocation(ctx, bobKey); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("personal allocation should be pruned, got %v", err)
	}
	// The expense history survives the prune.
	if _, err := repo.GetExpense(ctx, e.ID); err != nil {
		t.Fatalf("expense should survive: %v", err)
	}

	role, err := repo.GroupRole(ctx, group.ID, "bob")
	if err != nil {
		t.Fatalf("role: %v", err)
	}
	if role != core.RoleNone {
		t.Fatalf("got role %q, want none", role)
	}
}

func TestOwnerCannotLeaveGroup(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	group, _, _ := seedGroup(t, repo)

	if err := repo.RemoveMember(ctx, group.ID, "alice"); !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestDuplicateMembershipIsConflict(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	group, _, _ := seedGroup(t, repo)

	if err := repo.AddMember(ctx, group.ID, "bob"); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestTaskRolloverPrimitives(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	group, _, _ := seedGroup(t, repo)

	rent, err := repo.CreatePaymentTemplate(ctx, core.PaymentTemplate{
		GroupID: group.ID, Name: "Rent", AmountHint: dec("900"), Active: true,
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	if _, err := repo.CreatePaymentTemplate(ctx, core.PaymentTemplate{
		GroupID: group.ID, Name: "Old gym", Active: false,
	}); err != nil {
		t.Fatalf("create inactive template: %v", err)
	}

	may := time.Date(2025, 5, 3, 10, 0, 0, 0, time.UTC)
	june := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	// Initial backfill creates tasks for active templates only.
	created, err := repo.CreateMissingTasks(ctx, may)
	if err != nil {
		t.Fatalf("create missing: %v", err)
	}
	if created != 1 {
		t.Fatalf("created %d tasks, want 1", created)
	}
	// Re-running creates nothing.
	if created, _ = repo.CreateMissingTasks(ctx, may); created != 0 {
		t.Fatalf("second backfill created %d tasks, want 0", created)
	}

	tasks, err := repo.ListTasks(ctx, group.ID)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].TemplateID != rent.ID || tasks[0].Completed {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
	task := tasks[0]

	if err := repo.CompleteTask(ctx, task.ID, "alice", dec("900"), core.NewDate(2025, 5, 5), "exp-1"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := repo.CompleteTask(ctx, task.ID, "bob", dec("900"), core.NewDate(2025, 5, 6), ""); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("double completion: expected ErrConflict, got %v", err)
	}

	// Reset in the same month is a no-op: the task was last reset in May.
	reset, err := repo.ResetCompletedTasks(ctx, core.MonthStart(5, 2025), may)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if reset != 0 {
		t.Fatalf("same-month reset touched %d tasks, want 0", reset)
	}

	// June rollover resets it and unlinks (not deletes) the expense.
	reset, err = repo.ResetCompletedTasks(ctx, core.MonthStart(6, 2025), june)
	if err != nil {
		t.Fatalf("june reset: %v", err)
	}
	if reset != 1 {
		t.Fatalf("june reset touched %d tasks, want 1", reset)
	}

	got, err := repo.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Completed || got.ExpenseID != "" || got.CompletedBy != "" || !got.PaidAmount.IsZero() || !got.PaidDate.IsZero() {
		t.Fatalf("task not fully reset: %+v", got)
	}
	if !got.LastResetAt.Equal(june.Truncate(time.Second)) {
		t.Fatalf("last reset at: got %s, want %s", got.LastResetAt, june)
	}

	// A second June rollover finds nothing to do.
	if reset, _ = repo.ResetCompletedTasks(ctx, core.MonthStart(6, 2025), june.Add(time.Hour)); reset != 0 {
		t.Fatalf("second june reset touched %d tasks, want 0", reset)
	}
}
