package inbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultx/vaultx-term/client"
	"github.com/vaultx/vaultx-term/optimistic"
)

func TestActionAllowed(t *testing.T) {
	tests := []struct {
		action Action
		status client.CaseStatus
		want   bool
	}{
		{Review, client.StatusPending, true},
		{Review, client.StatusReviewed, false},
		{Review, client.StatusClosed, false},
		{Close, client.StatusPending, true},
		{Close, client.StatusReviewed, true},
		{Close, client.StatusClosed, false},
		{Action("archive"), client.StatusPending, false},
	}
	for _, tt := range tests {
		if got := tt.action.Allowed(tt.status); got != tt.want {
			t.Errorf("%s from %s: want %v, got %v", tt.action, tt.status, tt.want, got)
		}
	}
}

func TestMutateOnlyTouchesStatus(t *testing.T) {
	c := client.Case{ID: "c1", PatientName: "Ann", Status: client.StatusPending}
	got := Review.Mutate(c)
	assert.Equal(t, client.StatusReviewed, got.Status)
	assert.Equal(t, "Ann", got.PatientName)
	assert.Equal(t, client.StatusPending, c.Status)
	assert.Equal(t, "closed", Close.Verb())
}

type fakeCaser struct {
	calls []string
	err   error
}

func (f *fakeCaser) ReviewCase(_ context.Context, c client.Case) (client.Case, error) {
	f.calls = append(f.calls, "review:"+string(c.Status))
	c.UpdatedAt = "server"
	return c, f.err
}

func (f *fakeCaser) CloseCase(_ context.Context, c client.Case) (client.Case, error) {
	f.calls = append(f.calls, "close:"+string(c.Status))
	c.UpdatedAt = "server"
	return c, f.err
}

func TestActionThroughSynchronizer(t *testing.T) {
	store := optimistic.NewStore(func(c client.Case) string { return c.ID },
		[]client.Case{{ID: "c1", Status: client.StatusPending}})
	api := &fakeCaser{}

	out, err := optimistic.Apply(context.Background(), store, "c1", Close.Mutate, Close.Request(api),
		optimistic.Op{Title: "Action failed"}, optimistic.Hooks{})
	require.NoError(t, err)
	assert.Equal(t, optimistic.Confirmed, out.Result)
	assert.Equal(t, []string{"close:closed"}, api.calls)

	got, _ := store.Get("c1")
	assert.Equal(t, client.Case{ID: "c1", Status: client.StatusClosed, UpdatedAt: "server"}, got)
}

func TestActionRollbackOnFailure(t *testing.T) {
	store := optimistic.NewStore(func(c client.Case) string { return c.ID },
		[]client.Case{{ID: "c1", Status: client.StatusPending}})
	api := &fakeCaser{err: &client.APIError{Status: 500}}
	var notices []string

	out, err := optimistic.Apply(context.Background(), store, "c1", Review.Mutate, Review.Request(api),
		optimistic.Op{Title: "Action failed", Fallback: "Could not update the case."},
		optimistic.Hooks{Notify: func(title, msg string) { notices = append(notices, title+": "+msg) }})
	require.NoError(t, err)
	assert.Equal(t, optimistic.RolledBack, out.Result)
	assert.Equal(t, []string{"Action failed: Could not update the case."}, notices)

	got, _ := store.Get("c1")
	assert.Equal(t, client.StatusPending, got.Status)
}

func TestCountAndFilter(t *testing.T) {
	rows := []client.Case{
		{ID: "1", PatientName: "Ann Lee", Status: client.StatusPending, RedFlagsCount: 1, Complaint: "chest pain"},
		{ID: "2", PatientName: "Bo Chen", Status: client.StatusReviewed, ProbableDx: "Migraine"},
		{ID: "3", PatientName: "Cy Diaz", Status: client.StatusClosed},
		{ID: "4", PatientName: "Di Eve", Status: client.StatusPending, RedFlagsCount: 3},
	}
	assert.Equal(t, Counts{Total: 4, Pending: 2, Reviewed: 1, Closed: 1, RedFlags: 2}, Count(rows))

	assert.Len(t, Filter(rows, client.StatusPending, ""), 2)
	got := Filter(rows, "", "migraine")
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
	assert.Len(t, Filter(rows, client.StatusClosed, "chest"), 0)
	assert.Len(t, Filter(rows, "", "  "), 4)
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Pending", StatusLabel(client.StatusPending))
	assert.Equal(t, "—", StatusLabel(""))
	assert.Equal(t, "weird", StatusLabel("weird"))
}
