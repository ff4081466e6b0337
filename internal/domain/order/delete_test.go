package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteOrder_RemovesOrderAndTracking(t *testing.T) {
	f := newFixture(t)
	o := seedOrder(f, &Order{OrderNumber: "ORD-1", Status: StatusCancelled})
	f.store.tracking[o.ID] = []TrackingEntry{{OrderID: o.ID, Status: StatusCancelled}}

	require.NoError(t, f.svc.DeleteOrder(context.Background(), o.ID))
	assert.NotContains(t, f.store.orders, o.ID)
	assert.NotContains(t, f.store.tracking, o.ID)
}

func TestDeleteOrder_RefusedInFlight(t *testing.T) {
	f := newFixture(t)

	for _, status := range []Status{StatusProcessing, StatusShipped, StatusDelivered} {
		o := seedOrder(f, &Order{OrderNumber: "ORD-" + string(status), Status: status})
		err := f.svc.DeleteOrder(context.Background(), o.ID)
		var ndErr *NotDeletableError
		require.ErrorAs(t, err, &ndErr, "status %s", status)
		assert.Equal(t, o.ID, ndErr.OrderID)
		assert.Equal(t, status, ndErr.Status)
		assert.Contains(t, f.store.orders, o.ID, "order kept on refusal")
	}
}

func TestDeleteOrder_NotFound(t *testing.T) {
	f := newFixture(t)
	require.ErrorIs(t, f.svc.DeleteOrder(context.Background(), "nope"), ErrOrderNotFound)
}

func TestSoftDeleteOrder(t *testing.T) {
	f := newFixture(t)
	o := seedOrder(f, &Order{OrderNumber: "ORD-1", Status: StatusConfirmed})

	updated, err := f.svc.SoftDeleteOrder(context.Background(), o.ID, "admin-7")
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, updated.Status, "soft delete forces CANCELLED")
	require.NotNil(t, updated.DeletedAt)
	assert.True(t, updated.Notes.SoftDeleted)
	assert.Equal(t, "admin-7", updated.Notes.DeletedBy)
	assert.Equal(t, StatusConfirmed, updated.Notes.PriorStatus, "prior status recorded in audit notes")
	assert.Len(t, f.store.tracking[o.ID], 1)
}

func TestSoftDeleteOrder_AlreadyDeleted(t *testing.T) {
	f := newFixture(t)
	deletedAt := testNow.Add(-time.Hour)
	o := seedOrder(f, &Order{
		OrderNumber: "ORD-1", Status: StatusCancelled, DeletedAt: &deletedAt,
		Notes: AuditNotes{SoftDeleted: true, DeletedAt: &deletedAt},
	})

	_, err := f.svc.SoftDeleteOrder(context.Background(), o.ID, "admin-7")
	require.ErrorIs(t, err, ErrAlreadyDeleted)
	assert.Equal(t, deletedAt, *f.store.orders[o.ID].DeletedAt, "deletedAt unaltered")
}

func TestRestoreOrder(t *testing.T) {
	f := newFixture(t)
	o := seedOrder(f, &Order{OrderNumber: "ORD-1", Status: StatusConfirmed})

	_, err := f.svc.SoftDeleteOrder(context.Background(), o.ID, "admin-7")
	require.NoError(t, err)

	restored, err := f.svc.RestoreOrder(context.Background(), o.ID, "admin-8")
	require.NoError(t, err)

	assert.Nil(t, restored.DeletedAt)
	assert.False(t, restored.Notes.SoftDeleted)
	assert.Nil(t, restored.Notes.DeletedAt)
	assert.Empty(t, restored.Notes.DeletedBy)
	assert.Equal(t, "admin-8", restored.Notes.RestoredBy)
	assert.Equal(t, StatusCancelled, restored.Status, "restore keeps the CANCELLED status")
	assert.Len(t, f.store.tracking[o.ID], 2, "soft delete and restore each append an entry")
}

func TestRestoreOrder_NotDeleted(t *testing.T) {
	f := newFixture(t)
	o := seedOrder(f, &Order{OrderNumber: "ORD-1", Status: StatusConfirmed})

	_, err := f.svc.RestoreOrder(context.Background(), o.ID, "admin-8")
	require.ErrorIs(t, err, ErrNotDeleted)
}

func TestBulkDeleteOrders_MissingIDs(t *testing.T) {
	f := newFixture(t)
	seedOrder(f, &Order{ID: "o1", OrderNumber: "ORD-1", Status: StatusCancelled})

	_, err := f.svc.BulkDeleteOrders(context.Background(), []string{"o1", "ghost-1", "ghost-2"}, DeleteHard)
	var nfErr *BulkNotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.ElementsMatch(t, []string{"ghost-1", "ghost-2"}, nfErr.Missing)
	assert.Contains(t, f.store.orders, "o1", "nothing deleted")
}

func TestBulkDeleteOrders_HardFailsFastOnUndeletable(t *testing.T) {
	f := newFixture(t)
	seedOrder(f, &Order{ID: "o1", OrderNumber: "ORD-1", Status: StatusCancelled})
	seedOrder(f, &Order{ID: "o2", OrderNumber: "ORD-2", Status: StatusShipped})
	seedOrder(f, &Order{ID: "o3", OrderNumber: "ORD-3", Status: StatusPending})

	_, err := f.svc.BulkDeleteOrders(context.Background(), []string{"o1", "o2", "o3"}, DeleteHard)
	var ndErr *NotDeletableError
	require.ErrorAs(t, err, &ndErr)
	assert.Equal(t, "o2", ndErr.OrderID)

	assert.Len(t, f.store.orders, 3, "validation happens before any deletion")
}

func TestBulkDeleteOrders_Hard(t *testing.T) {
	f := newFixture(t)
	seedOrder(f, &Order{ID: "o1", OrderNumber: "ORD-1", Status: StatusCancelled})
	seedOrder(f, &Order{ID: "o2", OrderNumber: "ORD-2", Status: StatusPending})

	report, err := f.svc.BulkDeleteOrders(context.Background(), []string{"o1", "o2"}, DeleteHard)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Requested)
	assert.ElementsMatch(t, []string{"o1", "o2"}, report.Deleted)
	assert.Empty(t, report.Failed)
	assert.Empty(t, f.store.orders)
}

func TestBulkDeleteOrders_SoftCollectsPerOrderFailures(t *testing.T) {
	f := newFixture(t)
	deletedAt := testNow.Add(-time.Hour)
	seedOrder(f, &Order{ID: "o1", OrderNumber: "ORD-1", Status: StatusConfirmed})
	seedOrder(f, &Order{ID: "o2", OrderNumber: "ORD-2", Status: StatusCancelled, DeletedAt: &deletedAt})

	report, err := f.svc.BulkDeleteOrders(context.Background(), []string{"o1", "o2"}, DeleteSoft)
	require.NoError(t, err)
	assert.Equal(t, []string{"o1"}, report.Deleted)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "o2", report.Failed[0].OrderID)
	assert.Contains(t, report.Failed[0].Reason, "already deleted")

	assert.NotNil(t, f.store.orders["o1"].DeletedAt)
}

func TestBulkDeleteOrders_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.BulkDeleteOrders(context.Background(), nil, DeleteHard)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)

	seedOrder(f, &Order{ID: "o1", OrderNumber: "ORD-1", Status: StatusCancelled})
	_, err = f.svc.BulkDeleteOrders(context.Background(), []string{"o1"}, DeleteType("purge"))
	require.Error(t, err)
}
