package store

import (
	"context"
	"errors"
	"testing"

	"github.com/Frandy4ever/atlas-mobile-intro/internal/errs"
	"github.com/Frandy4ever/atlas-mobile-intro/internal/models"
	"github.com/Frandy4ever/atlas-mobile-intro/internal/session"
)

func newTestSession() *session.Session {
	sess := session.New()
	sess.FinishLoading()
	return sess
}

func TestArchiveStore_ArchiveRoundTrip(t *testing.T) {
	conn := newTestConn(t)
	sess := newTestSession()
	activities := NewActivityStore(conn, sess)
	archive := NewArchiveStore(conn, sess)
	ctx := context.Background()

	user := testUser(t, conn, "walker", false)
	sess.Set(user)

	activity, err := activities.AddActivity(ctx, 1200, 1700000000)
	if err != nil {
		t.Fatalf("AddActivity: %v", err)
	}

	// Archiving is copy then delete, driven by the caller.
	archived, err := archive.ArchiveActivity(ctx, activity.Steps, activity.Date)
	if err != nil {
		t.Fatalf("ArchiveActivity: %v", err)
	}
	if err := activities.DeleteActivity(ctx, activity.ID); err != nil {
		t.Fatalf("DeleteActivity: %v", err)
	}

	if archived.ArchivedAt == 0 {
		t.Fatal("expected archivedAt to be stamped")
	}
	if archived.UserID != user.ID {
		t.Fatalf("archived owner is %d, want %d", archived.UserID, user.ID)
	}
	if len(activities.Activities()) != 0 {
		t.Fatal("expected the source activity to be gone")
	}
	got := archive.ArchivedActivities()
	if len(got) != 1 || got[0].Steps != 1200 || got[0].Date != 1700000000 {
		t.Fatalf("expected the archived copy in the cache, got %+v", got)
	}

	// Unarchiving only discards the archive copy; restoring the activity is
	// a separate insert.
	if err := archive.UnarchiveActivity(ctx, archived.ID); err != nil {
		t.Fatalf("UnarchiveActivity: %v", err)
	}
	if len(archive.ArchivedActivities()) != 0 {
		t.Fatal("expected empty archive after unarchiving")
	}
	if len(activities.Activities()) != 0 {
		t.Fatal("unarchiving must not resurrect the activity on its own")
	}
	restored, err := activities.AddActivity(ctx, archived.Steps, archived.Date)
	if err != nil {
		t.Fatalf("restore activity: %v", err)
	}
	if restored.Date != 1700000000 {
		t.Fatalf("restored date = %d, want 1700000000", restored.Date)
	}
}

func TestArchiveStore_RequiresSession(t *testing.T) {
	conn := newTestConn(t)
	sess := newTestSession()
	archive := NewArchiveStore(conn, sess)
	ctx := context.Background()

	if _, err := archive.ArchiveActivity(ctx, 100, 0); !errors.Is(err, errs.ErrAuthentication) {
		t.Fatalf("expected authentication error without a session, got %v", err)
	}
	if err := archive.DeleteAllArchived(ctx); !errors.Is(err, errs.ErrAuthentication) {
		t.Fatalf("expected authentication error without a session, got %v", err)
	}
}

func TestArchiveStore_OwnershipScoping(t *testing.T) {
	conn := newTestConn(t)
	sess := newTestSession()
	archive := NewArchiveStore(conn, sess)
	ctx := context.Background()

	owner := testUser(t, conn, "owner", false)
	intruder := testUser(t, conn, "intruder", false)

	sess.Set(owner)
	archived, err := archive.ArchiveActivity(ctx, 500, 1700000000)
	if err != nil {
		t.Fatalf("ArchiveActivity: %v", err)
	}

	sess.Set(intruder)
	if err := archive.Reload(ctx); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if len(archive.ArchivedActivities()) != 0 {
		t.Fatal("expected no visible archived rows for another user")
	}
	if err := archive.DeleteArchivedActivity(ctx, archived.ID); err != nil {
		t.Fatalf("DeleteArchivedActivity: %v", err)
	}
	var survived models.ArchivedActivity
	if err := conn.First(&survived, archived.ID).Error; err != nil {
		t.Fatalf("owner's archived row should survive a scoped delete: %v", err)
	}

	if _, err := archive.ArchiveActivity(ctx, 900, 0); err != nil {
		t.Fatalf("ArchiveActivity: %v", err)
	}
	if err := archive.DeleteAllArchived(ctx); err != nil {
		t.Fatalf("DeleteAllArchived: %v", err)
	}
	rows, err := archive.GetArchivedActivitiesByUserID(ctx, owner.ID)
	if err != nil {
		t.Fatalf("GetArchivedActivitiesByUserID: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("bulk delete should only touch the actor's rows, owner has %d", len(rows))
	}
}
