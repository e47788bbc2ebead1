package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/unimarket/unimarket-backend/internal/app/model"
	"github.com/unimarket/unimarket-backend/internal/db"
)

func setupVerificationRepoTest(t *testing.T) (*gorm.DB, VerificationRepository) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	return testDB, NewVerificationRepository(testDB)
}

func newTestRequest(userID uint, status model.VerificationStatus, submittedAt time.Time) *model.VerificationRequest {
	return &model.VerificationRequest{
		UserID:            userID,
		StudentIDPhotoURL: "https://cdn.example.com/id-photos/a.jpg",
		SelfiePhotoURL:    "https://cdn.example.com/selfies/b.jpg",
		Status:            status,
		SubmittedAt:       submittedAt,
	}
}

func TestVerificationRepository_CreateAndFind(t *testing.T) {
	_, repo := setupVerificationRepoTest(t)

	req := newTestRequest(1, model.VerificationPending, time.Now())
	require.NoError(t, repo.Create(req))
	require.NotZero(t, req.ID)

	found, err := repo.FindByID(req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.UserID, found.UserID)
	assert.Equal(t, model.VerificationPending, found.Status)

	_, err = repo.FindByID(9999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestVerificationRepository_FindLatestByUserID(t *testing.T) {
	_, repo := setupVerificationRepoTest(t)
	now := time.Now()

	older := newTestRequest(1, model.VerificationRejected, now.Add(-time.Hour))
	require.NoError(t, repo.Create(older))
	latest := newTestRequest(1, model.VerificationPending, now)
	require.NoError(t, repo.Create(latest))
	otherUser := newTestRequest(2, model.VerificationPending, now.Add(time.Minute))
	require.NoError(t, repo.Create(otherUser))

	found, err := repo.FindLatestByUserID(1)
	require.NoError(t, err)
	assert.Equal(t, latest.ID, found.ID)

	_, err = repo.FindLatestByUserID(99)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestVerificationRepository_UpdateFields(t *testing.T) {
	_, repo := setupVerificationRepoTest(t)

	req := newTestRequest(1, model.VerificationPending, time.Now())
	require.NoError(t, repo.Create(req))

	completedAt := time.Now()
	score := 92.5
	err := repo.UpdateFields(req.ID, map[string]interface{}{
		"status":                  model.VerificationAutoApproved,
		"processing_completed_at": &completedAt,
		"processing_time_ms":      int64(1234),
		"face_match_score":        &score,
		"id_looks_valid":          true,
	})
	require.NoError(t, err)

	found, err := repo.FindByID(req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VerificationAutoApproved, found.Status)
	assert.Equal(t, int64(1234), found.ProcessingTimeMs)
	assert.True(t, found.IDLooksValid)
	require.NotNil(t, found.FaceMatchScore)
	assert.Equal(t, 92.5, *found.FaceMatchScore)
	require.NotNil(t, found.ProcessingCompletedAt)
}

func TestVerificationRepository_CountPendingAtOrBefore(t *testing.T) {
	_, repo := setupVerificationRepoTest(t)
	now := time.Now()

	first := newTestRequest(1, model.VerificationPending, now.Add(-2*time.Minute))
	require.NoError(t, repo.Create(first))
	second := newTestRequest(2, model.VerificationPending, now.Add(-time.Minute))
	require.NoError(t, repo.Create(second))
	// Decided rows never count toward queue position.
	decided := newTestRequest(3, model.VerificationAutoApproved, now.Add(-3*time.Minute))
	require.NoError(t, repo.Create(decided))

	count, err := repo.CountPendingAtOrBefore(first.SubmittedAt)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = repo.CountPendingAtOrBefore(second.SubmittedAt)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestVerificationRepository_FindPendingBatch(t *testing.T) {
	_, repo := setupVerificationRepoTest(t)
	now := time.Now()

	newest := newTestRequest(1, model.VerificationPending, now)
	require.NoError(t, repo.Create(newest))
	oldest := newTestRequest(2, model.VerificationPending, now.Add(-2*time.Hour))
	require.NoError(t, repo.Create(oldest))
	middle := newTestRequest(3, model.VerificationPending, now.Add(-time.Hour))
	require.NoError(t, repo.Create(middle))

	exhausted := newTestRequest(4, model.VerificationPending, now.Add(-3*time.Hour))
	exhausted.RetryCount = 3
	require.NoError(t, repo.Create(exhausted))

	batch, err := repo.FindPendingBatch(2, 3)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, oldest.ID, batch[0].ID)
	assert.Equal(t, middle.ID, batch[1].ID)

	batch, err = repo.FindPendingBatch(10, 3)
	require.NoError(t, err)
	assert.Len(t, batch, 3)
}

func TestVerificationRepository_CountByStatus(t *testing.T) {
	_, repo := setupVerificationRepoTest(t)
	now := time.Now()

	require.NoError(t, repo.Create(newTestRequest(1, model.VerificationPending, now)))
	require.NoError(t, repo.Create(newTestRequest(2, model.VerificationPending, now)))
	require.NoError(t, repo.Create(newTestRequest(3, model.VerificationNeedsReview, now)))

	count, err := repo.CountByStatus(model.VerificationPending)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = repo.CountByStatus(model.VerificationProcessing)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestVerificationRepository_AverageProcessingTimeMs(t *testing.T) {
	_, repo := setupVerificationRepoTest(t)
	now := time.Now()

	avg, err := repo.AverageProcessingTimeMs()
	require.NoError(t, err)
	assert.Equal(t, 0.0, avg)

	for i, ms := range []int64{100, 300} {
		req := newTestRequest(uint(i+1), model.VerificationAutoApproved, now)
		require.NoError(t, repo.Create(req))
		require.NoError(t, repo.UpdateFields(req.ID, map[string]interface{}{
			"processing_completed_at": &now,
			"processing_time_ms":      ms,
		}))
	}
	// Still-pending rows without a completion time are excluded.
	require.NoError(t, repo.Create(newTestRequest(3, model.VerificationPending, now)))

	avg, err = repo.AverageProcessingTimeMs()
	require.NoError(t, err)
	assert.Equal(t, 200.0, avg)
}

func TestVerificationRepository_OldestPending(t *testing.T) {
	_, repo := setupVerificationRepoTest(t)
	now := time.Now()

	oldest, err := repo.OldestPending()
	require.NoError(t, err)
	assert.Nil(t, oldest)

	require.NoError(t, repo.Create(newTestRequest(1, model.VerificationPending, now)))
	target := newTestRequest(2, model.VerificationPending, now.Add(-time.Hour))
	require.NoError(t, repo.Create(target))

	oldest, err = repo.OldestPending()
	require.NoError(t, err)
	require.NotNil(t, oldest)
	assert.Equal(t, target.ID, oldest.ID)
}

func TestVerificationRepository_ListByStatus(t *testing.T) {
	_, repo := setupVerificationRepoTest(t)
	now := time.Now()

	var ids []uint
	for i := 0; i < 3; i++ {
		req := newTestRequest(uint(i+1), model.VerificationNeedsReview, now.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.Create(req))
		ids = append(ids, req.ID)
	}
	require.NoError(t, repo.Create(newTestRequest(4, model.VerificationPending, now)))

	requests, total, err := repo.ListByStatus(model.VerificationNeedsReview, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, requests, 2)
	assert.Equal(t, ids[0], requests[0].ID)

	requests, total, err = repo.ListByStatus(model.VerificationNeedsReview, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, requests, 1)
	assert.Equal(t, ids[2], requests[0].ID)
}

func TestVerificationRepository_FindAll(t *testing.T) {
	_, repo := setupVerificationRepoTest(t)
	now := time.Now()

	require.NoError(t, repo.Create(newTestRequest(1, model.VerificationPending, now.Add(-time.Minute))))
	require.NoError(t, repo.Create(newTestRequest(2, model.VerificationRejected, now)))

	all, err := repo.FindAll(nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	status := model.VerificationRejected
	rejected, err := repo.FindAll(&status)
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Equal(t, uint(2), rejected[0].UserID)
}

func TestVerificationRepository_DeleteOlderThan(t *testing.T) {
	_, repo := setupVerificationRepoTest(t)
	now := time.Now()

	oldApproved := newTestRequest(1, model.VerificationApproved, now.AddDate(0, 0, -100))
	require.NoError(t, repo.Create(oldApproved))
	oldNeedsReview := newTestRequest(2, model.VerificationNeedsReview, now.AddDate(0, 0, -100))
	require.NoError(t, repo.Create(oldNeedsReview))
	recentRejected := newTestRequest(3, model.VerificationRejected, now.AddDate(0, 0, -5))
	require.NoError(t, repo.Create(recentRejected))

	deleted, err := repo.DeleteOlderThan(now.AddDate(0, 0, -90), model.TerminalStatuses)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.FindByID(oldApproved.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = repo.FindByID(oldNeedsReview.ID)
	assert.NoError(t, err)
	_, err = repo.FindByID(recentRejected.ID)
	assert.NoError(t, err)
}
