// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package grid

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomanizer/markdown-converter/pkg/types"
)

// startScheduler runs a local coordinator behind the HTTP API and returns a
// client pointed at it.
func startScheduler(t *testing.T) *Client {
	t.Helper()
	coord := newLocalCoordinator(t, &fakeCapability{})
	_, err := coord.StartCluster(context.Background())
	require.NoError(t, err)
	t.Cleanup(coord.StopCluster)

	srv := httptest.NewServer(NewServer(coord).Router())
	t.Cleanup(srv.Close)
	return NewClient(srv.URL)
}

func TestSchedulerRoundTrip(t *testing.T) {
	client := startScheduler(t)
	ctx := context.Background()

	require.NoError(t, client.Health(ctx))

	rec, err := client.SubmitJob(ctx, inputDir(t, 2), t.TempDir())
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, types.JobSubmitted, rec.Status)

	// Poll until terminal, as a remote submitter would.
	require.Eventually(t, func() bool {
		cur, err := client.JobStatus(ctx, rec.ID)
		return err == nil && cur.Status.Terminal()
	}, 10*time.Second, 20*time.Millisecond)

	final, err := client.JobStatus(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobCompleted, final.Status)
	assert.Equal(t, 2, final.CompletedTasks)

	jobs, err := client.Jobs(ctx)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestSchedulerCancel(t *testing.T) {
	ctx := context.Background()

	block := make(chan struct{})
	coord := newLocalCoordinator(t, &fakeCapability{block: block})
	_, err := coord.StartCluster(ctx)
	require.NoError(t, err)
	t.Cleanup(coord.StopCluster)

	srv := httptest.NewServer(NewServer(coord).Router())
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL)

	rec, err := client.SubmitJob(ctx, inputDir(t, 1), t.TempDir())
	require.NoError(t, err)

	ok, err := client.CancelJob(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	close(block)

	cur, err := client.JobStatus(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobCancelled, cur.Status)

	// Second cancel: already terminal, reported as a no-op.
	ok, err = client.CancelJob(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSchedulerUnknownJob(t *testing.T) {
	client := startScheduler(t)
	_, err := client.JobStatus(context.Background(), "nope")
	require.Error(t, err)

	ok, err := client.CancelJob(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSchedulerRejectsEmptyInput(t *testing.T) {
	client := startScheduler(t)
	_, err := client.SubmitJob(context.Background(), "", "")
	require.Error(t, err)
}
