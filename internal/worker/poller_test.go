package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mocks "github.com/aliskhannn/notification-dispatcher/internal/mocks/worker"
	"github.com/aliskhannn/notification-dispatcher/internal/model"
	"github.com/aliskhannn/notification-dispatcher/internal/service/dispatch"
)

func TestPoller_RunTriggersDispatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockDispatcher := mocks.NewMockdispatcher(ctrl)

	var calls atomic.Int32
	mockDispatcher.EXPECT().Run(gomock.Any()).DoAndReturn(
		func(context.Context) (*model.Report, error) {
			calls.Add(1)
			report := model.NewReport(uuid.New())
			report.Processed = 1
			return report, nil
		},
	).MinTimes(2)

	p := NewPoller(mockDispatcher, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancellation")
	}
}

func TestPoller_TickToleratesErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockDispatcher := mocks.NewMockdispatcher(ctrl)

	idle := model.NewReport(uuid.New())
	idle.MarkIdle()

	gomock.InOrder(
		mockDispatcher.EXPECT().Run(gomock.Any()).Return(nil, dispatch.ErrRunInProgress),
		mockDispatcher.EXPECT().Run(gomock.Any()).Return(nil, errors.New("connection refused")),
		mockDispatcher.EXPECT().Run(gomock.Any()).Return(idle, nil),
	)

	p := NewPoller(mockDispatcher, time.Minute)

	assert.NotPanics(t, func() {
		p.tick(context.Background())
		p.tick(context.Background())
		p.tick(context.Background())
	})
}

func TestPoller_TickIgnoresShutdownSignal(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockDispatcher := mocks.NewMockdispatcher(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mockDispatcher.EXPECT().Run(gomock.Any()).DoAndReturn(
		func(runCtx context.Context) (*model.Report, error) {
			assert.NoError(t, runCtx.Err())
			return model.NewReport(uuid.New()), nil
		},
	)

	NewPoller(mockDispatcher, time.Minute).tick(ctx)
}
