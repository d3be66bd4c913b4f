package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"videogate/internal/domain/entity"
)

type pipelineHarness struct {
	repo     *fakeLifecycleRepo
	notifier *fakeNotifier
	store    *fakeBlobStore
	pipeline *PipelineUseCase
}

func newPipelineHarness(t *testing.T, service ModerationService, videoIDs ...string) *pipelineHarness {
	t.Helper()
	repo := newFakeLifecycleRepo(videoIDs...)
	notifier := &fakeNotifier{}
	store := newFakeBlobStore()
	lifecycle := NewLifecycle(repo, notifier, newFakeStatusCache(), testLogger())
	adapter := NewFormatAdapter(store, &fakeTranscoder{}, t.TempDir(), testLogger())
	poller := newTestPoller(service)
	return &pipelineHarness{
		repo:     repo,
		notifier: notifier,
		store:    store,
		pipeline: NewPipelineUseCase(lifecycle, adapter, poller, testLogger()),
	}
}

func uploadedMsg(videoID, key string) entity.VideoUploadedMessage {
	return entity.VideoUploadedMessage{
		VideoID:  videoID,
		UserID:   "user-1",
		OrgID:    "org-1",
		S3Key:    key,
		MimeType: "video/mp4",
	}
}

func TestPipelineCompletesFlagged(t *testing.T) {
	service := &scriptedModerationService{
		jobID: "job-1",
		script: []pollStep{
			inProgress(),
			inProgress(),
			succeeded(entity.ModerationLabel{Name: "Explicit", Confidence: 95}),
		},
	}
	h := newPipelineHarness(t, service, "v1")

	if err := h.pipeline.ProcessVideo(context.Background(), uploadedMsg("v1", "org/user/v1.mp4")); err != nil {
		t.Fatalf("ProcessVideo: %v", err)
	}

	state := h.repo.state("v1")
	if state.status != entity.StatusCompleted || state.sensitivity != entity.SensitivityFlagged || state.progress != 100 {
		t.Fatalf("unexpected final state: %+v", state)
	}

	events := h.notifier.channelEvents("user:user-1")
	final := events[len(events)-1]
	if final.Event != entity.EventCompleted || final.SensitivityStatus != entity.SensitivityFlagged {
		t.Fatalf("unexpected final event: %+v", final)
	}
}

func TestPipelineTimeoutFailsOnce(t *testing.T) {
	service := &scriptedModerationService{jobID: "job-1", script: []pollStep{inProgress()}}
	h := newPipelineHarness(t, service, "v1")
	h.pipeline.Poller.MaxAttempts = 5

	err := h.pipeline.ProcessVideo(context.Background(), uploadedMsg("v1", "org/user/v1.mp4"))
	if !errors.Is(err, ErrModerationTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}

	state := h.repo.state("v1")
	if state.status != entity.StatusFailed {
		t.Fatalf("status = %s, want failed", state.status)
	}
	if state.sensitivity != entity.SensitivityUnset {
		t.Fatalf("failed run must not record a verdict, got %s", state.sensitivity)
	}

	var failed, completed int
	for _, e := range h.notifier.channelEvents("user:user-1") {
		switch e.Event {
		case entity.EventFailed:
			failed++
		case entity.EventCompleted:
			completed++
		}
	}
	if failed != 1 || completed != 0 {
		t.Fatalf("got %d failed and %d completed events, want exactly 1 and 0", failed, completed)
	}
}

func TestPipelineTranscodeFailureFails(t *testing.T) {
	service := &scriptedModerationService{jobID: "job-1", script: []pollStep{succeeded()}}
	h := newPipelineHarness(t, service, "v1")
	h.pipeline.Adapter.Transcoder = &fakeTranscoder{err: errors.New("codec error")}
	h.store.objects["org/user/v1.webm"] = []byte("webm-bytes")

	msg := uploadedMsg("v1", "org/user/v1.webm")
	msg.MimeType = "video/webm"
	if err := h.pipeline.ProcessVideo(context.Background(), msg); err == nil {
		t.Fatal("expected pipeline failure")
	}

	if state := h.repo.state("v1"); state.status != entity.StatusFailed {
		t.Fatalf("status = %s, want failed", state.status)
	}
	if service.polls != 0 {
		t.Fatal("moderation must not run after a transcode failure")
	}
}

func TestPipelineFailOpenCompletesSafe(t *testing.T) {
	service := &scriptedModerationService{
		jobID:  "job-1",
		script: []pollStep{{result: &entity.ModerationResult{Status: entity.ModerationFailed}}},
	}
	h := newPipelineHarness(t, service, "v1")

	if err := h.pipeline.ProcessVideo(context.Background(), uploadedMsg("v1", "org/user/v1.mp4")); err != nil {
		t.Fatal(err)
	}

	state := h.repo.state("v1")
	if state.status != entity.StatusCompleted || state.sensitivity != entity.SensitivitySafe {
		t.Fatalf("unexpected state after fail-open: %+v", state)
	}
}

func TestPipelineConcurrentRunsAreIndependent(t *testing.T) {
	serviceA := &scriptedModerationService{
		jobID: "job-a",
		script: []pollStep{
			inProgress(), inProgress(), inProgress(),
			succeeded(entity.ModerationLabel{Name: "Explicit", Confidence: 95}),
		},
	}
	serviceB := &scriptedModerationService{
		jobID:  "job-b",
		script: []pollStep{inProgress(), succeeded()},
	}

	repo := newFakeLifecycleRepo("va", "vb")
	notifier := &fakeNotifier{}
	lifecycle := NewLifecycle(repo, notifier, newFakeStatusCache(), testLogger())
	adapter := NewFormatAdapter(newFakeBlobStore(), &fakeTranscoder{}, t.TempDir(), testLogger())

	pipelineA := NewPipelineUseCase(lifecycle, adapter, newTestPoller(serviceA), testLogger())
	pipelineB := NewPipelineUseCase(lifecycle, adapter, newTestPoller(serviceB), testLogger())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		msgA := uploadedMsg("va", "org/user/va.mp4")
		if err := pipelineA.ProcessVideo(context.Background(), msgA); err != nil {
			t.Errorf("pipeline A: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		msgB := uploadedMsg("vb", "org/user/vb.mp4")
		msgB.UserID = "user-2"
		if err := pipelineB.ProcessVideo(context.Background(), msgB); err != nil {
			t.Errorf("pipeline B: %v", err)
		}
	}()
	wg.Wait()

	stateA := repo.state("va")
	stateB := repo.state("vb")
	if stateA.status != entity.StatusCompleted || stateA.sensitivity != entity.SensitivityFlagged || stateA.progress != 100 {
		t.Fatalf("run A corrupted: %+v", stateA)
	}
	if stateB.status != entity.StatusCompleted || stateB.sensitivity != entity.SensitivitySafe || stateB.progress != 100 {
		t.Fatalf("run B corrupted: %+v", stateB)
	}

	// Per-video event streams stay ordered regardless of interleaving.
	for _, user := range []string{"user-1", "user-2"} {
		last := -1
		for _, e := range notifier.channelEvents(entity.UserChannel(user)) {
			if e.Event == entity.EventProcessing && e.Progress != nil {
				if *e.Progress < last {
					t.Fatalf("progress regression on %s channel", user)
				}
				last = *e.Progress
			}
		}
	}
}
