// Package reconcile drives every in-flight generation task to exactly one
// terminal outcome. Each watched task gets a poller goroutine; the webhook
// handler feeds observations into the same resolve path. Whoever performs
// the sticky database transition first notifies the user; the loser is a
// no-op.
package reconcile

import (
	"context"
	"time"

	"github.com/motionbotdev/motionbot/internal/kie"
	"github.com/motionbotdev/motionbot/internal/logging"
	"github.com/motionbotdev/motionbot/internal/messages"
	"github.com/motionbotdev/motionbot/internal/store"
	"github.com/motionbotdev/motionbot/internal/telegram"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultAnimInterval = 3 * time.Second
	defaultMaxWait      = 10 * time.Minute

	noOutputMsg = "no output produced"
	timedOutMsg = "generation timed out"
)

// Poller fetches the remote status of one task.
type Poller interface {
	Poll(ctx context.Context, taskID string) (*kie.Status, error)
}

type Reconciler struct {
	store  *store.Store
	poller Poller
	tg     telegram.API
	reg    *registry

	PollInterval time.Duration
	AnimInterval time.Duration
	MaxWait      time.Duration
}

var recLog = logging.Component("reconcile")

func New(st *store.Store, poller Poller, tg telegram.API) *Reconciler {
	return &Reconciler{
		store:        st,
		poller:       poller,
		tg:           tg,
		reg:          newRegistry(),
		PollInterval: defaultPollInterval,
		AnimInterval: defaultAnimInterval,
		MaxWait:      defaultMaxWait,
	}
}

// Watch starts a poller for the task unless one is already running.
func (r *Reconciler) Watch(ctx context.Context, taskID string, chatID int64) {
	runCtx, cancel := context.WithCancel(ctx)
	if !r.reg.add(taskID, cancel) {
		cancel()
		return
	}
	go r.run(runCtx, taskID, chatID)
}

// Watching reports whether a poller is live for the task.
func (r *Reconciler) Watching(taskID string) bool { return r.reg.watching(taskID) }

// ResumePending restarts pollers for every non-terminal task. Called once
// at startup so a restart does not orphan in-flight generations.
func (r *Reconciler) ResumePending(ctx context.Context) error {
	tasks, err := r.store.ListActiveTasks(ctx)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		recLog.WithField("task_id", t.TaskID).Info("resuming task watch")
		r.Watch(ctx, t.TaskID, t.ChatID)
	}
	return nil
}

// run is the poll loop for one task. It owns the progress message: it sends
// it, animates it, and deletes it on the way out regardless of who resolved
// the task.
func (r *Reconciler) run(ctx context.Context, taskID string, chatID int64) {
	defer r.reg.remove(taskID)

	start := time.Now()

	var progressID int
	if msg, err := r.tg.SendMessage(chatID, messages.Generating, nil); err == nil {
		progressID = msg.MessageID
	}
	defer func() {
		if progressID != 0 {
			if err := r.tg.DeleteMessage(chatID, progressID); err != nil {
				recLog.WithError(err).Debug("delete progress message")
			}
		}
	}()

	anim := time.NewTicker(r.AnimInterval)
	defer anim.Stop()
	poll := time.NewTicker(r.PollInterval)
	defer poll.Stop()
	deadline := time.NewTimer(r.MaxWait)
	defer deadline.Stop()

	frame := 0
	for {
		select {
		case <-ctx.Done():
			// Canceled: the webhook resolved the task first.
			return

		case <-anim.C:
			frame++
			if progressID != 0 {
				if err := r.tg.EditMessageText(chatID, progressID, messages.GenerationProgress(time.Since(start), frame), nil); err != nil {
					recLog.WithError(err).Debug("edit progress message")
				}
			}

		case <-poll.C:
			st, err := r.poller.Poll(ctx, taskID)
			if err != nil {
				// Transient; the next tick retries.
				recLog.WithError(err).WithField("task_id", taskID).Warn("poll failed")
				continue
			}
			if st.State == kie.StateGenerating {
				if err := r.store.MarkTaskRunning(ctx, taskID); err != nil {
					recLog.WithError(err).WithField("task_id", taskID).Warn("mark running")
				}
			}
			if !st.Terminal() {
				continue
			}
			if _, err := r.Resolve(ctx, st); err != nil {
				recLog.WithError(err).WithField("task_id", taskID).Error("resolve from poll")
			}
			return

		case <-deadline.C:
			msg := timedOutMsg
			st := &kie.Status{TaskID: taskID, State: kie.StateFail, FailMsg: msg}
			if _, err := r.Resolve(ctx, st); err != nil {
				recLog.WithError(err).WithField("task_id", taskID).Error("resolve timeout")
			}
			return
		}
	}
}

// HandleCallback feeds a webhook observation into the resolve path. A
// non-terminal observation only refreshes the running marker.
func (r *Reconciler) HandleCallback(ctx context.Context, st *kie.Status) (won bool, err error) {
	if !st.Terminal() {
		if st.State == kie.StateGenerating {
			if err := r.store.MarkTaskRunning(ctx, st.TaskID); err != nil {
				return false, err
			}
		}
		return false, nil
	}
	return r.Resolve(ctx, st)
}

// Resolve applies one terminal observation. A success without any output
// URL is recorded as a failure; a success result is never left dangling
// without a video. Exactly one caller per task gets won=true and performs
// the user-visible side effects.
func (r *Reconciler) Resolve(ctx context.Context, st *kie.Status) (bool, error) {
	var videoURL string
	if st.State == kie.StateSuccess {
		urls := kie.ResultURLs(st.ResultJSON)
		if len(urls) == 0 {
			st = &kie.Status{TaskID: st.TaskID, State: kie.StateFail, FailMsg: noOutputMsg}
		} else {
			videoURL = urls[0]
		}
	}

	status := store.TaskFailed
	var resultJSON *string
	var failCode, failMsg *string
	if st.State == kie.StateSuccess {
		status = store.TaskSucceeded
		resultJSON = ptr(st.ResultJSON)
	} else {
		if st.FailCode != "" {
			failCode = ptr(st.FailCode)
		}
		if st.FailMsg != "" {
			failMsg = ptr(st.FailMsg)
		}
	}

	won, err := r.store.ResolveTask(ctx, st.TaskID, status, resultJSON, failCode, failMsg)
	if err != nil {
		return false, err
	}
	if !won {
		return false, nil
	}

	// Stop the poller if this resolution came from the webhook. A poller
	// resolving its own task finds no entry left; that is fine.
	r.reg.cancel(st.TaskID)

	task, err := r.store.GetTask(ctx, st.TaskID)
	if err != nil || task == nil {
		return true, err
	}

	if status == store.TaskSucceeded {
		r.notifySuccess(ctx, task, videoURL)
	} else {
		r.notifyFailure(ctx, task, st.FailCode, st.FailMsg)
	}
	return true, nil
}

func (r *Reconciler) notifySuccess(ctx context.Context, task *store.Task, videoURL string) {
	log := recLog.WithField("task_id", task.TaskID)

	state, err := r.store.GetUserState(ctx, task.UserID)
	if err != nil {
		log.WithError(err).Error("load user state")
	}

	// The task is already terminal and will never re-resolve, so the
	// library row is written regardless of the state read outcome. Only the
	// prompt comes from state, and it can be absent.
	lv := &store.LibraryVideo{
		TaskID:   task.TaskID,
		UserID:   task.UserID,
		VideoURL: videoURL,
	}
	if state != nil {
		lv.Prompt = state.Prompt
	}
	if err := r.store.UpsertLibraryVideo(ctx, lv); err != nil {
		log.WithError(err).Error("save library video")
	}

	if state != nil {
		// Back to idle, keeping TaskID so an immediate upload can find the
		// finished video.
		state.State = store.StateIdle
		if err := r.store.SaveUserState(ctx, state); err != nil {
			log.WithError(err).Error("reset user state")
		}
	}

	// With a channel configured the success message carries a one-tap
	// publish button; otherwise the plain main keyboard.
	var markup telegram.ReplyMarkup = messages.MainKeyboard()
	cred, err := r.store.GetActiveCredential(ctx, task.UserID)
	if err != nil {
		log.WithError(err).Warn("load channel credential")
	}
	if cred != nil {
		markup = messages.PublishKeyboard(task.TaskID)
	}

	if _, err := r.tg.SendMessage(task.ChatID, messages.GenerationSucceeded, markup); err != nil {
		log.WithError(err).Error("send success message")
	}
	if err := r.tg.SendVideo(task.ChatID, videoURL); err != nil {
		log.WithError(err).Error("send generated video")
	}
	log.Info("task succeeded")
}

func (r *Reconciler) notifyFailure(ctx context.Context, task *store.Task, failCode, failMsg string) {
	log := recLog.WithField("task_id", task.TaskID)

	state, err := r.store.GetUserState(ctx, task.UserID)
	if err == nil && state != nil {
		state.State = store.StateIdle
		state.TaskID = nil
		if err := r.store.SaveUserState(ctx, state); err != nil {
			log.WithError(err).Error("reset user state")
		}
	}

	text := messages.GenerationFailed(failCode, failMsg)
	switch failMsg {
	case timedOutMsg:
		text = messages.GenerationTimedOut
	case noOutputMsg:
		text = messages.GenerationNoURL
	}
	if _, err := r.tg.SendMessage(task.ChatID, text, messages.MainKeyboard()); err != nil {
		log.WithError(err).Error("send failure message")
	}
	log.WithField("fail_msg", failMsg).Info("task failed")
}

func ptr(s string) *string { return &s }
