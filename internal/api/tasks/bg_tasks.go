package tasks

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var ErrQueueFull = errors.New("background tasks queue is full")

type Task = func()

type job struct {
	name string
	run  Task
}

// BackgroundTasks is a fixed pool of workers draining a bounded queue.
type BackgroundTasks struct {
	log        *slog.Logger
	tasks      chan job
	maxWorkers int
	wg         *sync.WaitGroup
	closeOnce  sync.Once
}

func New(log *slog.Logger, maxWorkers int, maxTasksQueueSize int) *BackgroundTasks {
	wg := &sync.WaitGroup{}
	wg.Add(maxWorkers)
	return &BackgroundTasks{
		log:        log,
		maxWorkers: maxWorkers,
		wg:         wg,
		tasks:      make(chan job, maxTasksQueueSize),
	}
}

func (t *BackgroundTasks) Run() {
	for i := 0; i < t.maxWorkers; i++ {
		go func() {
			defer t.wg.Done()
			log := t.log.With("worker", i)
			for j := range t.tasks {
				t.execute(log, j)
			}
		}()
	}
}

// execute keeps the worker alive when a task panics.
func (t *BackgroundTasks) execute(log *slog.Logger, j job) {
	defer func() {
		if err := recover(); err != nil {
			log.Error("panic", "task", j.name, "err", err)
		}
	}()
	j.run()
	log.Debug("task done", "task", j.name)
}

func (t *BackgroundTasks) Shutdown(ctx context.Context) error {
	const op = "tasks.BackgroundTasks.Shutdown"
	log := t.log.With("op", op)
	log.Info("shutting down background tasks")
	t.closeOnce.Do(func() { close(t.tasks) })
	shutdownCh := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(shutdownCh)
	}()
	select {
	case <-ctx.Done():
		log.Warn("graceful shutdown timed out.. forcing exit", "timeout", ctx.Err())
		return ctx.Err()
	case <-shutdownCh:
		log.Info("background tasks successfully stopped")
		return nil
	}
}

// Add blocks while the queue is full.
func (t *BackgroundTasks) Add(name string, task Task) {
	t.tasks <- job{name: name, run: task}
}

// TryAdd drops the task instead of blocking a request handler.
func (t *BackgroundTasks) TryAdd(name string, task Task) error {
	select {
	case t.tasks <- job{name: name, run: task}:
		return nil
	default:
		t.log.Warn("task dropped", "task", name)
		return ErrQueueFull
	}
}

func (t *BackgroundTasks) IsEmpty() bool {
	return len(t.tasks) == 0
}
