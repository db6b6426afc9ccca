package main

import (
	"log/slog"
	"ratemyreel/proj/internal/config"
	"ratemyreel/proj/internal/lib/validator"
	"ratemyreel/proj/internal/services"
	"sync"

	govalidator "github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
)

type TaskQueue interface {
	TryAdd(name string, task func()) error
}

type Application struct {
	cfg       *config.Config
	log       *slog.Logger
	Http      *Http
	Services  *services.Services
	tasks     TaskQueue
	validator *govalidator.Validate
	decoder   *schema.Decoder
	done      chan struct{}
	closeOnce sync.Once
}

func NewApplication(cfg *config.Config, log *slog.Logger, services *services.Services, tasks TaskQueue) *Application {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	return &Application{
		cfg:       cfg,
		log:       log,
		validator: validator.New(),
		decoder:   decoder,
		Services:  services,
		tasks:     tasks,
		done:      make(chan struct{}),
		Http: &Http{
			log: log,
			cfg: cfg,
		},
	}
}

// Close stops goroutines started by the middlewares. Safe to call more than once.
func (app *Application) Close() {
	app.closeOnce.Do(func() { close(app.done) })
}
