package registry

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eduvoyage/admin-gateway/internal/engine"
	"github.com/eduvoyage/admin-gateway/internal/models"
	"github.com/eduvoyage/admin-gateway/internal/notify"
	"github.com/eduvoyage/admin-gateway/internal/transport"
	appErrors "github.com/eduvoyage/admin-gateway/pkg/errors"
	"github.com/eduvoyage/admin-gateway/pkg/jobs"
)

// ProtectedCountry is the destination that can never be deleted from the
// console; the guard short-circuits before any upstream request.
const ProtectedCountry = "india"

// Deps carries the shared collaborators for all entity handlers.
type Deps struct {
	Sender         transport.Sender
	Notifier       *notify.Notifier
	Validate       *validator.Validate
	Logger         *zap.Logger
	BaseURL        string
	TriggerBuffer  int
	RefetchWorkers int
}

// Registry owns the supervisor plus the re-fetch queue that refreshes an
// entity's list after each successful mutation.
type Registry struct {
	Supervisor *engine.Supervisor
	refetch    *jobs.Queue
}

// Build registers every console entity with the supervisor.
func Build(deps Deps) (*Registry, error) {
	sup := engine.NewSupervisor(deps.TriggerBuffer, deps.Logger)

	refetch := jobs.NewQueue("refetch", func(ctx context.Context, job jobs.Job) error {
		return sup.Dispatch(engine.NewTrigger(job.Entity, engine.OpList, nil))
	}, jobs.QueueConfig{
		Workers: deps.RefetchWorkers,
		Logger:  deps.Logger,
	})

	hd := engine.HandlerDeps{
		Sender:   deps.Sender,
		Notifier: deps.Notifier,
		Validate: deps.Validate,
		Logger:   deps.Logger,
		BaseURL:  deps.BaseURL,
		Refetch: func(entity string) {
			job := jobs.Job{ID: uuid.NewString(), Type: "list_refetch", Entity: entity}
			if err := refetch.Enqueue(job); err != nil && deps.Logger != nil {
				deps.Logger.Warn("refetch enqueue failed", zap.String("entity", entity), zap.Error(err))
			}
		},
	}

	if err := registerAll(sup, hd); err != nil {
		return nil, err
	}

	return &Registry{Supervisor: sup, refetch: refetch}, nil
}

// Start launches the re-fetch workers and the entity listeners.
func (r *Registry) Start(ctx context.Context) {
	r.refetch.Start(ctx)
	r.Supervisor.Start(ctx)
}

// Stop shuts both down, listeners first so nothing enqueues into a stopped
// queue.
func (r *Registry) Stop() {
	r.Supervisor.Stop()
	r.refetch.Stop()
}

func registerAll(sup *engine.Supervisor, hd engine.HandlerDeps) error {
	// Delete verbs and insertion conventions are entity-specific on purpose:
	// they reproduce the behaviour the console's users already rely on.
	if err := register(sup, engine.EntityConfig[models.Country]{
		Name:             "country",
		Path:             "countries",
		KeyOf:            func(c models.Country) string { return c.ID },
		DeleteVerb:       http.MethodDelete,
		HasCountEndpoint: true,
		FileFields:       []string{"flag"},
		GuardDelete: func(c models.Country) error {
			if strings.EqualFold(c.Name, ProtectedCountry) {
				return appErrors.DomainPolicy("country " + c.Name + " cannot be deleted")
			}
			return nil
		},
	}, hd); err != nil {
		return err
	}

	if err := register(sup, engine.EntityConfig[models.Job]{
		Name:             "job",
		Path:             "jobs",
		KeyOf:            func(j models.Job) string { return j.ID },
		DeleteVerb:       http.MethodPatch,
		HasCountEndpoint: true,
		FileFields:       []string{"image"},
	}, hd); err != nil {
		return err
	}

	if err := register(sup, engine.EntityConfig[models.Candidate]{
		Name:             "candidate",
		Path:             "candidates",
		KeyOf:            func(c models.Candidate) string { return c.ID },
		DeleteVerb:       http.MethodPatch,
		HasCountEndpoint: true,
		FileFields:       []string{"photo"},
	}, hd); err != nil {
		return err
	}

	if err := register(sup, engine.EntityConfig[models.Course]{
		Name:             "course",
		Path:             "courses",
		KeyOf:            func(c models.Course) string { return c.ID },
		DeleteVerb:       http.MethodPatch,
		HasCountEndpoint: true,
	}, hd); err != nil {
		return err
	}

	if err := register(sup, engine.EntityConfig[models.College]{
		Name:             "college",
		Path:             "colleges",
		KeyOf:            func(c models.College) string { return c.ID },
		DeleteVerb:       http.MethodPatch,
		HasCountEndpoint: true,
		FileFields:       []string{"logo"},
	}, hd); err != nil {
		return err
	}

	if err := register(sup, engine.EntityConfig[models.Certificate]{
		Name:       "certificate",
		Path:       "certificates",
		KeyOf:      func(c models.Certificate) string { return c.ID },
		DeleteVerb: http.MethodDelete,
	}, hd); err != nil {
		return err
	}

	if err := register(sup, engine.EntityConfig[models.Coupon]{
		Name:       "coupon",
		Path:       "coupons",
		KeyOf:      func(c models.Coupon) string { return c.ID },
		DeleteVerb: http.MethodDelete,
	}, hd); err != nil {
		return err
	}

	if err := register(sup, engine.EntityConfig[models.Bundle]{
		Name:       "package",
		Path:       "packages",
		KeyOf:      func(b models.Bundle) string { return b.ID },
		DeleteVerb: http.MethodDelete,
	}, hd); err != nil {
		return err
	}

	if err := register(sup, engine.EntityConfig[models.Blog]{
		Name:            "blog",
		Path:            "blogs",
		KeyOf:           func(b models.Blog) string { return b.ID },
		DeleteVerb:      http.MethodPatch,
		PrependOnCreate: true,
		FileFields:      []string{"image"},
	}, hd); err != nil {
		return err
	}

	if err := register(sup, engine.EntityConfig[models.GalleryItem]{
		Name:            "gallery",
		Path:            "gallery",
		KeyOf:           func(g models.GalleryItem) string { return g.ID },
		DeleteVerb:      http.MethodDelete,
		PrependOnCreate: true,
		FileFields:      []string{"image"},
	}, hd); err != nil {
		return err
	}

	if err := register(sup, engine.EntityConfig[models.Intake]{
		Name:       "intake",
		Path:       "intakes",
		KeyOf:      func(i models.Intake) string { return i.ID },
		DeleteVerb: http.MethodPatch,
	}, hd); err != nil {
		return err
	}

	return nil
}

func register[T any](sup *engine.Supervisor, cfg engine.EntityConfig[T], hd engine.HandlerDeps) error {
	h, err := engine.NewHandler(cfg, hd)
	if err != nil {
		return err
	}
	return sup.Register(h)
}
