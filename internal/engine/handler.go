package engine

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/eduvoyage/admin-gateway/internal/notify"
	"github.com/eduvoyage/admin-gateway/internal/state"
	"github.com/eduvoyage/admin-gateway/internal/transport"
	appErrors "github.com/eduvoyage/admin-gateway/pkg/errors"
	"github.com/eduvoyage/admin-gateway/pkg/export"
)

// Entity is the supervisor's view of one registered entity handler.
type Entity interface {
	Name() string
	Handle(ctx context.Context, t Trigger)
	StateSnapshot() interface{}
	ExportDataset() (export.Dataset, error)
}

// Handler turns triggers for one entity into one upstream call (plus a
// lookup fetch when a guarded delete targets an item missing from local
// state) and exactly one terminal state transition. It never panics out:
// every failure path, including a panicking unwrap, converts to the failed
// transition so loading cannot stick.
type Handler[T any] struct {
	cfg       EntityConfig[T]
	container *state.Container[T]
	sender    transport.Sender
	notifier  *notify.Notifier
	validate  *validator.Validate
	logger    *zap.Logger
	baseURL   string
	refetch   func(entity string)
}

// HandlerDeps carries the collaborators shared by every entity handler.
type HandlerDeps struct {
	Sender   transport.Sender
	Notifier *notify.Notifier
	Validate *validator.Validate
	Logger   *zap.Logger
	BaseURL  string
	// Refetch enqueues a list re-fetch for the entity after a mutation.
	Refetch func(entity string)
}

// NewHandler builds the effect handler for one entity.
func NewHandler[T any](cfg EntityConfig[T], deps HandlerDeps) (*Handler[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.DeleteVerb == "" {
		cfg.DeleteVerb = http.MethodDelete
	}
	if deps.Validate == nil {
		deps.Validate = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Handler[T]{
		cfg:       cfg,
		container: state.NewContainer[T](cfg.KeyOf, cfg.PrependOnCreate),
		sender:    deps.Sender,
		notifier:  deps.Notifier,
		validate:  deps.Validate,
		logger:    deps.Logger.With(zap.String("entity", cfg.Name)),
		baseURL:   deps.BaseURL,
		refetch:   deps.Refetch,
	}, nil
}

// Name returns the trigger namespace.
func (h *Handler[T]) Name() string { return h.cfg.Name }

// Container exposes the state container for composition and tests.
func (h *Handler[T]) Container() *state.Container[T] { return h.container }

// StateSnapshot returns a copy of the current entity state.
func (h *Handler[T]) StateSnapshot() interface{} { return h.container.Snapshot() }

// ExportDataset flattens the current items for CSV/PDF export.
func (h *Handler[T]) ExportDataset() (export.Dataset, error) {
	snapshot := h.container.Snapshot()
	return export.FromItems(snapshot.Items)
}

// Handle processes one trigger through the start -> request -> terminal
// sequence. Exactly one terminal transition is emitted per call.
func (h *Handler[T]) Handle(ctx context.Context, t Trigger) {
	h.container.Started()

	defer func() {
		if r := recover(); r != nil {
			err := appErrors.Wrap(fmt.Errorf("%v", r), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "effect handler panicked")
			h.fail(t, err)
		}
	}()

	switch t.Op {
	case OpList:
		h.handleList(ctx, t)
	case OpGet:
		h.handleGet(ctx, t)
	case OpCreate:
		h.handleCreate(ctx, t)
	case OpUpdate:
		h.handleUpdate(ctx, t)
	case OpSoftDelete, OpHardDelete:
		h.handleDelete(ctx, t)
	case OpCount:
		h.handleCount(ctx, t)
	default:
		h.fail(t, appErrors.Validation(fmt.Sprintf("unknown operation %q", t.Op)))
	}
}

func (h *Handler[T]) handleList(ctx context.Context, t Trigger) {
	var query interface{}
	if len(t.Payload) > 0 {
		var fields map[string]interface{}
		if err := json.Unmarshal(t.Payload, &fields); err != nil {
			h.fail(t, appErrors.Validation("list payload must be a query object"))
			return
		}
		if len(fields) > 0 {
			query = fields
		}
	}

	raw, err := h.sender.Send(ctx, transport.Descriptor{
		Endpoint: h.endpoint(""),
		Method:   http.MethodGet,
		AuthMode: transport.AuthBearer,
		Body:     query,
	})
	if err != nil {
		h.fail(t, appErrors.FromError(err))
		return
	}

	items, total, err := unwrapList[T](raw)
	if err != nil {
		h.fail(t, appErrors.Transport(err.Error(), 0))
		return
	}
	h.container.ListSucceeded(items, total)
}

func (h *Handler[T]) handleGet(ctx context.Context, t Trigger) {
	var payload IDPayload
	if err := h.decode(t.Payload, &payload); err != nil {
		h.fail(t, err)
		return
	}

	raw, err := h.sender.Send(ctx, transport.Descriptor{
		Endpoint: h.endpoint(payload.ID),
		Method:   http.MethodGet,
		AuthMode: transport.AuthBearer,
	})
	if err != nil {
		h.fail(t, appErrors.FromError(err))
		return
	}

	item, err := unwrapItem[T](raw)
	if err != nil {
		h.fail(t, appErrors.Transport(err.Error(), 0))
		return
	}
	h.container.GetSucceeded(item)
}

func (h *Handler[T]) handleCreate(ctx context.Context, t Trigger) {
	draft, draftErr := h.draftFromPayload(t.Payload)
	if draftErr != nil {
		h.fail(t, draftErr)
		return
	}

	body, bodyErr := h.createBody(t.Payload, draft)
	if bodyErr != nil {
		h.fail(t, appErrors.FromError(bodyErr))
		return
	}

	raw, err := h.sender.Send(ctx, transport.Descriptor{
		Endpoint: h.endpoint(""),
		Method:   http.MethodPost,
		AuthMode: transport.AuthBearer,
		Body:     body,
	})
	if err != nil {
		h.fail(t, appErrors.FromError(err))
		return
	}

	item, err := unwrapItem[T](raw)
	if err != nil {
		// Some upstream create endpoints answer with a bare ack; fall back to
		// the submitted draft so the list still reflects the mutation.
		item = draft
	}
	h.container.CreateSucceeded(item)
	h.succeedMutation(t, "created")
}

func (h *Handler[T]) handleUpdate(ctx context.Context, t Trigger) {
	var payload UpdatePayload
	if err := h.decode(t.Payload, &payload); err != nil {
		h.fail(t, err)
		return
	}

	var body interface{}
	if err := json.Unmarshal(payload.Data, &body); err != nil {
		h.fail(t, appErrors.Validation("update data must be a JSON document"))
		return
	}

	raw, err := h.sender.Send(ctx, transport.Descriptor{
		Endpoint: h.endpoint(payload.ID),
		Method:   http.MethodPut,
		AuthMode: transport.AuthBearer,
		Body:     body,
	})
	if err != nil {
		h.fail(t, appErrors.FromError(err))
		return
	}

	item, err := unwrapItem[T](raw)
	if err != nil || h.cfg.KeyOf(item) == "" {
		item, err = h.itemFromPatch(payload)
		if err != nil {
			h.fail(t, appErrors.FromError(err))
			return
		}
	}
	h.container.UpdateSucceeded(item)
	h.succeedMutation(t, "updated")
}

func (h *Handler[T]) handleDelete(ctx context.Context, t Trigger) {
	var payload IDPayload
	if err := h.decode(t.Payload, &payload); err != nil {
		h.fail(t, err)
		return
	}

	if h.cfg.GuardDelete != nil {
		item, found := h.container.Lookup(payload.ID)
		if !found {
			// Cold state: fetch the target so the guard can inspect it
			// instead of waving the delete through.
			fetched, err := h.fetchItem(ctx, payload.ID)
			if err != nil {
				h.fail(t, appErrors.FromError(err))
				return
			}
			item = fetched
		}
		if err := h.cfg.GuardDelete(item); err != nil {
			h.fail(t, appErrors.FromError(err))
			return
		}
	}

	verb := h.cfg.DeleteVerb
	if verb == "" {
		verb = http.MethodDelete
	}
	if _, err := h.sender.Send(ctx, transport.Descriptor{
		Endpoint: h.endpoint(payload.ID),
		Method:   verb,
		AuthMode: transport.AuthBearer,
	}); err != nil {
		h.fail(t, appErrors.FromError(err))
		return
	}

	h.container.DeleteSucceeded(payload.ID)
	h.succeedMutation(t, "deleted")
}

func (h *Handler[T]) handleCount(ctx context.Context, t Trigger) {
	if !h.cfg.HasCountEndpoint {
		// Derived count: refresh the list and take its length.
		h.handleList(ctx, Trigger{ID: t.ID, Entity: t.Entity, Op: OpList})
		return
	}

	raw, err := h.sender.Send(ctx, transport.Descriptor{
		Endpoint: h.endpoint("count"),
		Method:   http.MethodGet,
		AuthMode: transport.AuthBearer,
	})
	if err != nil {
		h.fail(t, appErrors.FromError(err))
		return
	}

	total, err := unwrapCount(raw)
	if err != nil {
		h.fail(t, appErrors.Transport(err.Error(), 0))
		return
	}
	h.container.CountSucceeded(total)
}

// fetchItem retrieves one document from upstream so a configured guard can
// inspect a target that local state does not hold yet.
func (h *Handler[T]) fetchItem(ctx context.Context, id string) (T, error) {
	var zero T
	raw, err := h.sender.Send(ctx, transport.Descriptor{
		Endpoint: h.endpoint(id),
		Method:   http.MethodGet,
		AuthMode: transport.AuthBearer,
	})
	if err != nil {
		return zero, err
	}
	item, err := unwrapItem[T](raw)
	if err != nil {
		return zero, appErrors.Transport(err.Error(), 0)
	}
	return item, nil
}

// draftFromPayload decodes a create payload into the entity type, stripping
// any file-upload fields first so their {name, content} objects do not clash
// with the entity's plain string fields.
func (h *Handler[T]) draftFromPayload(payload json.RawMessage) (T, *appErrors.Error) {
	var zero T
	if len(payload) == 0 {
		return zero, appErrors.Validation("trigger payload is required")
	}

	document := payload
	if len(h.cfg.FileFields) > 0 {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(payload, &fields); err == nil {
			for _, f := range h.cfg.FileFields {
				delete(fields, f)
			}
			if stripped, err := json.Marshal(fields); err == nil {
				document = stripped
			}
		}
	}

	var draft T
	if err := h.decode(document, &draft); err != nil {
		return zero, err
	}
	return draft, nil
}

// createBody selects JSON or multipart encoding for a create payload. A
// payload field listed in FileFields carrying {name, content} (content
// base64) switches the whole request to multipart.
func (h *Handler[T]) createBody(payload json.RawMessage, draft T) (interface{}, error) {
	if len(h.cfg.FileFields) == 0 {
		return draft, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return draft, nil
	}

	fileFields := make(map[string]struct{}, len(h.cfg.FileFields))
	for _, f := range h.cfg.FileFields {
		fileFields[f] = struct{}{}
	}

	mp := &transport.MultipartPayload{Fields: map[string]string{}}
	hasFile := false
	for key, raw := range fields {
		if _, ok := fileFields[key]; ok {
			var upload struct {
				Name    string `json:"name"`
				Content string `json:"content"`
			}
			if err := json.Unmarshal(raw, &upload); err != nil || upload.Content == "" {
				continue
			}
			content, err := base64.StdEncoding.DecodeString(upload.Content)
			if err != nil {
				return nil, appErrors.Validation(fmt.Sprintf("field %s is not valid base64", key))
			}
			mp.Files = append(mp.Files, transport.FilePart{FieldName: key, FileName: upload.Name, Content: content})
			hasFile = true
			continue
		}
		var asString string
		if err := json.Unmarshal(raw, &asString); err == nil {
			mp.Fields[key] = asString
		} else {
			mp.Fields[key] = string(raw)
		}
	}

	if !hasFile {
		return draft, nil
	}
	return mp, nil
}

// itemFromPatch reconstructs the updated item from the submitted patch when
// the upstream response does not echo the document back.
func (h *Handler[T]) itemFromPatch(payload UpdatePayload) (T, error) {
	var zero T
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload.Data, &fields); err != nil {
		return zero, appErrors.Validation("update data must be a JSON object")
	}
	idRaw, err := json.Marshal(payload.ID)
	if err != nil {
		return zero, appErrors.FromError(err)
	}
	fields["_id"] = idRaw
	merged, err := json.Marshal(fields)
	if err != nil {
		return zero, appErrors.FromError(err)
	}
	var item T
	if err := json.Unmarshal(merged, &item); err != nil {
		return zero, appErrors.Validation("update data does not match the entity shape")
	}
	return item, nil
}

func (h *Handler[T]) decode(payload json.RawMessage, dest interface{}) *appErrors.Error {
	if len(payload) == 0 {
		return appErrors.Validation("trigger payload is required")
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return appErrors.Validation(fmt.Sprintf("invalid trigger payload: %v", err))
	}
	if err := h.validate.Struct(dest); err != nil {
		if _, ok := err.(*validator.InvalidValidationError); !ok {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "trigger payload failed validation")
		}
	}
	return nil
}

func (h *Handler[T]) endpoint(suffix string) string {
	base := h.baseURL + "/" + h.cfg.Path
	if suffix == "" {
		return base
	}
	return base + "/" + suffix
}

func (h *Handler[T]) succeedMutation(t Trigger, verb string) {
	if h.notifier != nil {
		h.notifier.Success(h.cfg.Name, string(t.Op), fmt.Sprintf("%s %s", h.cfg.Name, verb))
	}
	if h.refetch != nil {
		h.refetch(h.cfg.Name)
	}
}

func (h *Handler[T]) fail(t Trigger, err *appErrors.Error) {
	h.container.Failed(err)
	if h.notifier != nil {
		h.notifier.Error(h.cfg.Name, string(t.Op), err.Message)
	}
	h.logger.Warn("trigger failed",
		zap.String("trigger_id", t.ID),
		zap.String("op", string(t.Op)),
		zap.String("code", err.Code),
		zap.Int("status", err.Status),
		zap.String("message", err.Message),
	)
}
