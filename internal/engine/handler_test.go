package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduvoyage/admin-gateway/internal/models"
	"github.com/eduvoyage/admin-gateway/internal/notify"
	"github.com/eduvoyage/admin-gateway/internal/transport"
	appErrors "github.com/eduvoyage/admin-gateway/pkg/errors"
)

// scriptedSender answers upstream calls from a test-provided function and
// records every descriptor it sees.
type scriptedSender struct {
	mu      sync.Mutex
	calls   []transport.Descriptor
	respond func(d transport.Descriptor) (json.RawMessage, error)
}

func (s *scriptedSender) Send(_ context.Context, d transport.Descriptor) (json.RawMessage, error) {
	s.mu.Lock()
	s.calls = append(s.calls, d)
	s.mu.Unlock()
	if s.respond == nil {
		return json.RawMessage("null"), nil
	}
	return s.respond(d)
}

func (s *scriptedSender) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *scriptedSender) lastCall() transport.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return transport.Descriptor{}
	}
	return s.calls[len(s.calls)-1]
}

func countryConfig() EntityConfig[models.Country] {
	return EntityConfig[models.Country]{
		Name:             "country",
		Path:             "countries",
		KeyOf:            func(c models.Country) string { return c.ID },
		DeleteVerb:       http.MethodDelete,
		HasCountEndpoint: true,
	}
}

func newCountryHandler(t *testing.T, sender transport.Sender, refetched *[]string) *Handler[models.Country] {
	t.Helper()
	deps := HandlerDeps{
		Sender:   sender,
		Notifier: notify.NewNotifier(10, nil),
		BaseURL:  "http://upstream/api",
	}
	if refetched != nil {
		deps.Refetch = func(entity string) { *refetched = append(*refetched, entity) }
	}
	h, err := NewHandler(countryConfig(), deps)
	require.NoError(t, err)
	return h
}

func TestCreateAppendsReturnedDocument(t *testing.T) {
	sender := &scriptedSender{respond: func(d transport.Descriptor) (json.RawMessage, error) {
		return json.RawMessage(`{"data":{"_id":"c1","name":"France","code":"FR"}}`), nil
	}}
	var refetched []string
	h := newCountryHandler(t, sender, &refetched)

	h.Handle(context.Background(), NewTrigger("country", OpCreate, json.RawMessage(`{"name":"France","code":"FR"}`)))

	snap := h.Container().Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "c1", snap.Items[0].ID)
	assert.Equal(t, 1, snap.Count)
	assert.False(t, snap.Loading)
	assert.Nil(t, snap.Error)
	assert.Equal(t, []string{"country"}, refetched)

	call := sender.lastCall()
	assert.Equal(t, http.MethodPost, call.Method)
	assert.Equal(t, "http://upstream/api/countries", call.Endpoint)
	assert.Equal(t, transport.AuthBearer, call.AuthMode)
}

func TestUpdateFailurePreservesItems(t *testing.T) {
	listed := true
	sender := &scriptedSender{respond: func(d transport.Descriptor) (json.RawMessage, error) {
		if listed {
			listed = false
			return json.RawMessage(`{"data":[{"_id":"a","name":"Albania","code":"AL"}],"total":1}`), nil
		}
		return nil, appErrors.Transport("not found", 404)
	}}
	h := newCountryHandler(t, sender, nil)

	h.Handle(context.Background(), NewTrigger("country", OpList, nil))
	require.Len(t, h.Container().Snapshot().Items, 1)

	h.Handle(context.Background(), NewTrigger("country", OpUpdate, json.RawMessage(`{"id":"a","data":{"name":"Albania","code":"ALB"}}`)))

	snap := h.Container().Snapshot()
	require.NotNil(t, snap.Error)
	assert.Equal(t, "not found", snap.Error.Message)
	assert.Equal(t, 404, snap.Error.Status)
	assert.False(t, snap.Loading)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "AL", snap.Items[0].Code)
}

func TestListBareArrayDerivesCount(t *testing.T) {
	sender := &scriptedSender{respond: func(d transport.Descriptor) (json.RawMessage, error) {
		return json.RawMessage(`[{"_id":"b1","title":"One"},{"_id":"b2","title":"Two"}]`), nil
	}}
	h, err := NewHandler(EntityConfig[models.Blog]{
		Name:            "blog",
		Path:            "blogs",
		KeyOf:           func(b models.Blog) string { return b.ID },
		PrependOnCreate: true,
	}, HandlerDeps{Sender: sender})
	require.NoError(t, err)

	h.Handle(context.Background(), NewTrigger("blog", OpList, nil))

	snap := h.Container().Snapshot()
	assert.Len(t, snap.Items, 2)
	assert.Equal(t, 2, snap.Count)
}

func TestDeleteGuardShortCircuitsBeforeTransport(t *testing.T) {
	listed := true
	sender := &scriptedSender{respond: func(d transport.Descriptor) (json.RawMessage, error) {
		if listed {
			listed = false
			return json.RawMessage(`{"data":[{"_id":"in","name":"India","code":"IN"}]}`), nil
		}
		t.Fatal("delete must not reach the transport")
		return nil, nil
	}}

	cfg := countryConfig()
	cfg.GuardDelete = func(c models.Country) error {
		if c.Name == "India" {
			return appErrors.DomainPolicy("country India cannot be deleted")
		}
		return nil
	}
	h, err := NewHandler(cfg, HandlerDeps{Sender: sender})
	require.NoError(t, err)

	h.Handle(context.Background(), NewTrigger("country", OpList, nil))
	before := sender.callCount()

	h.Handle(context.Background(), NewTrigger("country", OpHardDelete, json.RawMessage(`{"id":"in"}`)))

	assert.Equal(t, before, sender.callCount())
	snap := h.Container().Snapshot()
	require.NotNil(t, snap.Error)
	assert.Equal(t, appErrors.ErrDomainPolicy.Code, snap.Error.Code)
	require.Len(t, snap.Items, 1)
}

// A guarded delete with no local copy of the target must not fail open: the
// handler fetches the document so the guard can inspect it, and the delete
// verb is never sent for a refused target.
func TestDeleteGuardFetchesTargetOnColdState(t *testing.T) {
	sender := &scriptedSender{respond: func(d transport.Descriptor) (json.RawMessage, error) {
		if d.Method == http.MethodGet {
			return json.RawMessage(`{"data":{"_id":"in","name":"India","code":"IN"}}`), nil
		}
		t.Fatal("delete must not reach the transport")
		return nil, nil
	}}

	cfg := countryConfig()
	cfg.GuardDelete = func(c models.Country) error {
		if c.Name == "India" {
			return appErrors.DomainPolicy("country India cannot be deleted")
		}
		return nil
	}
	h, err := NewHandler(cfg, HandlerDeps{Sender: sender})
	require.NoError(t, err)

	h.Handle(context.Background(), NewTrigger("country", OpHardDelete, json.RawMessage(`{"id":"in"}`)))

	assert.Equal(t, 1, sender.callCount())
	assert.Equal(t, http.MethodGet, sender.lastCall().Method)
	snap := h.Container().Snapshot()
	require.NotNil(t, snap.Error)
	assert.Equal(t, appErrors.ErrDomainPolicy.Code, snap.Error.Code)
}

func TestDeleteGuardColdStateAllowsOtherTargets(t *testing.T) {
	sender := &scriptedSender{respond: func(d transport.Descriptor) (json.RawMessage, error) {
		if d.Method == http.MethodGet {
			return json.RawMessage(`{"data":{"_id":"fr","name":"France","code":"FR"}}`), nil
		}
		return json.RawMessage(`{"message":"deleted"}`), nil
	}}

	cfg := countryConfig()
	cfg.GuardDelete = func(c models.Country) error {
		if c.Name == "India" {
			return appErrors.DomainPolicy("country India cannot be deleted")
		}
		return nil
	}
	h, err := NewHandler(cfg, HandlerDeps{Sender: sender, BaseURL: "http://upstream/api"})
	require.NoError(t, err)

	h.Handle(context.Background(), NewTrigger("country", OpHardDelete, json.RawMessage(`{"id":"fr"}`)))

	require.Equal(t, 2, sender.callCount())
	call := sender.lastCall()
	assert.Equal(t, http.MethodDelete, call.Method)
	assert.Equal(t, "http://upstream/api/countries/fr", call.Endpoint)
	assert.Nil(t, h.Container().Snapshot().Error)
}

func TestDeleteGuardFetchFailureRefusesDelete(t *testing.T) {
	sender := &scriptedSender{respond: func(d transport.Descriptor) (json.RawMessage, error) {
		if d.Method == http.MethodGet {
			return nil, appErrors.Transport("country not found", 404)
		}
		t.Fatal("delete must not reach the transport")
		return nil, nil
	}}

	cfg := countryConfig()
	cfg.GuardDelete = func(c models.Country) error { return nil }
	h, err := NewHandler(cfg, HandlerDeps{Sender: sender})
	require.NoError(t, err)

	h.Handle(context.Background(), NewTrigger("country", OpHardDelete, json.RawMessage(`{"id":"missing"}`)))

	assert.Equal(t, 1, sender.callCount())
	snap := h.Container().Snapshot()
	require.NotNil(t, snap.Error)
	assert.Equal(t, appErrors.ErrTransport.Code, snap.Error.Code)
	assert.Equal(t, 404, snap.Error.Status)
}

func TestDeleteRemovesByKey(t *testing.T) {
	sender := &scriptedSender{respond: func(d transport.Descriptor) (json.RawMessage, error) {
		if d.Method == http.MethodGet {
			return json.RawMessage(`{"data":[{"_id":"a","name":"A","code":"A"},{"_id":"b","name":"B","code":"B"}]}`), nil
		}
		return json.RawMessage(`{"message":"deleted"}`), nil
	}}
	h := newCountryHandler(t, sender, nil)

	h.Handle(context.Background(), NewTrigger("country", OpList, nil))
	h.Handle(context.Background(), NewTrigger("country", OpHardDelete, json.RawMessage(`{"id":"a"}`)))

	snap := h.Container().Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "b", snap.Items[0].ID)
	assert.Equal(t, 1, snap.Count)

	call := sender.lastCall()
	assert.Equal(t, http.MethodDelete, call.Method)
	assert.Equal(t, "http://upstream/api/countries/a", call.Endpoint)
}

func TestSoftDeleteUsesPatchVerb(t *testing.T) {
	sender := &scriptedSender{}
	h, err := NewHandler(EntityConfig[models.Candidate]{
		Name:       "candidate",
		Path:       "candidates",
		KeyOf:      func(c models.Candidate) string { return c.ID },
		DeleteVerb: http.MethodPatch,
	}, HandlerDeps{Sender: sender, BaseURL: "http://upstream/api"})
	require.NoError(t, err)

	h.Handle(context.Background(), NewTrigger("candidate", OpSoftDelete, json.RawMessage(`{"id":"x1"}`)))

	call := sender.lastCall()
	assert.Equal(t, http.MethodPatch, call.Method)
	assert.Equal(t, "http://upstream/api/candidates/x1", call.Endpoint)
}

func TestCountUsesDedicatedEndpoint(t *testing.T) {
	sender := &scriptedSender{respond: func(d transport.Descriptor) (json.RawMessage, error) {
		return json.RawMessage(`{"count":42}`), nil
	}}
	h := newCountryHandler(t, sender, nil)

	h.Handle(context.Background(), NewTrigger("country", OpCount, nil))

	assert.Equal(t, 42, h.Container().Snapshot().Count)
	assert.Equal(t, "http://upstream/api/countries/count", sender.lastCall().Endpoint)
}

func TestCountWithoutEndpointFallsBackToList(t *testing.T) {
	sender := &scriptedSender{respond: func(d transport.Descriptor) (json.RawMessage, error) {
		return json.RawMessage(`[{"_id":"g1"},{"_id":"g2"},{"_id":"g3"}]`), nil
	}}
	h, err := NewHandler(EntityConfig[models.GalleryItem]{
		Name:  "gallery",
		Path:  "gallery",
		KeyOf: func(g models.GalleryItem) string { return g.ID },
	}, HandlerDeps{Sender: sender, BaseURL: "http://upstream/api"})
	require.NoError(t, err)

	h.Handle(context.Background(), NewTrigger("gallery", OpCount, nil))

	snap := h.Container().Snapshot()
	assert.Equal(t, 3, snap.Count)
	assert.Equal(t, "http://upstream/api/gallery", sender.lastCall().Endpoint)
}

func TestUpdateWithoutEchoReconstructsFromPatch(t *testing.T) {
	sender := &scriptedSender{respond: func(d transport.Descriptor) (json.RawMessage, error) {
		if d.Method == http.MethodGet {
			return json.RawMessage(`{"data":[{"_id":"a","name":"Old","code":"O"}]}`), nil
		}
		return json.RawMessage(`{"message":"updated"}`), nil
	}}
	h := newCountryHandler(t, sender, nil)

	h.Handle(context.Background(), NewTrigger("country", OpList, nil))
	h.Handle(context.Background(), NewTrigger("country", OpUpdate, json.RawMessage(`{"id":"a","data":{"name":"New","code":"N"}}`)))

	snap := h.Container().Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "New", snap.Items[0].Name)
}

func TestCreateWithFileFieldSwitchesToMultipart(t *testing.T) {
	sender := &scriptedSender{respond: func(d transport.Descriptor) (json.RawMessage, error) {
		return json.RawMessage(`{"data":{"_id":"c1","name":"France","code":"FR"}}`), nil
	}}
	cfg := countryConfig()
	cfg.FileFields = []string{"flag"}
	h, err := NewHandler(cfg, HandlerDeps{Sender: sender})
	require.NoError(t, err)

	payload := json.RawMessage(`{"name":"France","code":"FR","flag":{"name":"fr.png","content":"aGVsbG8="}}`)
	h.Handle(context.Background(), NewTrigger("country", OpCreate, payload))

	call := sender.lastCall()
	mp, ok := call.Body.(*transport.MultipartPayload)
	require.True(t, ok, "body should be multipart")
	require.Len(t, mp.Files, 1)
	assert.Equal(t, "flag", mp.Files[0].FieldName)
	assert.Equal(t, "fr.png", mp.Files[0].FileName)
	assert.Equal(t, []byte("hello"), mp.Files[0].Content)
	assert.Equal(t, "France", mp.Fields["name"])

	snap := h.Container().Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Nil(t, snap.Error)
}

func TestInvalidPayloadFailsWithoutTransport(t *testing.T) {
	sender := &scriptedSender{respond: func(d transport.Descriptor) (json.RawMessage, error) {
		t.Fatal("transport must not be reached")
		return nil, nil
	}}
	h := newCountryHandler(t, sender, nil)

	h.Handle(context.Background(), NewTrigger("country", OpGet, json.RawMessage(`{"id":""}`)))

	snap := h.Container().Snapshot()
	require.NotNil(t, snap.Error)
	assert.Equal(t, appErrors.ErrValidation.Code, snap.Error.Code)
	assert.False(t, snap.Loading)
}

func TestPanicDuringHandleConvertsToFailed(t *testing.T) {
	sender := &scriptedSender{respond: func(d transport.Descriptor) (json.RawMessage, error) {
		panic("exploded")
	}}
	h := newCountryHandler(t, sender, nil)

	h.Handle(context.Background(), NewTrigger("country", OpList, nil))

	snap := h.Container().Snapshot()
	require.NotNil(t, snap.Error)
	assert.False(t, snap.Loading)
	assert.Equal(t, appErrors.ErrInternal.Code, snap.Error.Code)
}

func TestListQueryPassesThrough(t *testing.T) {
	sender := &scriptedSender{respond: func(d transport.Descriptor) (json.RawMessage, error) {
		return json.RawMessage(`{"data":[]}`), nil
	}}
	h := newCountryHandler(t, sender, nil)

	h.Handle(context.Background(), NewTrigger("country", OpList, json.RawMessage(`{"active":true}`)))

	call := sender.lastCall()
	query, ok := call.Body.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, query["active"])
}
