package snapshots

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduvoyage/admin-gateway/internal/engine"
	"github.com/eduvoyage/admin-gateway/internal/models"
	"github.com/eduvoyage/admin-gateway/internal/repository"
	"github.com/eduvoyage/admin-gateway/internal/transport"
	"github.com/eduvoyage/admin-gateway/pkg/jobs"
)

type listSender struct{}

func (listSender) Send(_ context.Context, d transport.Descriptor) (json.RawMessage, error) {
	return json.RawMessage(`{"data":[{"_id":"c1","name":"France","code":"FR"}],"total":1}`), nil
}

func TestPersisterWritesAfterTerminalUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := repository.NewSnapshotRepository(sqlx.NewDb(db, "postgres"))

	mock.ExpectExec("INSERT INTO entity_snapshots").
		WithArgs("country", sqlmock.AnyArg(), 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	sup := engine.NewSupervisor(4, nil)
	h, err := engine.NewHandler(engine.EntityConfig[models.Country]{
		Name:       "country",
		Path:       "countries",
		KeyOf:      func(c models.Country) string { return c.ID },
		DeleteVerb: http.MethodDelete,
	}, engine.HandlerDeps{Sender: listSender{}, BaseURL: "http://upstream/api"})
	require.NoError(t, err)
	require.NoError(t, sup.Register(h))

	p := NewPersister(repo, sup, Config{Workers: 1})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()
	sup.Start(ctx)
	defer sup.Stop()

	require.NoError(t, sup.Dispatch(engine.NewTrigger("country", engine.OpList, nil)))

	require.Eventually(t, func() bool {
		return mock.ExpectationsWereMet() == nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistUnknownEntity(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := repository.NewSnapshotRepository(sqlx.NewDb(db, "postgres"))

	sup := engine.NewSupervisor(4, nil)
	p := NewPersister(repo, sup, Config{})

	err = p.persist(context.Background(), jobs.Job{ID: "j1", Type: "snapshot_persist", Entity: "ghost"})
	assert.Error(t, err)
}
