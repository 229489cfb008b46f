package services

import (
	"context"
	"testing"

	"water-quality-api/models"
	"water-quality-api/rules"
	"water-quality-api/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryEmptyStore(t *testing.T) {
	q := NewQueryService(store.NewMemory(), 50, 200)
	ctx := context.Background()

	_, err := q.Latest(ctx)
	assert.ErrorIs(t, err, ErrNoData)
	assert.Equal(t, KindNotFound, KindOf(err))

	rows, err := q.History(ctx, 50)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Len(t, rows, 0)
}

func TestQueryHistoryOrdering(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := NewIngestionService(&fakeClassifier{label: models.LabelSafe}, rules.New(), st)
	q := NewQueryService(st, 50, 200)

	for _, ph := range []float64{6.6, 7.7, 8.8} {
		_, err := svc.Ingest(ctx, payload(ph, 1.0, 20.0))
		require.NoError(t, err)
	}

	rows, err := q.History(ctx, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, 6.6, rows[0].PH)
	assert.Equal(t, 7.7, rows[1].PH)
	assert.Equal(t, 8.8, rows[2].PH)
	assert.Equal(t, models.LabelUnsafe, rows[2].FinalStatus)

	latest, err := q.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8.8, latest.PH)
}

func TestQueryClampLimit(t *testing.T) {
	q := NewQueryService(store.NewMemory(), 50, 200)
	tests := []struct {
		in, want int
	}{
		{0, 50},
		{-3, 50},
		{1, 1},
		{120, 120},
		{200, 200},
		{1000, 200},
	}
	for _, tt := range tests {
		if got := q.ClampLimit(tt.in); got != tt.want {
			t.Errorf("ClampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestNewQueryServiceSanitizesLimits(t *testing.T) {
	q := NewQueryService(store.NewMemory(), 0, 0)
	assert.Equal(t, 50, q.ClampLimit(0))
	assert.Equal(t, 200, q.ClampLimit(500))

	q = NewQueryService(store.NewMemory(), 100, 20)
	assert.Equal(t, 20, q.ClampLimit(0))
}

func TestQueryPropagatesStoreErrors(t *testing.T) {
	q := NewQueryService(&unavailableStore{}, 50, 200)

	_, err := q.Latest(context.Background())
	assert.Equal(t, KindStoreUnavailable, KindOf(err))

	_, err = q.History(context.Background(), 10)
	assert.Equal(t, KindStoreUnavailable, KindOf(err))
}

type unavailableStore struct {
	store.Memory
}

func (*unavailableStore) Latest(context.Context) (*models.Reading, error) {
	return nil, store.ErrUnavailable
}

func (*unavailableStore) History(context.Context, int) ([]models.Reading, error) {
	return nil, store.ErrUnavailable
}
