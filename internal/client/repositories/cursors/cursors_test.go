package cursors

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/fieldsync/internal/client/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ZeroWhenAbsent(t *testing.T) {
	r := NewSQLiteRepository(store.OpenTest(t))
	v, err := r.Get(context.Background(), 11)
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestSet_InsertThenUpdate(t *testing.T) {
	r := NewSQLiteRepository(store.OpenTest(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, 11, 1000))
	require.NoError(t, r.Set(ctx, 12, 5))
	require.NoError(t, r.Set(ctx, 11, 2000))

	v, err := r.Get(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), v)

	v, err = r.Get(ctx, 12)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)
}
