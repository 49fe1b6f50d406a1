package catalog

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupOracle(t *testing.T) (*Oracle, *atomic.Int64) {
	t.Helper()

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"productId":"P1","name":"Roadster MK2","price":"45000","stock":3}`))
	}))
	t.Cleanup(srv.Close)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	o := NewOracle(
		NewClient(srv.URL, srv.Client(), time.Second),
		NewRedisCache(client, 5*time.Minute),
		log.New(io.Discard, "", 0),
	)
	return o, &hits
}

func TestSnapshot_ServesFromCache(t *testing.T) {
	o, hits := setupOracle(t)

	p1, err := o.Snapshot(context.Background(), "P1")
	require.NoError(t, err)
	p2, err := o.Snapshot(context.Background(), "P1")
	require.NoError(t, err)

	assert.Equal(t, p1.Name, p2.Name)
	assert.EqualValues(t, 1, hits.Load())
}

func TestCurrent_AlwaysHitsCatalog(t *testing.T) {
	o, hits := setupOracle(t)

	// Warm the cache through Snapshot first; Current must ignore it.
	_, err := o.Snapshot(context.Background(), "P1")
	require.NoError(t, err)

	_, err = o.Current(context.Background(), "P1")
	require.NoError(t, err)
	_, err = o.Current(context.Background(), "P1")
	require.NoError(t, err)

	assert.EqualValues(t, 3, hits.Load())
}

func TestSnapshot_WorksWithoutCache(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"productId":"P1","price":"100"}`))
	}))
	t.Cleanup(srv.Close)

	o := NewOracle(NewClient(srv.URL, srv.Client(), time.Second), nil, log.New(io.Discard, "", 0))

	_, err := o.Snapshot(context.Background(), "P1")
	require.NoError(t, err)
	_, err = o.Snapshot(context.Background(), "P1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, hits.Load())
}
