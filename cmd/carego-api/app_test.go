package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BearBump/carego/internal/models"
	"github.com/BearBump/carego/internal/services/relay"
	"github.com/BearBump/carego/internal/services/tracking"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRepo struct {
	mu     sync.Mutex
	orders map[string]*models.Order
	locs   map[string]*models.LastKnownLocation
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{orders: map[string]*models.Order{}, locs: map[string]*models.LastKnownLocation{}}
}

func (r *fakeRepo) InsertOrder(ctx context.Context, code string, in models.OrderCreateInput) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[code]; ok {
		return nil, models.ErrTrackingCodeTaken
	}
	o := &models.Order{ID: uint64(len(r.orders) + 1), TrackingCode: code, Status: models.InitialOrderStatus,
		RecipientName: in.RecipientName, Address: in.Address, Notes: in.Notes, CreatedAt: time.Now().UTC()}
	r.orders[code] = o
	return o, nil
}

func (r *fakeRepo) UpdateOrderStatus(ctx context.Context, in models.StatusUpdateInput) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[in.TrackingCode]
	if !ok {
		return nil, models.ErrNotFound
	}
	o.Status = in.Status
	return o, nil
}

func (r *fakeRepo) SeedOrder(ctx context.Context, o models.Order) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[o.TrackingCode]; ok {
		return false, nil
	}
	r.orders[o.TrackingCode] = &o
	return true, nil
}

func (r *fakeRepo) AppendLocation(ctx context.Context, code string, lat, lon float64) (*models.LocationUpdate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[code]; !ok {
		return nil, models.ErrNotFound
	}
	now := time.Now().UTC()
	r.locs[code] = &models.LastKnownLocation{Latitude: lat, Longitude: lon, Timestamp: now}
	return &models.LocationUpdate{OrderTrackingCode: code, Latitude: lat, Longitude: lon, Timestamp: now}, nil
}

func (r *fakeRepo) GetTrackingView(ctx context.Context, code string) (*models.TrackingView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[code]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &models.TrackingView{Order: *o, LastKnownLocation: r.locs[code]}, nil
}

type passwordAuth struct{}

func (passwordAuth) Authorize(ctx context.Context, client, credential string) error {
	if credential != "secret" {
		return models.ErrUnauthorized
	}
	return nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(ctx context.Context) error { return p.err }

// fakeConsumer hands over queued values, then blocks until ctx is done.
type fakeConsumer struct {
	values [][]byte
}

func (c *fakeConsumer) Consume(ctx context.Context, handler func(ctx context.Context, key, value []byte) error) error {
	for _, v := range c.values {
		if err := handler(ctx, nil, v); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

type emptyOutbox struct{}

func (emptyOutbox) ClaimDueOutbox(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.OutboxEvent, error) {
	return nil, nil
}
func (emptyOutbox) MarkOutboxPublished(ctx context.Context, id uint64) error { return nil }
func (emptyOutbox) MarkOutboxFailed(ctx context.Context, id uint64, lastError string, next time.Time) error {
	return nil
}

type noopProducer struct{}

func (noopProducer) Publish(ctx context.Context, topic string, key, value []byte) error { return nil }

func startApp(t *testing.T, opts careGoAPIOpts, deps careGoAPIDeps) (string, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	addrCh := make(chan string, 1)
	opts.httpAddr = "127.0.0.1:0"
	opts.onListen = func(httpAddr string) { addrCh <- httpAddr }

	errCh := make(chan error, 1)
	go func() { errCh <- runCareGoAPI(ctx, opts, deps, zap.NewNop()) }()

	select {
	case addr := <-addrCh:
		return "http://" + addr, errCh
	case err := <-errCh:
		t.Fatalf("app exited early: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for listener")
	}
	return "", nil
}

func TestRunCareGoAPI_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	sw := filepath.Join(dir, "swagger.json")
	require.NoError(t, os.WriteFile(sw, []byte(`{"swagger":"2.0"}`), 0o600))

	repo := newFakeRepo()
	svc := tracking.New(repo, passwordAuth{}, nil)
	base, _ := startApp(t, careGoAPIOpts{swaggerPath: sw, seedDemo: true}, careGoAPIDeps{svc: svc, pinger: fakePinger{}})

	resp, err := http.Get(base + "/swagger.json")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `"swagger"`)

	resp, err = http.Get(base + "/readyz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// демо-заказ засеян при старте
	resp, err = http.Get(base + "/api/track/" + tracking.DemoTrackingCode)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(base+"/api/create_order", "application/json",
		strings.NewReader(`{"password":"secret","recipient_name":"Jane Doe","address":"1 Main St"}`))
	require.NoError(t, err)
	var created struct {
		Status       string `json:"status"`
		TrackingCode string `json:"tracking_code"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	_ = resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "success", created.Status)

	resp, err = http.Post(base+"/api/update_location", "application/json",
		strings.NewReader(`{"tracking_code":"`+created.TrackingCode+`","latitude":47.4979,"longitude":19.0402}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Get(base + "/api/track/" + created.TrackingCode)
	require.NoError(t, err)
	var view models.TrackingView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, models.InitialOrderStatus, view.Status)
	require.NotNil(t, view.LastKnownLocation)
	require.Equal(t, 47.4979, view.LastKnownLocation.Latitude)

	resp, err = http.Get(base + "/relay/stats")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.Contains(t, string(body), "relay disabled")
}

func TestRunCareGoAPI_ReadyzUnavailable(t *testing.T) {
	svc := tracking.New(newFakeRepo(), passwordAuth{}, nil)
	base, _ := startApp(t, careGoAPIOpts{}, careGoAPIDeps{svc: svc, pinger: fakePinger{err: errors.New("db down")}})

	resp, err := http.Get(base + "/readyz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = http.Get(base + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRunCareGoAPI_ConsumerAndRelay(t *testing.T) {
	repo := newFakeRepo()
	_, err := repo.InsertOrder(context.Background(), "CAREGO-KA01FK", models.OrderCreateInput{RecipientName: "a", Address: "b"})
	require.NoError(t, err)

	svc := tracking.New(repo, passwordAuth{}, nil)
	cons := &fakeConsumer{values: [][]byte{
		[]byte(`{"tracking_code":"CAREGO-KA01FK","latitude":1.5,"longitude":2.5}`),
		[]byte(`{"tracking_code":"CAREGO-ZZ99ZZ","latitude":1,"longitude":2}`),
	}}
	rl := relay.New(emptyOutbox{}, noopProducer{}).WithSettings(time.Hour, 1, 1, time.Second)

	base, _ := startApp(t, careGoAPIOpts{}, careGoAPIDeps{svc: svc, consumer: cons, consumerTopic: "t", relay: rl})

	require.Eventually(t, func() bool {
		v, err := svc.GetTrackingView(context.Background(), "CAREGO-KA01FK")
		return err == nil && v.LastKnownLocation != nil && v.LastKnownLocation.Latitude == 1.5
	}, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Post(base+"/relay/trigger", "application/json", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool { return rl.Stats().LastCycleAt != nil }, 2*time.Second, 10*time.Millisecond)

	resp, err = http.Get(base + "/relay/stats")
	require.NoError(t, err)
	var st relay.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	_ = resp.Body.Close()
	require.NotNil(t, st.LastTriggerAt)
}

func TestRunCareGoAPI_StopsOnCancel(t *testing.T) {
	svc := tracking.New(newFakeRepo(), passwordAuth{}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	addrCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- runCareGoAPI(ctx, careGoAPIOpts{httpAddr: "127.0.0.1:0", onListen: func(a string) { addrCh <- a }},
			careGoAPIDeps{svc: svc}, zap.NewNop())
	}()
	<-addrCh
	cancel()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting server to stop")
	}
}

func TestRunCareGoAPI_MissingSwagger(t *testing.T) {
	svc := tracking.New(newFakeRepo(), passwordAuth{}, nil)
	err := runCareGoAPI(context.Background(), careGoAPIOpts{httpAddr: "127.0.0.1:0", swaggerPath: "/nope/swagger.json"},
		careGoAPIDeps{svc: svc}, zap.NewNop())
	require.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	l, err := newLogger("debug")
	require.NoError(t, err)
	require.NotNil(t, l)

	_, err = newLogger("loud")
	require.Error(t, err)
}
