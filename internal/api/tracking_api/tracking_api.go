// Package tracking_api is the JSON HTTP adapter over the tracking service.
package tracking_api

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/BearBump/carego/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Service interface {
	Authorize(ctx context.Context, client, credential string) error
	CreateOrder(ctx context.Context, client, credential string, in models.OrderCreateInput) (*models.Order, error)
	UpdateStatus(ctx context.Context, client, credential string, in models.StatusUpdateInput) (*models.Order, error)
	RecordLocation(ctx context.Context, in models.LocationInput) (*models.LocationUpdate, error)
	GetTrackingView(ctx context.Context, code string) (*models.TrackingView, error)
}

type TokenIssuer interface {
	IssueToken(ctx context.Context, client, key string) (string, time.Time, error)
}

type TrackingAPI struct {
	svc    Service
	tokens TokenIssuer
	logger *zap.Logger
}

// New builds the adapter. tokens may be nil, then /api/admin/token is not served.
func New(svc Service, tokens TokenIssuer, logger *zap.Logger) *TrackingAPI {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrackingAPI{svc: svc, tokens: tokens, logger: logger}
}

// Register mounts the public API on r.
func (a *TrackingAPI) Register(r chi.Router) {
	r.Post("/api/create_order", a.createOrder)
	r.Post("/api/update_location", a.updateLocation)
	r.Post("/api/update_status", a.updateStatus)
	r.Get("/api/track/{tracking_code}", a.track)
	if a.tokens != nil {
		r.Post("/api/admin/token", a.issueToken)
	}
}

func (a *TrackingAPI) createOrder(w http.ResponseWriter, r *http.Request) {
	body, err := decodeObject(w, r)
	if err != nil {
		// без тела остаётся только Bearer
		a.rejectAfterAuth(w, r, clientAddr(r), credential(r, nil), err)
		return
	}
	ctx, client, cred := r.Context(), clientAddr(r), credential(r, body)

	name, _, err1 := stringField(body, "recipient_name")
	addr, _, err2 := stringField(body, "address")
	notes, _, err3 := stringField(body, "notes")
	if typeErr := firstErr(err1, err2, err3); typeErr != nil {
		a.rejectAfterAuth(w, r, client, cred, typeErr)
		return
	}

	o, err := a.svc.CreateOrder(ctx, client, cred, models.OrderCreateInput{
		RecipientName: name,
		Address:       addr,
		Notes:         notes,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createOrderResponse{Status: statusSuccess, TrackingCode: o.TrackingCode})
}

func (a *TrackingAPI) updateStatus(w http.ResponseWriter, r *http.Request) {
	body, err := decodeObject(w, r)
	if err != nil {
		// без тела остаётся только Bearer
		a.rejectAfterAuth(w, r, clientAddr(r), credential(r, nil), err)
		return
	}
	ctx, client, cred := r.Context(), clientAddr(r), credential(r, body)

	code, _, err1 := stringField(body, "tracking_code")
	status, _, err2 := stringField(body, "status")
	if typeErr := firstErr(err1, err2); typeErr != nil {
		a.rejectAfterAuth(w, r, client, cred, typeErr)
		return
	}

	if _, err := a.svc.UpdateStatus(ctx, client, cred, models.StatusUpdateInput{TrackingCode: code, Status: status}); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Status: statusSuccess, Message: "Status updated"})
}

func (a *TrackingAPI) updateLocation(w http.ResponseWriter, r *http.Request) {
	body, err := decodeObject(w, r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	code, _, err := stringField(body, "tracking_code")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	lat, err := numberField(body, "latitude")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	lon, err := numberField(body, "longitude")
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	if _, err := a.svc.RecordLocation(r.Context(), models.LocationInput{TrackingCode: code, Latitude: lat, Longitude: lon}); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Status: statusSuccess, Message: "Location update received"})
}

func (a *TrackingAPI) track(w http.ResponseWriter, r *http.Request) {
	v, err := a.svc.GetTrackingView(r.Context(), chi.URLParam(r, "tracking_code"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (a *TrackingAPI) issueToken(w http.ResponseWriter, r *http.Request) {
	body, err := decodeObject(w, r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	key, _, _ := stringField(body, "password")

	tok, exp, err := a.tokens.IssueToken(r.Context(), clientAddr(r), key)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{Status: statusSuccess, Token: tok, ExpiresAt: exp})
}

// rejectAfterAuth answers a malformed admin request: the credential is
// still checked first, so an unauthorized caller never sees field errors.
func (a *TrackingAPI) rejectAfterAuth(w http.ResponseWriter, r *http.Request, client, cred string, typeErr error) {
	if err := a.svc.Authorize(r.Context(), client, cred); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeError(w, r, typeErr)
}

// credential is the body password, or the bearer token when password is absent.
func credential(r *http.Request, body map[string]jsonRaw) string {
	if pw, ok, err := stringField(body, "password"); ok && err == nil {
		return pw
	}
	h := r.Header.Get("Authorization")
	if len(h) > len("Bearer ") && strings.EqualFold(h[:len("Bearer ")], "Bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	return ""
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
