package httpx

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/ariefcatur/go-bookstore-orders/internal/shop"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// request is everything a handler may look at. Handlers never touch the
// http.ResponseWriter.
type request struct {
	Principal Principal
	Header    http.Header
	Body      []byte
	params    func(string) string
}

func (r request) Param(key string) string { return r.params(key) }

// decode unmarshals the body into v. An empty body leaves v untouched.
func (r request) decode(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return shop.Wrap(shop.KindValidation, "Invalid request body", err)
	}
	return nil
}

type response struct {
	Status  int
	Data    any
	Message string
}

func ok(data any, message string) response {
	return response{Status: http.StatusOK, Data: data, Message: message}
}

type handlerFunc func(ctx context.Context, req request) (response, error)

type apiResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// serve adapts a handlerFunc to net/http and renders its result.
func (s *server) serve(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
		if err != nil {
			s.fail(w, r, shop.Wrap(shop.KindValidation, "Unable to read request body", err))
			return
		}
		if len(body) > maxBodyBytes {
			s.fail(w, r, shop.Errorf(shop.KindValidation, "Request body too large"))
			return
		}
		p, _ := principalFrom(r.Context())
		res, err := h(r.Context(), request{
			Principal: p,
			Header:    r.Header,
			Body:      body,
			params:    func(k string) string { return chi.URLParam(r, k) },
		})
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if res.Status == 0 {
			res.Status = http.StatusOK
		}
		writeJSON(w, res.Status, apiResponse{StatusCode: res.Status, Data: res.Data, Message: res.Message, Success: true})
	}
}

func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := shop.StatusOf(err)
	log := s.log.With(
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err))
	if status >= http.StatusInternalServerError {
		log.Error("request failed")
	} else {
		log.Debug("request rejected")
	}

	body := errorBody{Success: false, Message: shop.MessageOf(err)}
	if s.development {
		body.Stack = err.Error()
	}
	writeJSON(w, status, body)
}
