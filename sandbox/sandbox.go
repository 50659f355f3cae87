// Package sandbox serves an in-memory exchange that speaks the /orders
// REST resource. It is meant for tests and local development.
package sandbox

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type Server struct {
	server   *http.Server
	listener net.Listener
	handler  *handler
}

func NewServer(listener net.Listener, store *Store, credentials Credentials, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		server:   &http.Server{},
		listener: listener,
		handler: &handler{
			store:       store,
			credentials: credentials,
			logger:      logger,
		},
	}
	s.server.Handler = s.Router()

	return s
}

func (s *Server) Name() string {
	return "sandbox"
}

// Router returns the HTTP routes, for use with httptest.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter().UseEncodedPath()
	r.Use(s.handler.Authenticate)

	r.HandleFunc("/orders", s.handler.PlaceOrder).Methods(http.MethodPost)
	r.HandleFunc("/orders", s.handler.ListOrders).Methods(http.MethodGet)
	r.HandleFunc("/orders", s.handler.CancelOpenOrders).Methods(http.MethodDelete)
	// registered before /orders/{id} so client ids are not taken for order ids
	r.HandleFunc("/orders/client:{clientOID}", s.handler.GetOrderByClientOID).Methods(http.MethodGet)
	r.HandleFunc("/orders/{id}", s.handler.GetOrder).Methods(http.MethodGet)
	r.HandleFunc("/orders/{id}", s.handler.CancelOrder).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "NotFound")
	})

	return r
}

// Serve blocks until the server is shut down.
func (s *Server) Serve(_ context.Context) error {
	s.handler.logger.Info("sandbox listening", zap.String("addr", s.listener.Addr().String()))

	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
