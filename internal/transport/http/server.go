package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"playledger/internal/auth"
	"playledger/internal/service"
)

type Server struct {
	srv *http.Server
}

func NewServer(addr string, svc service.LedgerService, authn *auth.Authenticator) *Server {
	h := NewHandler(svc, authn)

	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      h.Routes(),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
