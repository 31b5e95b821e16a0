// Package web serves the live tracker state, categories and reports over HTTP.
package web

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"focuslog/internal/config"

	"github.com/pkg/errors"
)

type Server struct {
	handler  *Handler
	server   *http.Server
	listener net.Listener
}

// NewServer builds the server. customPort overrides cfg.Web.Port when positive.
func NewServer(cfg *config.Config, deps Deps, customPort int) *Server {
	handler := NewHandler(cfg, deps)
	mux := http.NewServeMux()
	handler.SetupRoutes(mux)

	port := cfg.Web.Port
	if customPort > 0 {
		port = customPort
	}

	return &Server{
		handler: handler,
		server: &http.Server{
			Addr:         net.JoinHostPort(cfg.Web.Host, fmt.Sprint(port)),
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Listen binds the address, so a busy port is reported before serving.
// Port 0 picks a free port; GetAddress reports it afterwards.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", s.server.Addr)
	}
	s.listener = ln
	s.server.Addr = ln.Addr().String()
	return nil
}

// Start serves until Shutdown. It calls Listen first if needed.
func (s *Server) Start() error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	log.Printf("Starting web server on http://%s", s.server.Addr)
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")
	return s.server.Shutdown(ctx)
}

func (s *Server) GetAddress() string {
	return s.server.Addr
}
