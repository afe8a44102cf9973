package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server provides HTTP and gRPC endpoints for health monitoring.
type Server struct {
	monitor  *Monitor
	server   *http.Server
	grpc     *grpc.Server
	grpcAddr string
	status   *grpchealth.Server
}

// NewServer creates a new health server. A zero grpcPort disables the gRPC endpoint.
func NewServer(monitor *Monitor, port, grpcPort int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		monitor: monitor,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
		status: grpchealth.NewServer(),
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/detailed", s.handleDetailed)
	mux.Handle("/metrics", promhttp.Handler())

	if grpcPort > 0 {
		s.grpcAddr = fmt.Sprintf(":%d", grpcPort)
		s.grpc = grpc.NewServer()
		healthpb.RegisterHealthServer(s.grpc, s.status)
	}

	// NOT_SERVING until the first report lands.
	s.status.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	monitor.OnReport(s.publish)
	return s
}

// Handler exposes the HTTP routes so they can be mounted elsewhere.
func (s *Server) Handler() http.Handler { return s.server.Handler }

// HealthServer exposes the gRPC health service.
func (s *Server) HealthServer() healthpb.HealthServer { return s.status }

// Start starts the HTTP server and, when configured, the gRPC server.
func (s *Server) Start() error {
	if s.grpc != nil {
		lis, err := net.Listen("tcp", s.grpcAddr)
		if err != nil {
			return fmt.Errorf("listen grpc %s: %w", s.grpcAddr, err)
		}
		go func() {
			if err := s.grpc.Serve(lis); err != nil {
				slog.Error("gRPC health server stopped", "error", err)
			}
		}()
	}
	return s.server.ListenAndServe()
}

// Stop stops both servers.
func (s *Server) Stop(ctx context.Context) error {
	s.status.Shutdown()
	if s.grpc != nil {
		s.grpc.GracefulStop()
	}
	return s.server.Shutdown(ctx)
}

// publish mirrors a report into the gRPC serving statuses. Degraded still serves.
func (s *Server) publish(r Report) {
	for svc, h := range r.Services {
		s.status.SetServingStatus(string(svc), servingStatus(h.Status))
	}
	s.status.SetServingStatus("", servingStatus(r.Overall))
}

func servingStatus(st Status) healthpb.HealthCheckResponse_ServingStatus {
	if st == StatusDown {
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	return healthpb.HealthCheckResponse_SERVING
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.monitor.CheckHealth(r.Context())

	response := map[string]string{"status": string(report.Overall)}
	w.Header().Set("Content-Type", "application/json")

	if report.Overall == StatusDown {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(response)
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	report := s.monitor.CheckHealth(r.Context())
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}
