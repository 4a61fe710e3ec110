package grpcinterface

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/interfaces"
	"github.com/tdex-network/tdex-escrow/internal/interfaces/grpc/interceptor"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthv1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const (
	shutdownTimeout = 5 * time.Second
)

// ServiceOpts configures the single port the node listens on for both
// gRPC and REST requests.
type ServiceOpts struct {
	Datadir      string
	TLSLocation  string
	NoTls        bool
	ExtraIPs     []string
	ExtraDomains []string

	Address string
	// HTTPHandler serves every non-gRPC request.
	HTTPHandler http.Handler
}

func (o ServiceOpts) validate() error {
	if !isValidAddress(o.Address) {
		return fmt.Errorf("invalid address %s", o.Address)
	}
	if o.HTTPHandler == nil {
		return fmt.Errorf("missing http handler")
	}
	if !o.NoTls {
		if len(o.Datadir) <= 0 {
			return fmt.Errorf("missing datadir for tls key and cert")
		}
		tlsDir := o.tlsDatadir()
		tlsKeyExists := pathExists(filepath.Join(tlsDir, TLSKeyFile))
		tlsCertExists := pathExists(filepath.Join(tlsDir, TLSCertFile))
		if !tlsKeyExists && tlsCertExists {
			return fmt.Errorf(
				"found %s file but %s is missing. Please delete %s to make the "+
					"daemon recreate both files in path %s",
				TLSCertFile, TLSKeyFile, TLSCertFile, tlsDir,
			)
		}
	}
	return nil
}

func (o ServiceOpts) tlsDatadir() string {
	return filepath.Join(o.Datadir, o.TLSLocation)
}

func (o ServiceOpts) tlsKey() string {
	if o.NoTls {
		return ""
	}
	return filepath.Join(o.tlsDatadir(), TLSKeyFile)
}

func (o ServiceOpts) tlsCert() string {
	if o.NoTls {
		return ""
	}
	return filepath.Join(o.tlsDatadir(), TLSCertFile)
}

type service struct {
	opts ServiceOpts

	grpcServer *grpc.Server
	health     *health.Server
	httpServer *http.Server
	listener   net.Listener
}

// NewService returns the interface of the node. gRPC requests are told apart
// from REST ones by their content type, so that both share the same port.
// Over plain tcp, gRPC is served through h2c.
func NewService(opts ServiceOpts) (interfaces.Service, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid opts: %s", err)
	}
	if !opts.NoTls {
		if err := generateTLSKeyCert(
			opts.tlsDatadir(), opts.ExtraIPs, opts.ExtraDomains,
		); err != nil {
			return nil, err
		}
	}
	return &service{opts: opts}, nil
}

func (s *service) Start() error {
	grpcServer := grpc.NewServer(
		interceptor.UnaryInterceptor(), interceptor.StreamInterceptor(),
	)
	healthSvc := health.NewServer()
	healthv1.RegisterHealthServer(grpcServer, healthSvc)
	reflection.Register(grpcServer)

	handler := routeGrpc(grpcServer, s.opts.HTTPHandler)
	httpServer := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
	}

	lis, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return err
	}

	if s.opts.NoTls {
		httpServer.Handler = h2c.NewHandler(handler, &http2.Server{})
	} else {
		certificate, err := tls.LoadX509KeyPair(s.opts.tlsCert(), s.opts.tlsKey())
		if err != nil {
			lis.Close()
			return err
		}
		httpServer.Handler = handler
		httpServer.TLSConfig = &tls.Config{
			MinVersion:   tls.VersionTLS12,
			NextProtos:   []string{http2.NextProtoTLS, "http/1.1"},
			Certificates: []tls.Certificate{certificate},
		}
		if err := http2.ConfigureServer(httpServer, nil); err != nil {
			lis.Close()
			return err
		}
		lis = tls.NewListener(lis, httpServer.TLSConfig)
	}

	go func() {
		if err := httpServer.Serve(lis); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Warn("interface stopped serving")
		}
	}()

	s.grpcServer = grpcServer
	s.health = healthSvc
	s.httpServer = httpServer
	s.listener = lis

	log.Infof("node interface is listening on %s", lis.Addr())
	return nil
}

func (s *service) Stop() {
	if s.httpServer == nil {
		return
	}

	s.health.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Debug("stop http server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("failed to gracefully stop http server")
	}

	log.Debug("stop grpc server")
	s.grpcServer.Stop()
}

func routeGrpc(grpcServer *grpc.Server, httpHandler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isGrpcRequest(r) {
			grpcServer.ServeHTTP(w, r)
			return
		}
		httpHandler.ServeHTTP(w, r)
	})
}

func isGrpcRequest(r *http.Request) bool {
	return r.ProtoMajor == 2 &&
		strings.HasPrefix(r.Header.Get("Content-Type"), "application/grpc")
}
