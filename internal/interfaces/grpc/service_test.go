package grpcinterface_test

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tdex-network/tdex-escrow/internal/interfaces"
	grpcinterface "github.com/tdex-network/tdex-escrow/internal/interfaces/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	healthv1 "google.golang.org/grpc/health/grpc_health_v1"
)

var pong = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("pong"))
})

func freeAddress(t *testing.T) string {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := lis.Addr().(*net.TCPAddr).Port
	require.NoError(t, lis.Close())
	return fmt.Sprintf("127.0.0.1:%d", port)
}

func startService(t *testing.T, opts grpcinterface.ServiceOpts) interfaces.Service {
	svc, err := grpcinterface.NewService(opts)
	require.NoError(t, err)
	require.NoError(t, svc.Start())
	t.Cleanup(svc.Stop)
	return svc
}

func checkHealth(t *testing.T, address string, opt grpc.DialOption) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := grpc.DialContext(ctx, address, opt, grpc.WithBlock())
	require.NoError(t, err)
	defer conn.Close()

	res, err := healthv1.NewHealthClient(conn).Check(
		ctx, &healthv1.HealthCheckRequest{},
	)
	require.NoError(t, err)
	require.Equal(t, healthv1.HealthCheckResponse_SERVING, res.GetStatus())
}

func checkHTTP(t *testing.T, client *http.Client, url string) {
	resp, err := client.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "pong", string(body))
}

func TestServiceWithoutTLS(t *testing.T) {
	address := freeAddress(t)
	startService(t, grpcinterface.ServiceOpts{
		Address:     address,
		NoTls:       true,
		HTTPHandler: pong,
	})

	checkHealth(t, address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	checkHTTP(t, http.DefaultClient, "http://"+address+"/v1/info")
}

func TestServiceWithTLS(t *testing.T) {
	datadir := t.TempDir()
	address := freeAddress(t)
	startService(t, grpcinterface.ServiceOpts{
		Datadir:     datadir,
		TLSLocation: "tls",
		Address:     address,
		HTTPHandler: pong,
	})

	require.FileExists(t, filepath.Join(datadir, "tls", grpcinterface.TLSKeyFile))
	require.FileExists(t, filepath.Join(datadir, "tls", grpcinterface.TLSCertFile))

	// #nosec
	tlsConfig := &tls.Config{InsecureSkipVerify: true}
	checkHealth(t, address, grpc.WithTransportCredentials(
		credentials.NewTLS(tlsConfig),
	))
	client := &http.Client{Transport: &http.Transport{TLSClientConfig: tlsConfig}}
	checkHTTP(t, client, "https://"+address+"/v1/info")
}

func TestNewServiceInvalidOpts(t *testing.T) {
	datadir := t.TempDir()
	tlsDir := filepath.Join(datadir, "tls")
	require.NoError(t, os.MkdirAll(tlsDir, 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(tlsDir, grpcinterface.TLSCertFile), []byte("cert"), 0644,
	))

	tests := []struct {
		name string
		opts grpcinterface.ServiceOpts
	}{
		{
			"invalid address",
			grpcinterface.ServiceOpts{Address: "localhost", NoTls: true, HTTPHandler: pong},
		},
		{
			"privileged port",
			grpcinterface.ServiceOpts{Address: ":80", NoTls: true, HTTPHandler: pong},
		},
		{
			"missing handler",
			grpcinterface.ServiceOpts{Address: ":9945", NoTls: true},
		},
		{
			"cert without key",
			grpcinterface.ServiceOpts{
				Datadir: datadir, TLSLocation: "tls", Address: ":9945",
				HTTPHandler: pong,
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc, err := grpcinterface.NewService(tt.opts)
			require.Error(t, err)
			require.Nil(t, svc)
		})
	}
}
