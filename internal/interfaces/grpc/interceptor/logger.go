package interceptor

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func unaryLogger(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (interface{}, error) {
	start := time.Now()
	res, err := handler(ctx, req)
	logCall(info.FullMethod, start, err)
	return res, err
}

func streamLogger(
	srv interface{},
	stream grpc.ServerStream,
	info *grpc.StreamServerInfo,
	handler grpc.StreamHandler,
) error {
	start := time.Now()
	err := handler(srv, stream)
	logCall(info.FullMethod, start, err)
	return err
}

func logCall(method string, start time.Time, err error) {
	code := status.Code(err)
	entry := log.WithFields(log.Fields{
		"method":   method,
		"code":     code.String(),
		"duration": time.Since(start),
	})
	if code == codes.Internal || code == codes.Unknown {
		entry.WithError(err).Warn("grpc call failed")
		return
	}
	entry.Debug("grpc call")
}
