package interceptor

import (
	middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	"google.golang.org/grpc"
)

// UnaryInterceptor returns the unary interceptor
func UnaryInterceptor() grpc.ServerOption {
	return grpc.UnaryInterceptor(unaryChain())
}

// StreamInterceptor returns the stream interceptor with a logrus log
func StreamInterceptor() grpc.ServerOption {
	return grpc.StreamInterceptor(
		middleware.ChainStreamServer(
			streamLogger,
			grpc_recovery.StreamServerInterceptor(recoveryOpts()...),
		),
	)
}

func unaryChain() grpc.UnaryServerInterceptor {
	return middleware.ChainUnaryServer(
		unaryLogger,
		grpc_recovery.UnaryServerInterceptor(recoveryOpts()...),
	)
}
