// Copyright 2026 The tracepack Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tracepackgrpc

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"

	"github.com/purpleowl-io/tracepack"
)

// CorrelationMetadataKey is the default metadata key consulted for an inbound
// correlation id and echoed in response headers.
const CorrelationMetadataKey = "x-transaction-id"

// UnaryServerInterceptor establishes a context record for each unary RPC.
func UnaryServerInterceptor(opts ...Option) grpc.UnaryServerInterceptor {
	cfg := applyOptions(opts)

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		ctx = establishCallRecord(ctx, cfg, info.FullMethod)

		var reqBytes int64
		if cfg.logCalls && cfg.includeSizes {
			reqBytes = messageSize(req)
		}

		resp, err := handler(ctx, req)

		if cfg.logCalls {
			var respBytes int64
			if cfg.includeSizes && err == nil {
				respBytes = messageSize(resp)
			}
			logCall(ctx, cfg, status.Code(err), time.Since(start), reqBytes, respBytes)
		}
		return resp, err
	}
}

// StreamServerInterceptor establishes a context record for each streaming RPC.
func StreamServerInterceptor(opts ...Option) grpc.StreamServerInterceptor {
	cfg := applyOptions(opts)

	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		ctx := establishCallRecord(ss.Context(), cfg, info.FullMethod)

		wrapped := &recordServerStream{
			ServerStream: ss,
			ctx:          ctx,
			sizes:        cfg.logCalls && cfg.includeSizes,
		}

		err := handler(srv, wrapped)

		if cfg.logCalls {
			logCall(ctx, cfg, status.Code(err), time.Since(start),
				wrapped.recvBytes.Load(), wrapped.sentBytes.Load())
		}
		return err
	}
}

// ServerOptions returns grpc.ServerOptions that install both interceptors and,
// when [WithOTel] is enabled, an otelgrpc stats handler.
func ServerOptions(opts ...Option) []grpc.ServerOption {
	cfg := applyOptions(opts)
	var serverOpts []grpc.ServerOption

	if cfg.enableOTel {
		var otelOpts []otelgrpc.Option
		if cfg.tracerProvider != nil {
			otelOpts = append(otelOpts, otelgrpc.WithTracerProvider(cfg.tracerProvider))
		}
		serverOpts = append(serverOpts, grpc.StatsHandler(otelgrpc.NewServerHandler(otelOpts...)))
	}

	serverOpts = append(serverOpts,
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor(opts...)),
		grpc.ChainStreamInterceptor(StreamServerInterceptor(opts...)),
	)
	return serverOpts
}

// establishCallRecord seeds a record from call metadata, echoes the
// correlation id in response headers, and binds the record to the context.
func establishCallRecord(ctx context.Context, cfg *config, fullMethod string) context.Context {
	md, _ := metadata.FromIncomingContext(ctx)
	txID := firstMetadataValue(md, cfg.metadataKey)
	if txID == "" {
		txID = cfg.generator()
	}

	identity, _ := resolveIdentity(cfg, ctx)

	seed := tracepack.Seed{
		Identity:      identity,
		CorrelationID: txID,
	}
	if cfg.rpcFields {
		service, method := splitFullMethod(fullMethod)
		seed.Fields = map[string]any{
			"rpc.service": service,
			"rpc.method":  method,
		}
	}
	rec := tracepack.NewRecord(seed)

	// Header delivery is best effort; the record keeps the id regardless.
	_ = grpc.SetHeader(ctx, metadata.Pairs(cfg.metadataKey, rec.CorrelationID()))

	return tracepack.ContextWithRecord(ctx, rec)
}

// resolveIdentity determines the caller identity for the call, consulting the
// configured resolver first and the context principal otherwise.
func resolveIdentity(cfg *config, ctx context.Context) (string, bool) {
	if cfg.identityResolver != nil {
		return cfg.identityResolver(ctx)
	}
	principal, ok := tracepack.PrincipalFromContext(ctx)
	if !ok {
		return "", false
	}
	return tracepack.ResolveIdentity(principal, cfg.identityPath)
}

// logCall emits the completion entry for a finished RPC through the default
// logger, which routes into the installed tracepack handler.
func logCall(ctx context.Context, cfg *config, code codes.Code, elapsed time.Duration, reqBytes, respBytes int64) {
	attrs := []slog.Attr{
		slog.String("rpc.code", code.String()),
		slog.Duration("rpc.duration", elapsed),
	}
	if cfg.includeSizes {
		attrs = append(attrs,
			slog.Int64("rpc.request_bytes", reqBytes),
			slog.Int64("rpc.response_bytes", respBytes),
		)
	}
	slog.Default().LogAttrs(ctx, codeLevel(code), "rpc completed", attrs...)
}

// codeLevel maps a gRPC status code to the severity of its completion entry.
func codeLevel(code codes.Code) slog.Level {
	switch code {
	case codes.OK, codes.Canceled:
		return slog.LevelInfo
	case codes.Unknown, codes.Internal, codes.DataLoss, codes.Unavailable:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// firstMetadataValue returns the first non-blank value for key in md.
func firstMetadataValue(md metadata.MD, key string) string {
	if md == nil {
		return ""
	}
	for _, v := range md.Get(key) {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// splitFullMethod parses the service and method components out of a
// fully-qualified gRPC method string such as "/contacts.v1.Contacts/Create".
func splitFullMethod(full string) (service, method string) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(full), "/")
	if svc, m, ok := strings.Cut(trimmed, "/"); ok {
		return svc, m
	}
	return "", trimmed
}

// messageSize returns the encoded size of a gRPC message when possible.
func messageSize(msg any) int64 {
	switch m := msg.(type) {
	case proto.Message:
		return int64(proto.Size(m))
	case interface{ Size() int }:
		return int64(m.Size())
	default:
		return 0
	}
}

// recordServerStream delivers the record-bound context to stream handlers and
// accumulates payload sizes when completion entries need them.
type recordServerStream struct {
	grpc.ServerStream
	ctx   context.Context
	sizes bool

	recvBytes atomic.Int64
	sentBytes atomic.Int64
}

// Context returns the record-bound context for the wrapped stream.
func (s *recordServerStream) Context() context.Context {
	return s.ctx
}

// RecvMsg accumulates inbound payload sizes after delegating to the
// underlying stream.
func (s *recordServerStream) RecvMsg(m any) error {
	err := s.ServerStream.RecvMsg(m)
	if err == nil && s.sizes {
		s.recvBytes.Add(messageSize(m))
	}
	return err
}

// SendMsg accumulates outbound payload sizes before delegating to the
// underlying stream.
func (s *recordServerStream) SendMsg(m any) error {
	if s.sizes {
		s.sentBytes.Add(messageSize(m))
	}
	return s.ServerStream.SendMsg(m)
}
