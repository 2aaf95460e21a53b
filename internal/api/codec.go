package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ArkBriar/smartqq/internal/adapter"
	"github.com/ArkBriar/smartqq/internal/outbox"
	"github.com/ArkBriar/smartqq/internal/qq"
	"github.com/ArkBriar/smartqq/internal/store"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// encodeStruct converts a json-tagged value into a Struct message.
func encodeStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return out, nil
}

// decodeStruct fills a json-tagged value from a Struct message.
func decodeStruct(s *structpb.Struct, v any) error {
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	return nil
}

func rawJSON(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// toStatus maps a domain error onto a gRPC status.
func toStatus(op string, err error) error {
	var transport *qq.TransportError
	code := codes.Internal
	switch {
	case errors.Is(err, qq.ErrNotLoggedIn), errors.As(err, &transport):
		code = codes.Unavailable
	case errors.Is(err, adapter.ErrUnknownKind),
		errors.Is(err, outbox.ErrUnknownKind),
		errors.Is(err, outbox.ErrEmptyText):
		code = codes.InvalidArgument
	case errors.Is(err, adapter.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, adapter.ErrAuthInProgress):
		code = codes.FailedPrecondition
	case errors.Is(err, store.ErrDuplicate):
		code = codes.AlreadyExists
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	}
	return grpcstatus.Errorf(code, "%s: %v", op, err)
}

func errUnavailable(what string) error {
	return grpcstatus.Errorf(codes.Unavailable, "%s not initialized", what)
}
