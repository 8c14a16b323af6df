package xcontext

import (
	"context"
)

type (
	requestID struct{}
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestID{}, id)
}

func GetRequestID(ctx context.Context) string {
	id, ok := ctx.Value(requestID{}).(string)
	if ok {
		return id
	}

	return ""
}
