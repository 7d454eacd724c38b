package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "message only",
			err:  ConfigError("salt source resolved to an empty salt"),
			want: "config: salt source resolved to an empty salt",
		},
		{
			name: "with cause",
			err:  ConnectionError("failed to read from Redis", errors.New("dial tcp: connection refused")),
			want: "connection: failed to read from Redis: cause=dial tcp: connection refused",
		},
		{
			name: "context keys are sorted",
			err: ConfigError("failed to read salt file").
				WithContext("source", "file").
				WithContext("path", "/etc/salt"),
			want: "config: failed to read salt file: context={path=/etc/salt, source=file}",
		},
		{
			name: "cause before context",
			err:  InternalError("failed to build link", errors.New("bad route")).WithContext("route", "confirm"),
			want: "internal: failed to build link: cause=bad route: context={route=confirm}",
		},
		{
			name: "not found names the resource",
			err:  NotFoundError("redis key signed-params:salt"),
			want: "not_found: redis key signed-params:salt not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestAppError_WithContext(t *testing.T) {
	err := ValidationError("route variable id must be a scalar")

	same := err.WithContext("route", "confirm")
	assert.Same(t, err, same)

	err.WithContext("var", "id")
	assert.Equal(t, map[string]interface{}{"route": "confirm", "var": "id"}, err.Context)
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("redis: connection pool timeout")
	err := ConnectionError("failed to connect to Redis", cause)

	assert.ErrorIs(t, err, cause)
	assert.Nil(t, ConfigError("no cause").Unwrap())

	var appErr *AppError
	require.ErrorAs(t, fmt.Errorf("loading salt: %w", err), &appErr)
	assert.Equal(t, ErrTypeConnection, appErr.Type)
}

func TestIsType(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		errType ErrorType
		want    bool
	}{
		{"matching type", ConfigError("unknown salt source kind"), ErrTypeConfig, true},
		{"other type", ConfigError("unknown salt source kind"), ErrTypeConnection, false},
		{"wrapped", fmt.Errorf("reload: %w", ConnectionError("failed to read from Redis", nil)), ErrTypeConnection, true},
		{"plain error", errors.New("boom"), ErrTypeInternal, false},
		{"nil", nil, ErrTypeConfig, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsType(tt.err, tt.errType))
		})
	}
}
