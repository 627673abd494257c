package service

import (
	"context"
	"errors"
	"testing"

	"github.com/deppfellow/endpoint-bridge/internal/lib/job"
	"github.com/deppfellow/endpoint-bridge/internal/server"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBumper struct {
	version int64
	err     error
}

func (b *fakeBumper) Bump(context.Context) (int64, error) {
	if b.err != nil {
		return 0, b.err
	}
	b.version++
	return b.version, nil
}

type fakeResetter struct {
	resets int
	err    error
}

func (r *fakeResetter) Reset(context.Context) error {
	r.resets++
	return r.err
}

func testServer() *server.Server {
	logger := zerolog.Nop()
	return &server.Server{Logger: &logger}
}

func TestEndpointService_Reset(t *testing.T) {
	bumper := &fakeBumper{}
	resetter := &fakeResetter{}
	svc := NewEndpointService(testServer(), bumper, resetter)

	require.NoError(t, svc.Reset(context.Background(), job.EndpointResetPayload{Reason: "test"}))

	assert.Equal(t, int64(1), bumper.version)
	assert.Equal(t, 1, resetter.resets)
}

func TestEndpointService_ResetWithoutBumper(t *testing.T) {
	resetter := &fakeResetter{}
	svc := NewEndpointService(testServer(), nil, resetter)

	require.NoError(t, svc.Reset(context.Background(), job.EndpointResetPayload{}))
	assert.Equal(t, 1, resetter.resets)
}

func TestEndpointService_ResetStopsWhenBumpFails(t *testing.T) {
	boom := errors.New("database down")
	resetter := &fakeResetter{}
	svc := NewEndpointService(testServer(), &fakeBumper{err: boom}, resetter)

	err := svc.Reset(context.Background(), job.EndpointResetPayload{})

	assert.ErrorIs(t, err, boom)
	assert.Zero(t, resetter.resets)
}

func TestEndpointService_RequestResetWithoutJobs(t *testing.T) {
	svc := NewEndpointService(testServer(), nil, &fakeResetter{})

	_, err := svc.RequestReset(context.Background(), job.EndpointResetPayload{})
	assert.Error(t, err)
}
