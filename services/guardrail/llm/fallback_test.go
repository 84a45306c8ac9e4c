// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient fails a configured number of times, then succeeds.
type scriptedClient struct {
	mu        sync.Mutex
	model     string
	failures  int
	calls     int
	callLog   *[]string
	sleepTime time.Duration
}

func (s *scriptedClient) Generate(ctx context.Context, _ string, _ GenerationParams) (string, error) {
	s.mu.Lock()
	s.calls++
	calls := s.calls
	if s.callLog != nil {
		*s.callLog = append(*s.callLog, s.model)
	}
	s.mu.Unlock()

	if s.sleepTime > 0 {
		select {
		case <-time.After(s.sleepTime):
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", ErrModelUnavailable, ctx.Err())
		}
	}

	if calls <= s.failures {
		return "", fmt.Errorf("%w: scripted failure %d", ErrModelUnavailable, calls)
	}
	return "answer from " + s.model, nil
}

// scriptedFactory hands out pre-built clients by model name.
func scriptedFactory(clients map[string]*scriptedClient) Factory {
	return func(model string) (Client, error) {
		c, ok := clients[model]
		if !ok {
			return nil, fmt.Errorf("%w: no script for %q", ErrUnknownProvider, model)
		}
		return c, nil
	}
}

func TestFallbackChain_PrimarySucceedsFirstTry(t *testing.T) {
	var log []string
	clients := map[string]*scriptedClient{
		"primary": {model: "primary", callLog: &log},
		"backup":  {model: "backup", callLog: &log},
	}

	chain := NewFallbackChain(scriptedFactory(clients), "primary", []string{"backup"})
	out, err := chain.Generate(context.Background(), "q", GenerationParams{})

	require.NoError(t, err)
	assert.Equal(t, "answer from primary", out)
	assert.Equal(t, []string{"primary"}, log, "no extra attempts after success")
}

func TestFallbackChain_PrimaryRetriedOnceThenFallback(t *testing.T) {
	var log []string
	clients := map[string]*scriptedClient{
		"primary": {model: "primary", failures: 10, callLog: &log},
		"backup":  {model: "backup", callLog: &log},
	}

	chain := NewFallbackChain(scriptedFactory(clients), "primary", []string{"backup"})
	out, err := chain.Generate(context.Background(), "q", GenerationParams{})

	require.NoError(t, err)
	assert.Equal(t, "answer from backup", out)
	// Primary once + one internal retry, then the fallback.
	assert.Equal(t, []string{"primary", "primary", "backup"}, log)
}

func TestFallbackChain_SkipsFallbackEqualToPrimary(t *testing.T) {
	var log []string
	clients := map[string]*scriptedClient{
		"m1": {model: "m1", failures: 10, callLog: &log},
		"m2": {model: "m2", callLog: &log},
	}

	chain := NewFallbackChain(scriptedFactory(clients), "m1", []string{"m1", "m2", "m1"})
	out, err := chain.Generate(context.Background(), "q", GenerationParams{})

	require.NoError(t, err)
	assert.Equal(t, "answer from m2", out)
	assert.Equal(t, []string{"m1", "m1", "m2"}, log)
}

func TestFallbackChain_AllExhaustedCarriesLastError(t *testing.T) {
	clients := map[string]*scriptedClient{
		"m1": {model: "m1", failures: 10},
		"m2": {model: "m2", failures: 10},
	}

	chain := NewFallbackChain(scriptedFactory(clients), "m1", []string{"m2"})
	_, err := chain.Generate(context.Background(), "q", GenerationParams{})

	require.Error(t, err)
	require.True(t, IsExhausted(err))

	var ee *ExhaustedError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 3, ee.Attempts)
	assert.Equal(t, []string{"m1", "m1", "m2"}, ee.Models)
	assert.ErrorIs(t, ee.LastErr, ErrModelUnavailable)
}

func TestFallbackChain_FactoryErrorCountsAsAttempt(t *testing.T) {
	factory := func(model string) (Client, error) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, model)
	}

	chain := NewFallbackChain(factory, "ghost", nil)
	_, err := chain.Generate(context.Background(), "q", GenerationParams{})

	require.True(t, IsExhausted(err))
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestFallbackChain_AttemptTimeoutTriggersFallback(t *testing.T) {
	var log []string
	clients := map[string]*scriptedClient{
		"slow": {model: "slow", sleepTime: 5 * time.Second, callLog: &log},
		"fast": {model: "fast", callLog: &log},
	}

	chain := NewFallbackChain(scriptedFactory(clients), "slow", []string{"fast"},
		WithAttemptTimeout(20*time.Millisecond))

	start := time.Now()
	out, err := chain.Generate(context.Background(), "q", GenerationParams{})

	require.NoError(t, err)
	assert.Equal(t, "answer from fast", out)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, []string{"slow", "slow", "fast"}, log)
}

func TestFallbackChain_CallerCancelStopsChain(t *testing.T) {
	clients := map[string]*scriptedClient{
		"m1": {model: "m1", failures: 10},
		"m2": {model: "m2"},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chain := NewFallbackChain(scriptedFactory(clients), "m1", []string{"m2"})
	_, err := chain.Generate(ctx, "q", GenerationParams{})

	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsExhausted(err))
}

func TestOfflineClient_Deterministic(t *testing.T) {
	c := NewOfflineClient("echo")

	a, err := c.Generate(context.Background(), "same prompt", GenerationParams{})
	require.NoError(t, err)
	b, err := c.Generate(context.Background(), "same prompt", GenerationParams{})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Contains(t, a, "same prompt")
}

func TestFactoryFor_UnknownProvider(t *testing.T) {
	_, err := FactoryFor("carrier-pigeon")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestFactoryFor_Offline(t *testing.T) {
	factory, err := FactoryFor(ProviderOffline)
	require.NoError(t, err)

	client, err := factory("echo")
	require.NoError(t, err)

	out, err := client.Generate(context.Background(), "ping", GenerationParams{})
	require.NoError(t, err)
	assert.Contains(t, out, "ping")
}
