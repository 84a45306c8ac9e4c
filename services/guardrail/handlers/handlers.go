// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers exposes the verification pipeline over HTTP.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/LexGuard/services/guardrail/llm"
	"github.com/AleutianAI/LexGuard/services/guardrail/telemetry"
	"github.com/AleutianAI/LexGuard/services/guardrail/workflow"
)

// VerificationRunner is the slice of the pipeline the HTTP layer needs.
type VerificationRunner interface {
	RunVerification(ctx context.Context, question, provider, model string) (*workflow.RunState, error)
}

// VerifyRequest is the body of POST /api/v1/verify.
type VerifyRequest struct {
	Question string `json:"question" binding:"required"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Handlers carries the HTTP handler set and its dependencies.
type Handlers struct {
	runner          VerificationRunner
	defaultProvider string
	defaultModel    string
	logger          *slog.Logger
}

// NewHandlers creates the handler set.
//
// Inputs:
//
//	runner - The verification pipeline. Must not be nil.
//	defaultProvider, defaultModel - Used when a request omits them.
func NewHandlers(runner VerificationRunner, defaultProvider, defaultModel string, logger *slog.Logger) (*Handlers, error) {
	if runner == nil {
		return nil, errors.New("runner must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		runner:          runner,
		defaultProvider: defaultProvider,
		defaultModel:    defaultModel,
		logger:          logger,
	}, nil
}

// NewRouter builds the service router with tracing and recovery middleware.
func NewRouter(h *Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("lexguard"))
	RegisterRoutes(router, h)
	return router
}

// RegisterRoutes mounts all endpoints on the router.
func RegisterRoutes(router *gin.Engine, h *Handlers) {
	router.GET("/healthz", h.Health)

	if mh := telemetry.MetricsHandler(); mh != nil {
		router.GET("/metrics", gin.WrapH(mh))
	}

	api := router.Group("/api/v1")
	api.POST("/verify", h.Verify)
}

// Health reports liveness.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Verify runs the full verification pipeline for one question.
//
// Description:
//
//	Responds with the completed run state: answer, claims, per-claim
//	verdicts, the overall reliability call, and whether the run was queued
//	for human review.
func (h *Handlers) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	provider := req.Provider
	if provider == "" {
		provider = h.defaultProvider
	}
	model := req.Model
	if model == "" {
		model = h.defaultModel
	}

	rs, err := h.runner.RunVerification(c.Request.Context(), req.Question, provider, model)
	if err != nil {
		switch {
		case errors.Is(err, llm.ErrUnknownProvider):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": "verification timed out"})
		default:
			h.logger.Error("verification failed", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
		}
		return
	}

	c.JSON(http.StatusOK, rs)
}
