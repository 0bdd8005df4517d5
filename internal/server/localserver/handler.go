package localserver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/yndnr/imrelay/internal/core/domain"
	"github.com/yndnr/imrelay/internal/infra/buildinfo"
	"github.com/yndnr/imrelay/internal/server/relayserver"
)

// Controller is the relay surface exposed over the socket.
type Controller interface {
	Status(ctx context.Context) (relayserver.Status, error)
	DropActive(ctx context.Context) (string, error)
}

// Response is one reply line.
type Response struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data,omitempty"`
	Code  string          `json:"code,omitempty"`
	Error string          `json:"error,omitempty"`
}

// StatusData is the payload of the status command.
type StatusData struct {
	relayserver.Status `yaml:",inline"`
	Version            buildinfo.Info `json:"version" yaml:"version"`
}

// DropData is the payload of the drop command.
type DropData struct {
	SessionID string `json:"session_id" yaml:"session_id"`
}

// Handler handles local management commands.
type Handler struct {
	relay Controller
}

// NewHandler creates a new Handler.
func NewHandler(relay Controller) *Handler {
	return &Handler{relay: relay}
}

// Execute executes a local management command.
func (h *Handler) Execute(ctx context.Context, line string) Response {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return errorResponse(domain.ErrInvalidArgument.WithDetails("empty command"))
	}

	switch cmd := strings.ToLower(fields[0]); cmd {
	case "status":
		return h.handleStatus(ctx)
	case "drop":
		return h.handleDrop(ctx)
	default:
		return errorResponse(domain.ErrInvalidArgument.WithDetails("unknown command: " + cmd))
	}
}

func (h *Handler) handleStatus(ctx context.Context) Response {
	st, err := h.relay.Status(ctx)
	if err != nil {
		return errorResponse(err)
	}
	return dataResponse(StatusData{Status: st, Version: buildinfo.Get()})
}

func (h *Handler) handleDrop(ctx context.Context) Response {
	id, err := h.relay.DropActive(ctx)
	if err != nil {
		return errorResponse(err)
	}
	return dataResponse(DropData{SessionID: id})
}

func dataResponse(v any) Response {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResponse(err)
	}
	return Response{OK: true, Data: data}
}

func errorResponse(err error) Response {
	resp := Response{OK: false, Error: err.Error()}
	var de *domain.DomainError
	if errors.As(err, &de) {
		resp.Code = de.Code
		resp.Error = de.Message
		if de.Details != "" {
			resp.Error += ": " + de.Details
		}
	}
	return resp
}
