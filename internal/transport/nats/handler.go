package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"playledger/internal/ledger"
	"playledger/internal/model"
	"playledger/internal/service"
)

const (
	PlayTopic  = "commands.play"
	MintTopic  = "commands.mint"
	queueGroup = "ledger_group"

	codeInvalidCommand = "invalid_command"
)

var errInvalidCommand = errors.New("invalid command payload")

// Handler subscribes to NATS command topics and delegates to the ledger service.
// The bus is internal and trusted, so the participant in the payload is the caller.
type Handler struct {
	svc  service.LedgerService
	nc   *nats.Conn
	subs []*nats.Subscription
}

func NewHandler(svc service.LedgerService, nc *nats.Conn) *Handler {
	return &Handler{svc: svc, nc: nc}
}

// CommandReply is sent back when a command message carries a reply subject.
type CommandReply struct {
	Code   string `json:"code"`
	Error  string `json:"error,omitempty"`
	Result any    `json:"result,omitempty"`
}

// command decodes one payload and runs it against the ledger.
type command func(ctx context.Context, data []byte) (any, error)

// Start subscribes to command topics and blocks until ctx is cancelled (graceful shutdown).
func (h *Handler) Start(ctx context.Context) error {
	s1, err := h.nc.QueueSubscribe(PlayTopic, queueGroup, h.onMessage(ctx, h.play))
	if err != nil {
		return err
	}
	h.subs = append(h.subs, s1)

	s2, err := h.nc.QueueSubscribe(MintTopic, queueGroup, h.onMessage(ctx, h.mint))
	if err != nil {
		return err
	}
	h.subs = append(h.subs, s2)

	slog.Info("NATS command handler is running")

	// Block until context is cancelled.
	<-ctx.Done()
	slog.Info("NATS command handler shutting down, draining subscriptions...")

	for _, s := range h.subs {
		_ = s.Drain()
	}
	return nil
}

func (h *Handler) Stop(ctx context.Context) error {
	for _, s := range h.subs {
		_ = s.Unsubscribe()
	}
	return nil
}

func (h *Handler) onMessage(ctx context.Context, run command) nats.MsgHandler {
	return func(m *nats.Msg) {
		data := h.process(ctx, m.Subject, run, m.Data)
		if m.Reply == "" {
			return
		}
		if err := m.Respond(data); err != nil {
			slog.Error("nats: failed to respond", "subject", m.Subject, "error", err)
		}
	}
}

// process runs one command message and returns the encoded reply.
func (h *Handler) process(ctx context.Context, subject string, run command, payload []byte) []byte {
	result, err := run(ctx, payload)
	if err != nil {
		slog.Error("nats: command failed", "subject", subject, "error", err)
	}
	data, mErr := json.Marshal(commandReply(result, err))
	if mErr != nil {
		slog.Error("nats: failed to marshal reply", "subject", subject, "error", mErr)
		data, _ = json.Marshal(CommandReply{Code: ledger.CodeInternal, Error: mErr.Error()})
	}
	return data
}

func (h *Handler) play(ctx context.Context, data []byte) (any, error) {
	var req model.PlayRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidCommand, err)
	}
	res, err := h.svc.Play(ctx, req.Participant, req)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (h *Handler) mint(ctx context.Context, data []byte) (any, error) {
	var req model.MintRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidCommand, err)
	}
	res, err := h.svc.MintToday(ctx, req.Participant, req)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func commandReply(result any, err error) CommandReply {
	switch {
	case err == nil:
		return CommandReply{Code: ledger.CodeOK, Result: result}
	case errors.Is(err, errInvalidCommand):
		return CommandReply{Code: codeInvalidCommand, Error: err.Error()}
	default:
		return CommandReply{Code: ledger.ErrorCode(err), Error: err.Error()}
	}
}
