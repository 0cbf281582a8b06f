package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/optiplus/clinic-api/internal/hub"
	"github.com/optiplus/clinic-api/internal/model"
	apperrors "github.com/optiplus/clinic-api/pkg/errors"
	"github.com/optiplus/clinic-api/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 64
)

// WorkflowService is the command surface the channel dispatches to.
type WorkflowService interface {
	RegisterDoctor(clientID string) error
	SubmitNewPatient(ctx context.Context, req *model.NewPatientRequest) (*model.Patient, error)
	SubmitExaminationComplete(ctx context.Context, req *model.ExaminationCompleteRequest) error
	SubmitSaleComplete(ctx context.Context, req *model.SalesCompleteRequest) error
	Disconnect(clientID string)
}

type Handler struct {
	hub      *hub.Hub
	service  WorkflowService
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader
}

func NewHandler(h *hub.Hub, service WorkflowService, m *metrics.Metrics) *Handler {
	return &Handler{
		hub:     h,
		service: service,
		metrics: m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Panels are served from the same deployment; origin checks
			// are left to the CORS layer on the REST side.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/ws", h.Serve)
}

// Serve upgrades the connection and runs its read loop. Each connection gets
// a generated client id; role is plain connection state, assigned when the
// client sends register_as_doctor.
func (h *Handler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &hub.Client{
		ID:   uuid.NewString(),
		Send: make(chan []byte, sendBufferSize),
	}
	h.hub.Register(client)
	h.metrics.ConnectedClients.Set(float64(h.hub.ClientCount()))
	log.Info().Str("client_id", client.ID).Msg("client connected")

	go h.writePump(conn, client)
	h.readPump(conn, client)
}

func (h *Handler) readPump(conn *websocket.Conn, client *hub.Client) {
	defer func() {
		h.service.Disconnect(client.ID)
		h.metrics.ConnectedClients.Set(float64(h.hub.ClientCount()))
		h.metrics.DoctorClients.Set(float64(h.hub.DoctorCount()))
		conn.Close()
		log.Info().Str("client_id", client.ID).Msg("client disconnected")
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("client_id", client.ID).Msg("unexpected close")
			}
			return
		}

		var env model.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			h.sendError(client.ID, "malformed message")
			continue
		}
		h.dispatch(client.ID, &env)
	}
}

func (h *Handler) dispatch(clientID string, env *model.Envelope) {
	ctx := context.Background()

	var err error
	switch env.Event {
	case model.EventRegisterAsDoctor:
		if err = h.service.RegisterDoctor(clientID); err == nil {
			h.metrics.DoctorClients.Set(float64(h.hub.DoctorCount()))
		}
	case model.EventNewPatient:
		var req model.NewPatientRequest
		if err = json.Unmarshal(env.Data, &req); err != nil {
			err = apperrors.Validation("malformed patient payload", err)
			break
		}
		_, err = h.service.SubmitNewPatient(ctx, &req)
	case model.EventExaminationComplete:
		var req model.ExaminationCompleteRequest
		if err = json.Unmarshal(env.Data, &req); err != nil {
			err = apperrors.Validation("malformed examination payload", err)
			break
		}
		err = h.service.SubmitExaminationComplete(ctx, &req)
	case model.EventSalesComplete:
		var req model.SalesCompleteRequest
		if err = json.Unmarshal(env.Data, &req); err != nil {
			err = apperrors.Validation("malformed sale payload", err)
			break
		}
		err = h.service.SubmitSaleComplete(ctx, &req)
	default:
		err = apperrors.Validation("unknown event: "+env.Event, nil)
	}

	if err != nil {
		log.Warn().Err(err).Str("client_id", clientID).Str("event", env.Event).Msg("command rejected")
		h.sendError(clientID, userMessage(err))
	}
}

// sendError reports a failure to the originating client only. Other clients
// keep their last good snapshot.
func (h *Handler) sendError(clientID, message string) {
	env, err := model.NewEnvelope(model.EventError, message)
	if err != nil {
		return
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return
	}
	h.hub.SendTo(clientID, payload)
}

// userMessage keeps internals out of what the panels display.
func userMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal error"
}

func (h *Handler) writePump(conn *websocket.Conn, client *hub.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
