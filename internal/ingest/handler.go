package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/mlevkov/camlink/internal/ingest/auth"
	"github.com/mlevkov/camlink/internal/ingest/photos"
	"github.com/mlevkov/camlink/internal/logging"
)

// maxUploadBytes caps one upload body. The link tops out at a few hundred
// kilobytes per image; anything bigger is not ours.
const maxUploadBytes = 8 << 20

// Ingestor is the service surface the HTTP layer needs.
type Ingestor interface {
	Ingest(ctx context.Context, sensorID, filename string, body io.Reader, size int64) (*photos.Photo, error)
	List(ctx context.Context, sensorID string, limit int) ([]*photos.Photo, error)
}

// Handler terminates the modem-facing HTTP surface. Uploads arrive exactly
// the way the relay sends them: raw JPEG body, identity in query params.
type Handler struct {
	svc    Ingestor
	secret []byte // empty disables auth
	log    logging.Logger
}

func NewHandler(svc Ingestor, secret []byte, log logging.Logger) *Handler {
	return &Handler{svc: svc, secret: secret, log: log.With("module", "http")}
}

// Mux routes the service endpoints.
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", h.withAuth(h.handleUpload))
	mux.HandleFunc("GET /photos", h.withAuth(h.handleList))
	mux.HandleFunc("GET /healthz", h.handleHealth)
	return mux
}

type errorReply struct {
	Error string `json:"error"`
}

type uploadReply struct {
	ID         string `json:"id"`
	SensorID   string `json:"sensor_id"`
	Filename   string `json:"filename"`
	StorageKey string `json:"storage_key"`
	Size       int64  `json:"size"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// withAuth validates the bearer token when a secret is configured. The
// sensor in the token must match the id_sensor query parameter.
func (h *Handler) withAuth(next http.HandlerFunc) http.HandlerFunc {
	if len(h.secret) == 0 {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.FromAuthHeader(r.Header.Get("Authorization"))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorReply{Error: "missing or malformed authorization header"})
			return
		}
		sensorID, err := auth.GetSensorIDFromToken(token, h.secret)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorReply{Error: "invalid token"})
			return
		}
		if q := r.URL.Query().Get("id_sensor"); q != "" && q != sensorID {
			writeJSON(w, http.StatusForbidden, errorReply{Error: "token issued for another sensor"})
			return
		}
		next(w, r)
	}
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sensorID := q.Get("id_sensor")
	filename := q.Get("filename")
	if sensorID == "" || filename == "" {
		writeJSON(w, http.StatusBadRequest, errorReply{Error: "id_sensor and filename query parameters are required"})
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxUploadBytes)
	data, err := io.ReadAll(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorReply{Error: "body read failed"})
		return
	}
	if len(data) == 0 {
		writeJSON(w, http.StatusBadRequest, errorReply{Error: "empty body"})
		return
	}

	photo, err := h.svc.Ingest(r.Context(), sensorID, filename, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		h.log.Error(r.Context(), "ingest failed", "sensor", sensorID, "file", filename, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorReply{Error: "ingest failed"})
		return
	}

	writeJSON(w, http.StatusOK, uploadReply{
		ID:         photo.ID,
		SensorID:   photo.SensorID,
		Filename:   photo.Filename,
		StorageKey: photo.StorageKey,
		Size:       photo.Size,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sensorID := q.Get("id_sensor")
	if sensorID == "" {
		writeJSON(w, http.StatusBadRequest, errorReply{Error: "id_sensor query parameter is required"})
		return
	}

	limit := 50
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorReply{Error: "invalid limit"})
			return
		}
		limit = n
	}

	list, err := h.svc.List(r.Context(), sensorID, limit)
	if err != nil {
		h.log.Error(r.Context(), "list failed", "sensor", sensorID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorReply{Error: "list failed"})
		return
	}

	reply := make([]uploadReply, 0, len(list))
	for _, p := range list {
		reply = append(reply, uploadReply{
			ID:         p.ID,
			SensorID:   p.SensorID,
			Filename:   p.Filename,
			StorageKey: p.StorageKey,
			Size:       p.Size,
		})
	}
	writeJSON(w, http.StatusOK, reply)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
