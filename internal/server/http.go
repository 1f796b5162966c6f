package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/muurk/ptzlink/internal/logging"
	"github.com/muurk/ptzlink/internal/session"
	"github.com/muurk/ptzlink/internal/speed"
	"github.com/muurk/ptzlink/internal/version"
	"github.com/muurk/ptzlink/internal/visca"
)

// Variable is one entry of GET /api/variables
type Variable struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// StatusResponse is the body of GET /api/status
type StatusResponse struct {
	Version   string            `json:"version"`
	Transport string            `json:"transport"`
	Target    string            `json:"target"`
	Clients   int               `json:"clients"`
	Session   *session.Snapshot `json:"session,omitempty"`
}

// SpeedResponse is the body of the /api/speed endpoints
type SpeedResponse struct {
	Pan    int    `json:"pan"`
	Tilt   int    `json:"tilt"`
	Result string `json:"result,omitempty"`
}

type speedRequest struct {
	Speed *int `json:"speed"`
}

type jsonErr struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, jsonErr{Error: msg, Code: status})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Version:   version.Version,
		Transport: s.camera.Status().String(),
		Target:    s.camera.Target(),
		Clients:   s.hub.Clients(),
	}
	if src := s.sessionSource(); src != nil {
		snap := src.Snapshot()
		resp.Session = &snap
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleVariables lists the current definitions with their latest values
func (s *Server) handleVariables(w http.ResponseWriter, r *http.Request) {
	defs := s.store.Definitions()
	values := s.store.Values()
	out := make([]Variable, 0, len(defs))
	for _, d := range defs {
		out = append(out, Variable{ID: d.ID, Name: d.Name, Value: values[d.ID]})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) speedResponse(result string) SpeedResponse {
	cur := s.speed.Current()
	return SpeedResponse{Pan: cur.Pan, Tilt: cur.Tilt, Result: result}
}

func (s *Server) handleSpeedGet(w http.ResponseWriter, r *http.Request) {
	s.speedMu.Lock()
	defer s.speedMu.Unlock()
	writeJSON(w, http.StatusOK, s.speedResponse(""))
}

func (s *Server) handleSpeedSet(w http.ResponseWriter, r *http.Request) {
	var req speedRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil || req.Speed == nil {
		writeError(w, http.StatusBadRequest, `body must be {"speed": <int>}`)
		return
	}

	s.speedMu.Lock()
	defer s.speedMu.Unlock()
	result := s.speed.Set(*req.Speed)
	writeJSON(w, http.StatusOK, s.speedResponse(result.String()))
}

func (s *Server) handleSpeedStep(up bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.speedMu.Lock()
		defer s.speedMu.Unlock()
		if up {
			s.speed.Increase()
		} else {
			s.speed.Decrease()
		}
		writeJSON(w, http.StatusOK, s.speedResponse(""))
	}
}

func (s *Server) currentSpeeds() speed.Speeds {
	s.speedMu.Lock()
	defer s.speedMu.Unlock()
	return s.speed.Current()
}

func (s *Server) handleDrive(w http.ResponseWriter, r *http.Request) {
	dir, err := visca.ParseDirection(chi.URLParam(r, "direction"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.send(w, r, visca.Drive(dir, s.currentSpeeds()))
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.send(w, r, visca.Stop(s.currentSpeeds()))
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.send(w, r, visca.Home())
}

func (s *Server) handleZoom(w http.ResponseWriter, r *http.Request) {
	var cmd visca.Command
	switch chi.URLParam(r, "action") {
	case "tele":
		cmd = visca.ZoomTele()
	case "wide":
		cmd = visca.ZoomWide()
	case "stop":
		cmd = visca.ZoomStop()
	default:
		writeError(w, http.StatusNotFound, "zoom action must be tele, wide or stop")
		return
	}
	s.send(w, r, cmd)
}

func (s *Server) handlePreset(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "preset must be a number")
		return
	}

	var cmd visca.Command
	switch chi.URLParam(r, "action") {
	case "recall":
		cmd, err = visca.PresetRecall(n)
	case "set":
		cmd, err = visca.PresetSet(n)
	default:
		writeError(w, http.StatusNotFound, "preset action must be recall or set")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.send(w, r, cmd)
}

func (s *Server) handlePower(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.config.CommandTimeout)
	defer cancel()

	answer, err := s.camera.SendInquiry(ctx, visca.PowerInquiry())
	if err != nil {
		s.commandFailed(w, "power", err)
		return
	}
	on, err := answer.PowerOn()
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"on": on})
}

// send issues cmd and maps the outcome to a status code
func (s *Server) send(w http.ResponseWriter, r *http.Request, cmd visca.Command) {
	ctx, cancel := context.WithTimeout(r.Context(), s.config.CommandTimeout)
	defer cancel()

	err := s.camera.SendCommand(ctx, cmd)
	switch {
	case errors.Is(err, visca.ErrCompletionPending):
		// Acked and still moving
		writeJSON(w, http.StatusAccepted, map[string]string{"command": cmd.Name, "state": "pending"})
	case err != nil:
		s.commandFailed(w, cmd.Name, err)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"command": cmd.Name})
	}
}

// commandFailed maps a refused command to 409 and a channel fault to 503
func (s *Server) commandFailed(w http.ResponseWriter, name string, err error) {
	s.metrics.CommandFailed()
	logging.Warn("Camera command failed", zap.String("command", name), zap.Error(err))

	var perr *visca.ProtocolError
	if errors.As(err, &perr) {
		writeError(w, http.StatusConflict, perr.Error())
		return
	}
	writeError(w, http.StatusServiceUnavailable, err.Error())
}
