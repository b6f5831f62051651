package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/folkengine/goname"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/mumsspace/mumsspace-chat/ai"
	"github.com/mumsspace/mumsspace-chat/config"
	"github.com/mumsspace/mumsspace-chat/globals"
	"github.com/mumsspace/mumsspace-chat/hub"
	"github.com/mumsspace/mumsspace-chat/registry"
	"github.com/mumsspace/mumsspace-chat/session"
	"github.com/mumsspace/mumsspace-chat/store"
	"github.com/mumsspace/mumsspace-chat/types"
	"github.com/mumsspace/mumsspace-chat/ws"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type server struct {
	cfg         *config.Config
	registry    *registry.Registry
	store       *store.MessageStore
	coordinator *session.Coordinator
	hub         *hub.Hub
	aiClient    *ai.Client
}

func (s *server) routes() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/api/chat/rooms", s.listRoomsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/chat/rooms/{roomId:[0-9]+}/messages", s.getMessagesHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/chat/rooms/{roomId:[0-9]+}/messages", s.createMessageHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/groups", s.createGroupHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/groups/{roomId:[0-9]+}/members", s.addMemberHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/groups/{roomId:[0-9]+}/members/{userId:[0-9]+}", s.removeMemberHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/users", s.listUsersHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/users", s.createUserHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/reports", s.createReportHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/ai/help", s.aiHelpHandler).Methods(http.MethodPost)
	router.HandleFunc("/ws", s.websocketHandler).Methods(http.MethodGet)
	return router
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		globals.AppLogger.Error("could not encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, types.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, types.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, types.ErrInvalidContent):
		status = http.StatusBadRequest
	case errors.Is(err, types.ErrUpstream):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// queryInt64 parses an optional integer query parameter, 0 if absent.
func queryInt64(r *http.Request, name string) int64 {
	val := r.URL.Query().Get(name)
	if val == "" {
		return 0
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func pathInt64(r *http.Request, name string) int64 {
	n, _ := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return n
}

func (s *server) listRoomsHandler(w http.ResponseWriter, r *http.Request) {
	userId := queryInt64(r, "userId")
	if userId != 0 {
		writeJSON(w, http.StatusOK, s.registry.ListRoomsFor(userId))
		return
	}
	writeJSON(w, http.StatusOK, s.registry.ListRooms())
}

func (s *server) getMessagesHandler(w http.ResponseWriter, r *http.Request) {
	roomId := pathInt64(r, "roomId")
	limit := int(queryInt64(r, "limit"))
	userId := queryInt64(r, "userId")
	history, err := s.coordinator.History(roomId, userId, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *server) createMessageHandler(w http.ResponseWriter, r *http.Request) {
	roomId := pathInt64(r, "roomId")
	body := struct {
		Content string `json:"content"`
		UserId  int64  `json:"userId"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, types.ErrInvalidContent)
		return
	}
	message, err := s.coordinator.SendMessage(roomId, body.UserId, body.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, message)
}

func (s *server) createGroupHandler(w http.ResponseWriter, r *http.Request) {
	body := struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		CreatedBy   int64  `json:"createdBy"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, types.ErrInvalidContent)
		return
	}
	room, err := s.registry.CreateGroup(body.Name, body.Description, body.CreatedBy)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (s *server) addMemberHandler(w http.ResponseWriter, r *http.Request) {
	roomId := pathInt64(r, "roomId")
	body := struct {
		UserId int64 `json:"userId"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, types.ErrInvalidContent)
		return
	}
	if err := s.registry.AddMember(body.UserId, roomId); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *server) removeMemberHandler(w http.ResponseWriter, r *http.Request) {
	roomId := pathInt64(r, "roomId")
	userId := pathInt64(r, "userId")
	if err := s.registry.RemoveMember(userId, roomId); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *server) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.ListUsers())
}

func (s *server) createUserHandler(w http.ResponseWriter, r *http.Request) {
	body := struct {
		Username    string `json:"username"`
		AgeGroup    string `json:"ageGroup"`
		Initials    string `json:"initials"`
		AvatarColor string `json:"avatarColor"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, types.ErrInvalidContent)
		return
	}
	user, err := s.registry.CreateUser(body.Username, body.AgeGroup, body.Initials, body.AvatarColor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *server) createReportHandler(w http.ResponseWriter, r *http.Request) {
	body := struct {
		ReporterId       int64  `json:"reporterId"`
		ReportedUsername string `json:"reportedUsername"`
		Reason           string `json:"reason"`
		Description      string `json:"description"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, types.ErrInvalidContent)
		return
	}
	report, err := s.registry.CreateReport(body.ReporterId, body.ReportedUsername, body.Reason, body.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *server) aiHelpHandler(w http.ResponseWriter, r *http.Request) {
	body := struct {
		Question string `json:"question"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, types.ErrInvalidContent)
		return
	}
	answer, err := s.aiClient.GetAdvice(r.Context(), body.Question)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

// guestUser creates a directory entry for an anonymous connection so its
// messages carry a rendered identity.
func (s *server) guestUser() (*types.User, error) {
	var lastErr error
	for i := 0; i < 5; i++ {
		name := goname.New(goname.FantasyMap).FirstLast() + " (guest)"
		initials := "G"
		if len(name) > 0 {
			initials = strings.ToUpper(name[0:1])
		}
		user, err := s.registry.CreateUser(name, "0-1", initials, "blue")
		if err == nil {
			return user, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// Handle incoming websockets
func (s *server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	var user *types.User
	if userId := queryInt64(r, "userId"); userId != 0 {
		var err error
		user, err = s.registry.GetUser(userId)
		if err != nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
	} else {
		var err error
		user, err = s.guestUser()
		if err != nil {
			globals.AppLogger.Error("could not create guest user", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}

	filterSrc := r.URL.Query().Get("filter")
	connId, recv, err := s.coordinator.Connect(filterSrc)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		globals.AppLogger.Error("websocket upgrade error", "error", err)
		s.coordinator.Disconnect(connId)
		return
	}

	doneChan := make(chan struct{})
	client := ws.NewClient(conn, s.coordinator, s.aiClient, user, connId, recv, doneChan)
	go client.WriteLoop()
	go client.ReadLoop()

	<-doneChan
	s.coordinator.Disconnect(connId)
	globals.AppLogger.Debug("ws handler done", "conn", connId, "user", user.Id)
}
