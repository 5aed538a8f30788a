package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nyx-testnet/nyx-gateway/internal/gwerrors"
)

func (s *Server) registerChatRoutes(r *mux.Router) {
	r.HandleFunc("/chat/v1/rooms", s.handleChatCreateRoom).Methods(http.MethodPost)
	r.HandleFunc("/chat/v1/rooms", s.handleChatListRooms).Methods(http.MethodGet)
	r.HandleFunc("/chat/v1/rooms/{id}/messages", s.handleChatSendRoomMessage).Methods(http.MethodPost)
	r.HandleFunc("/chat/v1/rooms/{id}/messages", s.handleChatRoomMessages).Methods(http.MethodGet)
	r.HandleFunc("/chat/v1/conversations", s.handleChatConversations).Methods(http.MethodGet)
	r.HandleFunc("/chat/messages", s.handleChatLegacyMessages).Methods(http.MethodPost, http.MethodGet)
	if s.hub != nil {
		r.HandleFunc("/chat/v1/ws", s.hub.HandleWS).Methods(http.MethodGet)
	}
}

func (s *Server) handleChatCreateRoom(w http.ResponseWriter, r *http.Request) {
	env, err := decodeMutatingEnvelope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, _, err := s.session(r.Context(), r)
	if err != nil {
		writeError(w, err)
		return
	}
	wallet, err := s.walletAddress(r.Context(), id.AccountID)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.exec.ChatCreateRoom(r.Context(), wallet, clientIP(r), env.Seed, env.RunID, env.Payload)
	writeResponse(w, resp, err)
}

func (s *Server) handleChatListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.store.ListChatRooms(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

func (s *Server) handleChatSendRoomMessage(w http.ResponseWriter, r *http.Request) {
	env, err := decodeMutatingEnvelope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	roomID := mux.Vars(r)["id"]
	env.Payload["room_id"] = roomID
	id, _, err := s.session(r.Context(), r)
	if err != nil {
		writeError(w, err)
		return
	}
	wallet, err := s.walletAddress(r.Context(), id.AccountID)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.exec.ChatSendRoomMessage(r.Context(), wallet, clientIP(r), env.Seed, env.RunID, env.Payload)
	writeResponse(w, resp, err)
}

func (s *Server) handleChatRoomMessages(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]
	limit := queryLimit(r, 50)
	messages, err := s.store.ListChatMessages(r.Context(), roomID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// handleChatConversations lists every chat room, whatever its is_public
// flag, as the conversation set; there is no room-membership model, and
// the endpoint does not require a session.
func (s *Server) handleChatConversations(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.store.ListChatRooms(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": rooms})
}

func (s *Server) handleChatLegacyMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		channel := r.URL.Query().Get("channel")
		if channel == "" {
			writeError(w, gwerrors.New(gwerrors.ParamRequired, "channel required"))
			return
		}
		messages, err := s.store.ListLegacyMessages(r.Context(), channel, queryLimit(r, 50))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
		return
	}

	env, err := decodeMutatingEnvelope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id := s.optionalSession(r.Context(), r)
	var senderAccountID, wallet string
	if id != nil {
		senderAccountID = id.AccountID
		wallet, err = s.walletAddress(r.Context(), id.AccountID)
		if err != nil {
			writeError(w, err)
			return
		}
	}
	resp, err := s.exec.ChatSendLegacyMessage(r.Context(), senderAccountID, wallet, clientIP(r), env.Seed, env.RunID, env.Payload)
	writeResponse(w, resp, err)
}
