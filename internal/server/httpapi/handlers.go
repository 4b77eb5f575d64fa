package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	UserId       string `json:"userId"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeBadRequest(w, "email and password are required")
		return
	}
	if _, err := s.users.Register(r.Context(), req.Email, req.Password); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON")
		return
	}
	pair, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		UserId:       pair.UserID,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON")
		return
	}
	pair, err := s.users.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		UserId:       pair.UserID,
	})
}

func (s *Server) handleUpsertProfile(w http.ResponseWriter, r *http.Request) {
	var dto profileDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeBadRequest(w, "invalid JSON")
		return
	}
	out, err := s.documents.UpsertProfile(r.Context(), userID(r.Context()), dto.toModel())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profileToDTO(out))
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.documents.ListProfiles(r.Context(), userID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]profileDTO, len(profiles))
	for i := range profiles {
		out[i] = profileToDTO(&profiles[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.documents.GetProfile(r.Context(), userID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profileToDTO(p))
}

func (s *Server) handleUpsertMedication(w http.ResponseWriter, r *http.Request) {
	var dto medicationDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeBadRequest(w, "invalid JSON")
		return
	}
	out, err := s.documents.UpsertMedication(r.Context(), userID(r.Context()), mux.Vars(r)["id"], dto.toModel())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, medicationToDTO(out))
}

func (s *Server) handleListMedications(w http.ResponseWriter, r *http.Request) {
	meds, err := s.documents.ListMedications(r.Context(), userID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]medicationDTO, len(meds))
	for i := range meds {
		out[i] = medicationToDTO(&meds[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpsertIntake(w http.ResponseWriter, r *http.Request) {
	var dto intakeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeBadRequest(w, "invalid JSON")
		return
	}
	out, err := s.documents.UpsertIntake(r.Context(), userID(r.Context()), mux.Vars(r)["id"], dto.toModel())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, intakeToDTO(out))
}

func (s *Server) handleListIntakes(w http.ResponseWriter, r *http.Request) {
	intakes, err := s.documents.ListIntakes(r.Context(), userID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]intakeDTO, len(intakes))
	for i := range intakes {
		out[i] = intakeToDTO(&intakes[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateInvitation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProfileId string `json:"profileId"`
		Role      string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON")
		return
	}
	inv, err := s.invitations.Create(r.Context(), userID(r.Context()), req.ProfileId, req.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	// The token appears exactly once, in this response.
	writeJSON(w, http.StatusCreated, invitationToDTO(inv))
}

func (s *Server) handleGetInvitation(w http.ResponseWriter, r *http.Request) {
	inv, err := s.invitations.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invitationToDTO(inv))
}

func (s *Server) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON")
		return
	}
	profileID, err := s.invitations.Accept(r.Context(), userID(r.Context()), mux.Vars(r)["id"], req.Token)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"profileId": profileID})
}

func (s *Server) handleCancelInvitation(w http.ResponseWriter, r *http.Request) {
	if err := s.invitations.Cancel(r.Context(), userID(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
