package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"borrowbox/backend/database"
	"borrowbox/backend/middleware"
	"borrowbox/backend/models"
	"borrowbox/backend/services"
	"borrowbox/backend/session"
)

// AuthHandler serves signup, login and profile routes. Each request gets its
// own session.Manager over the shared identity provider and profile store.
type AuthHandler struct {
	auth    session.AuthProvider
	db      database.Backend
	uploads *services.Uploads
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(auth session.AuthProvider, db database.Backend, uploads *services.Uploads) *AuthHandler {
	return &AuthHandler{auth: auth, db: db, uploads: uploads}
}

func (h *AuthHandler) newManager() *session.Manager {
	return session.NewManager(h.auth, h.db)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User         *models.UserProfile `json:"user"`
	IDToken      string              `json:"idToken,omitempty"`
	RefreshToken string              `json:"refreshToken,omitempty"`
}

// Login signs in with email and password.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	mgr := h.newManager()
	user, err := mgr.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			http.Error(w, "Invalid email or password", http.StatusUnauthorized)
			return
		}
		if validationError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "Login failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := loginResponse{User: user}
	if creds := mgr.Credentials(); creds != nil {
		resp.IDToken = creds.IDToken
		resp.RefreshToken = creds.RefreshToken
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	UserType string `json:"userType"`
	City     string `json:"city"`
}

// Signup creates the auth identity and its paired profile document.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	mgr := h.newManager()
	user, err := mgr.Signup(r.Context(), req.Email, req.Password, req.Name, req.UserType, req.City)
	if err != nil {
		if validationError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "Signup failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(loginResponse{User: user})
}

// GetProfile returns the authenticated user's profile document.
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.resume(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// UpdateProfile merge-writes fields into the authenticated user's profile.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)
	if userID == "" {
		http.Error(w, "Unauthorized: No user ID found", http.StatusUnauthorized)
		return
	}

	var updates map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// Identity fields stay put.
	delete(updates, "email")
	delete(updates, "createdAt")

	if userType, ok := updates["userType"].(string); ok && !models.ValidUserType(userType) {
		http.Error(w, "Unknown account type: "+userType, http.StatusBadRequest)
		return
	}

	mgr := h.newManager()
	if _, err := mgr.Resume(r.Context(), userID); err != nil {
		http.Error(w, "Failed to load profile: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := mgr.UpdateProfile(r.Context(), updates); err != nil {
		http.Error(w, "Failed to update profile: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(mgr.User())
}

// UploadProfilePicture stores a new profile picture and points the profile at
// it.
func (h *AuthHandler) UploadProfilePicture(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)
	if userID == "" {
		http.Error(w, "Unauthorized: No user ID found", http.StatusUnauthorized)
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "Missing image file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	url, err := h.uploads.UploadProfilePicture(r.Context(), file, userID)
	if err != nil {
		http.Error(w, "Failed to upload picture: "+err.Error(), http.StatusInternalServerError)
		return
	}

	mgr := h.newManager()
	if _, err := mgr.Resume(r.Context(), userID); err != nil {
		http.Error(w, "Failed to load profile: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := mgr.UpdateProfile(r.Context(), map[string]interface{}{"profilePicture": url}); err != nil {
		http.Error(w, "Failed to save picture URL: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"profilePicture": url})
}

func (h *AuthHandler) resume(w http.ResponseWriter, r *http.Request) (*models.UserProfile, bool) {
	userID := middleware.GetUserIDFromContext(r)
	if userID == "" {
		http.Error(w, "Unauthorized: No user ID found", http.StatusUnauthorized)
		return nil, false
	}

	mgr := h.newManager()
	user, err := mgr.Resume(r.Context(), userID)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			http.Error(w, "Profile not found", http.StatusNotFound)
			return nil, false
		}
		http.Error(w, "Failed to load profile: "+err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return user, true
}

// validationError reports whether the error is one the caller can fix by
// correcting their input.
func validationError(err error) bool {
	return errors.Is(err, session.ErrMissingFields) ||
		errors.Is(err, session.ErrInvalidEmail) ||
		errors.Is(err, session.ErrPasswordTooShort) ||
		errors.Is(err, session.ErrInvalidUserType)
}
