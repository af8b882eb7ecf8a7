package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"firebase.google.com/go/v4/auth"
)

// ErrInvalidCredentials covers every sign-in failure the user can fix by
// re-entering email and password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// identityToolkitEndpoint is the Firebase password sign-in API. The Admin SDK
// cannot verify passwords, so sign-in goes through the REST surface.
const identityToolkitEndpoint = "https://identitytoolkit.googleapis.com/v1"

// Credentials is what the identity provider hands back on a successful
// password sign-in.
type Credentials struct {
	UID          string
	IDToken      string
	RefreshToken string
}

// AuthProvider is the identity-provider boundary: password sign-in and
// account creation. Tests substitute a fake.
type AuthProvider interface {
	SignIn(ctx context.Context, email, password string) (*Credentials, error)
	CreateAccount(ctx context.Context, email, password, displayName string) (string, error)
}

// FirebaseAuth implements AuthProvider with the Firebase Admin SDK for
// account creation and the Identity Toolkit REST API for password sign-in.
type FirebaseAuth struct {
	// Endpoint and HTTPClient are exported so tests can point the client at
	// a local server.
	Endpoint   string
	HTTPClient *http.Client

	admin  *auth.Client
	apiKey string
}

// NewFirebaseAuth creates a FirebaseAuth. apiKey is the project's web API
// key, which authorizes Identity Toolkit calls.
func NewFirebaseAuth(admin *auth.Client, apiKey string) *FirebaseAuth {
	return &FirebaseAuth{
		Endpoint:   identityToolkitEndpoint,
		HTTPClient: http.DefaultClient,
		admin:      admin,
		apiKey:     apiKey,
	}
}

type signInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signInResponse struct {
	LocalID      string `json:"localId"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
}

type identityError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (f *FirebaseAuth) SignIn(ctx context.Context, email, password string) (*Credentials, error) {
	body, err := json.Marshal(signInRequest{Email: email, Password: password, ReturnSecureToken: true})
	if err != nil {
		return nil, fmt.Errorf("encoding sign-in request: %w", err)
	}

	url := fmt.Sprintf("%s/accounts:signInWithPassword?key=%s", f.Endpoint, f.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building sign-in request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling identity provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var idErr identityError
		if err := json.NewDecoder(resp.Body).Decode(&idErr); err == nil && credentialFailure(idErr.Error.Message) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidCredentials, idErr.Error.Message)
		}
		return nil, fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}

	var signIn signInResponse
	if err := json.NewDecoder(resp.Body).Decode(&signIn); err != nil {
		return nil, fmt.Errorf("decoding sign-in response: %w", err)
	}

	return &Credentials{
		UID:          signIn.LocalID,
		IDToken:      signIn.IDToken,
		RefreshToken: signIn.RefreshToken,
	}, nil
}

func (f *FirebaseAuth) CreateAccount(ctx context.Context, email, password, displayName string) (string, error) {
	params := (&auth.UserToCreate{}).
		Email(email).
		Password(password).
		DisplayName(displayName)

	record, err := f.admin.CreateUser(ctx, params)
	if err != nil {
		return "", fmt.Errorf("creating auth account: %w", err)
	}
	return record.UID, nil
}

// credentialFailure reports whether the Identity Toolkit error message means
// the user supplied wrong credentials, as opposed to a transport or quota
// problem.
func credentialFailure(message string) bool {
	switch message {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "USER_DISABLED":
		return true
	}
	return false
}
