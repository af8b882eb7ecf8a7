package database

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"borrowbox/backend/config"
)

// Clients bundles the managed backend handles the rest of the app uses.
type Clients struct {
	Auth     *auth.Client
	Backend  *FirestoreBackend
	Uploader *StorageUploader
}

// InitFirebase initializes the Firebase Admin SDK and returns the Auth,
// Firestore and Storage handles. Credentials come from the environment
// (raw JSON, then base64-encoded JSON), falling back to application default
// credentials for development.
func InitFirebase(ctx context.Context, cfg *config.Config) (*Clients, error) {
	log.Println("Starting Firebase initialization...")

	var opts []option.ClientOption
	switch {
	case cfg.Firebase.CredentialsJSON != "":
		log.Println("Using JSON Firebase credentials from environment")
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.Firebase.CredentialsJSON)))
	case cfg.Firebase.CredentialsBase64 != "":
		log.Println("Using base64-encoded Firebase credentials from environment")
		credBytes, err := base64.StdEncoding.DecodeString(cfg.Firebase.CredentialsBase64)
		if err != nil {
			return nil, fmt.Errorf("decoding base64 Firebase credentials: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(credBytes))
	default:
		log.Println("No explicit Firebase credentials found, using application default credentials")
	}

	fbConfig := &firebase.Config{
		ProjectID:     cfg.Firebase.ProjectID,
		StorageBucket: cfg.Firebase.StorageBucket,
	}

	app, err := firebase.NewApp(ctx, fbConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing Firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting Firebase Auth client: %w", err)
	}

	firestoreClient, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting Firestore client: %w", err)
	}

	storageClient, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting Storage client: %w", err)
	}
	bucket, err := storageClient.Bucket(cfg.Firebase.StorageBucket)
	if err != nil {
		return nil, fmt.Errorf("getting Storage bucket %s: %w", cfg.Firebase.StorageBucket, err)
	}

	log.Println("Firebase Admin SDK initialized successfully")

	return &Clients{
		Auth:     authClient,
		Backend:  NewFirestoreBackend(firestoreClient),
		Uploader: NewStorageUploader(bucket, cfg.Firebase.StorageBucket),
	}, nil
}
