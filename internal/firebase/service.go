// File: internal/firebase/service.go
package firebase

import (
	"context"
	"fmt"
	"path/filepath"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"ordena_backend/internal/config"
)

// FCM accepts at most this many tokens per multicast message.
const maxMulticastTokens = 500

// FirebaseService sends push notifications through Firebase Cloud Messaging.
type FirebaseService struct {
	messaging *messaging.Client
	logger    *zap.Logger
}

// NewFirebaseService initializes the Firebase Admin SDK. It returns (nil, nil)
// when no service account key is configured; push delivery is then skipped.
func NewFirebaseService(cfg *config.Config, logger *zap.Logger) (*FirebaseService, error) {
	if cfg.FirebaseServiceAccountKeyPath == "" {
		logger.Info("FIREBASE_SERVICE_ACCOUNT_KEY_PATH not set, push notifications disabled")
		return nil, nil
	}

	cleanPath := filepath.Clean(cfg.FirebaseServiceAccountKeyPath)
	opt := option.WithCredentialsFile(cleanPath)

	var conf *firebase.Config
	if cfg.FirebaseProjectID != "" {
		conf = &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	}
	app, err := firebase.NewApp(context.Background(), conf, opt)
	if err != nil {
		logger.Error("Failed to initialize Firebase Admin SDK app", zap.Error(err), zap.String("keyPath", cleanPath))
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Messaging(context.Background())
	if err != nil {
		logger.Error("Failed to get Firebase Messaging client", zap.Error(err))
		return nil, fmt.Errorf("error getting Firebase Messaging client: %w", err)
	}

	logger.Info("Firebase Admin SDK initialized successfully.")
	return &FirebaseService{messaging: client, logger: logger}, nil
}

// SendMulticast delivers one notification to every token and returns how many
// deliveries succeeded. Tokens are sent in batches of the FCM maximum.
func (s *FirebaseService) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) (int, error) {
	if s == nil || len(tokens) == 0 {
		return 0, nil
	}
	sent := 0
	for start := 0; start < len(tokens); start += maxMulticastTokens {
		end := start + maxMulticastTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		msg := &messaging.MulticastMessage{
			Tokens:       tokens[start:end],
			Notification: &messaging.Notification{Title: title, Body: body},
			Data:         data,
		}
		resp, err := s.messaging.SendEachForMulticast(ctx, msg)
		if err != nil {
			return sent, fmt.Errorf("fcm multicast: %w", err)
		}
		sent += resp.SuccessCount
		if resp.FailureCount > 0 {
			for i, r := range resp.Responses {
				if r.Error != nil {
					s.logger.Warn("FCM delivery failed",
						zap.Int("index", start+i),
						zap.Bool("unregistered", messaging.IsUnregistered(r.Error)),
						zap.Error(r.Error))
				}
			}
		}
	}
	return sent, nil
}
