package infrastructure

import (
	"context"
	"fmt"

	"wagernotify/models"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCM error codes reported in send responses
const (
	FCMErrorUnregistered      = "registration-token-not-registered"
	FCMErrorInvalidArgument   = "invalid-argument"
	FCMErrorSenderIDMismatch  = "mismatched-credential"
	FCMErrorQuotaExceeded     = "message-rate-exceeded"
	FCMErrorUnavailable       = "unavailable"
	FCMErrorInternal          = "internal-error"
	FCMErrorThirdPartyAuth    = "third-party-auth-error"
	FCMErrorUnknown           = "unknown-error"
	maxFCMMulticastTokenCount = 500
)

// messagingClient is the subset of the FCM client the sender uses
type messagingClient interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMSender delivers notifications through Firebase Cloud Messaging
type FCMSender struct {
	client messagingClient
}

// NewFCMSender creates an FCM client for projectID. An empty credentialsFile
// uses application default credentials.
func NewFCMSender(ctx context.Context, projectID, credentialsFile string) (*FCMSender, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging client: %w", err)
	}

	return newFCMSenderWithClient(client), nil
}

func newFCMSenderWithClient(client messagingClient) *FCMSender {
	return &FCMSender{client: client}
}

// SendMulticast sends one notification to every token. FCM caps a multicast
// at 500 tokens, so larger audiences go out in chunks and the results are merged.
func (s *FCMSender) SendMulticast(ctx context.Context, msg models.BatchMessage) (*models.BatchResult, error) {
	result := &models.BatchResult{Responses: make([]models.SendResponse, 0, len(msg.Tokens))}

	for start := 0; start < len(msg.Tokens); start += maxFCMMulticastTokenCount {
		end := min(start+maxFCMMulticastTokenCount, len(msg.Tokens))
		chunk := msg.Tokens[start:end]

		resp, err := s.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
			Tokens:       chunk,
			Notification: toFCMNotification(msg.Notification),
			Data:         msg.Data,
		})
		if err != nil {
			if start == 0 {
				return nil, toDeliveryError(err)
			}
			// Earlier chunks went out; account for this one as failed
			for _, token := range chunk {
				result.Responses = append(result.Responses, failedResponse(token, err))
			}
			result.FailureCount += len(chunk)
			continue
		}

		result.SuccessCount += resp.SuccessCount
		result.FailureCount += resp.FailureCount
		for i, r := range resp.Responses {
			if i >= len(chunk) {
				break
			}
			if r.Success {
				result.Responses = append(result.Responses, models.SendResponse{
					Token:     chunk[i],
					Success:   true,
					MessageID: r.MessageID,
				})
				continue
			}
			result.Responses = append(result.Responses, failedResponse(chunk[i], r.Error))
		}
	}

	return result, nil
}

// Send delivers one notification to a single token
func (s *FCMSender) Send(ctx context.Context, msg models.Message) error {
	_, err := s.client.Send(ctx, &messaging.Message{
		Token:        msg.Token,
		Notification: toFCMNotification(msg.Notification),
		Data:         msg.Data,
	})
	if err != nil {
		return toDeliveryError(err)
	}
	return nil
}

func toFCMNotification(n models.Notification) *messaging.Notification {
	return &messaging.Notification{
		Title: n.Title,
		Body:  n.Body,
	}
}

func failedResponse(token string, err error) models.SendResponse {
	resp := models.SendResponse{Token: token, ErrorCode: FCMErrorUnknown}
	if err != nil {
		resp.ErrorCode = fcmErrorCode(err)
		resp.ErrorMessage = err.Error()
	}
	return resp
}

func toDeliveryError(err error) *models.DeliveryError {
	return &models.DeliveryError{Code: fcmErrorCode(err), Message: err.Error()}
}

// fcmErrorCode classifies an FCM error into a stable code for logs
func fcmErrorCode(err error) string {
	switch {
	case messaging.IsUnregistered(err):
		return FCMErrorUnregistered
	case messaging.IsInvalidArgument(err):
		return FCMErrorInvalidArgument
	case messaging.IsSenderIDMismatch(err):
		return FCMErrorSenderIDMismatch
	case messaging.IsQuotaExceeded(err):
		return FCMErrorQuotaExceeded
	case messaging.IsUnavailable(err):
		return FCMErrorUnavailable
	case messaging.IsInternal(err):
		return FCMErrorInternal
	case messaging.IsThirdPartyAuthError(err):
		return FCMErrorThirdPartyAuth
	default:
		return FCMErrorUnknown
	}
}
