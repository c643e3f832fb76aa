package service

import (
	"context"
	"errors"
	"sync/atomic"

	"wagernotify/events"
	"wagernotify/models"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Delivery is one recipient's individually built notification
type Delivery struct {
	UserID       string
	Token        string
	Notification models.Notification
}

// Dispatcher sends notifications and accounts for per-target outcomes.
// Nothing is retried.
type Dispatcher struct {
	sender      PushSender
	limiter     *rate.Limiter
	concurrency int
	metrics     MetricsRecorder
}

// NewDispatcher creates a new dispatcher. concurrency bounds simultaneous
// single-mode sends (<= 0 sends one at a time); ratePerSecond <= 0 disables
// rate limiting.
func NewDispatcher(sender PushSender, concurrency int, ratePerSecond float64, metrics MetricsRecorder) *Dispatcher {
	if concurrency <= 0 {
		concurrency = 1
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}

	var limiter *rate.Limiter
	if ratePerSecond > 0 {
		burst := int(ratePerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), burst)
	}

	return &Dispatcher{
		sender:      sender,
		limiter:     limiter,
		concurrency: concurrency,
		metrics:     metrics,
	}
}

// SendBatch delivers one shared notification to every token in a single call.
// A failed call counts every token as failed; individual token failures are
// logged one by one.
func (d *Dispatcher) SendBatch(ctx context.Context, eventType events.EventType, n models.Notification, tokens []string) (sent, failed int) {
	if len(tokens) == 0 {
		return 0, 0
	}

	result, err := d.sender.SendMulticast(ctx, models.BatchMessage{Notification: n, Tokens: tokens})
	if err != nil {
		fields := log.Fields{
			"eventType":  eventType,
			"tokenCount": len(tokens),
			"error":      err,
		}
		addErrorCode(fields, err)
		log.WithFields(fields).Error("Failed to send batch notification")
		d.metrics.RecordDelivery(eventType, DeliveryModeBatch, 0, len(tokens))
		return 0, len(tokens)
	}

	for _, resp := range result.Failures() {
		log.WithFields(log.Fields{
			"eventType":    eventType,
			"token":        maskToken(resp.Token),
			"errorCode":    resp.ErrorCode,
			"errorMessage": resp.ErrorMessage,
		}).Error("Failed to deliver notification to token")
	}

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"successCount": result.SuccessCount,
		"failureCount": result.FailureCount,
	}).Info("Batch notification sent")

	d.metrics.RecordDelivery(eventType, DeliveryModeBatch, result.SuccessCount, result.FailureCount)
	return result.SuccessCount, result.FailureCount
}

// SendEach delivers each recipient's notification with its own call.
// Deliveries without a token are skipped silently. Sends run concurrently
// and in no particular order; once ctx is done no further sends start.
func (d *Dispatcher) SendEach(ctx context.Context, eventType events.EventType, deliveries []Delivery) (sent, failed, skipped int) {
	var sentCount, failedCount, skippedCount atomic.Int64

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for _, delivery := range deliveries {
		if delivery.Token == "" {
			skippedCount.Add(1)
			continue
		}

		g.Go(func() error {
			if d.limiter != nil {
				if err := d.limiter.Wait(ctx); err != nil {
					skippedCount.Add(1)
					return nil
				}
			}
			if ctx.Err() != nil {
				skippedCount.Add(1)
				return nil
			}

			err := d.sender.Send(ctx, models.Message{Notification: delivery.Notification, Token: delivery.Token})
			if err != nil {
				fields := log.Fields{
					"eventType": eventType,
					"userId":    delivery.UserID,
					"token":     maskToken(delivery.Token),
					"error":     err,
				}
				addErrorCode(fields, err)
				log.WithFields(fields).Error("Failed to send notification")
				failedCount.Add(1)
				return nil
			}

			log.WithFields(log.Fields{
				"eventType": eventType,
				"userId":    delivery.UserID,
			}).Debug("Notification sent")
			sentCount.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	sent, failed, skipped = int(sentCount.Load()), int(failedCount.Load()), int(skippedCount.Load())
	d.metrics.RecordDelivery(eventType, DeliveryModeSingle, sent, failed)
	return sent, failed, skipped
}

func addErrorCode(fields log.Fields, err error) {
	var deliveryErr *models.DeliveryError
	if errors.As(err, &deliveryErr) {
		fields["errorCode"] = deliveryErr.Code
		fields["errorMessage"] = deliveryErr.Message
	}
}

// maskToken keeps only the tail of a device token for logs
func maskToken(token string) string {
	const visible = 6
	if len(token) <= visible {
		return token
	}
	return "..." + token[len(token)-visible:]
}
