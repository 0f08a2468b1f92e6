package activitypub

import (
	"context"
	"log"
	"time"
)

// Retry schedule for failed deliveries. After the last step every retry
// waits a day, until the attempt cap drops the delivery entirely.
var retryDelays = []time.Duration{
	1 * time.Minute,
	5 * time.Minute,
	15 * time.Minute,
	60 * time.Minute,
	240 * time.Minute,
	1440 * time.Minute,
}

const (
	maxDeliveryAttempts  = 10
	deliveryPollInterval = 30 * time.Second
	deliveryBatchSize    = 20
)

// StartDeliveryWorker runs the delivery loop until the context is
// cancelled. It drains due queue entries in small batches, retrying failed
// deliveries with increasing backoff.
func StartDeliveryWorker(ctx context.Context, database Database, client HTTPClient) {
	log.Printf("DeliveryWorker: started (poll every %s)", deliveryPollInterval)
	ticker := time.NewTicker(deliveryPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("DeliveryWorker: stopping")
			return
		case <-ticker.C:
			processDeliveryBatch(database, client)
		}
	}
}

func processDeliveryBatch(database Database, client HTTPClient) {
	err, items := database.ReadPendingDeliveries(deliveryBatchSize)
	if err != nil {
		log.Printf("DeliveryWorker: failed to read queue: %v", err)
		return
	}
	if items == nil || len(*items) == 0 {
		return
	}

	for _, item := range *items {
		err := DeliverActivity(database, client, item.InboxURI, []byte(item.ActivityJSON))
		if err == nil {
			if err := database.DeleteDelivery(item.Id); err != nil {
				log.Printf("DeliveryWorker: failed to dequeue %s: %v", item.Id, err)
			}
			continue
		}

		attempts := item.Attempts + 1
		if attempts >= maxDeliveryAttempts {
			log.Printf("DeliveryWorker: giving up on %s after %d attempts: %v", item.InboxURI, attempts, err)
			if err := database.DeleteDelivery(item.Id); err != nil {
				log.Printf("DeliveryWorker: failed to drop %s: %v", item.Id, err)
			}
			continue
		}

		delay := retryDelays[len(retryDelays)-1]
		if attempts-1 < len(retryDelays) {
			delay = retryDelays[attempts-1]
		}
		log.Printf("DeliveryWorker: delivery to %s failed (attempt %d, retry in %s): %v", item.InboxURI, attempts, delay, err)
		if err := database.UpdateDeliveryAttempt(item.Id, attempts, time.Now().Add(delay)); err != nil {
			log.Printf("DeliveryWorker: failed to update attempt for %s: %v", item.Id, err)
		}
	}
}
