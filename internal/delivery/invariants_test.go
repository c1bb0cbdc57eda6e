package delivery

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/amelbouzid/karakou-backend/internal/confirmation"
	"github.com/amelbouzid/karakou-backend/pkg/db/models"
	"github.com/amelbouzid/karakou-backend/pkg/enums"
	"github.com/amelbouzid/karakou-backend/pkg/logger"
)

// Drives both status tracks with random operation sequences and checks the
// cross-track rules after every step: the delivery track leaves not_ready only
// while the order is confirmed, and a shipped order never cancels through the
// call-center path.
func TestStatusTracksHoldUnderRandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(260830))
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})

	for round := 0; round < 60; round++ {
		repo := newFakeRepo()
		order := &models.Order{
			ID:                 uuid.New(),
			OrderNumber:        fmt.Sprintf("KRK-%06d", round+1),
			CustomerName:       "Amina Cherif",
			CustomerPhone:      "0550123456",
			Subtotal:           decimal.NewFromInt(8000),
			DeliveryFee:        decimal.NewFromInt(400),
			Total:              decimal.NewFromInt(8400),
			ConfirmationStatus: enums.ConfirmationStatusPending,
			DeliveryStatus:     enums.DeliveryStatusNotReady,
			CreatedAt:          time.Now().UTC(),
		}
		repo.orders[order.ID] = order

		shipper := &stubShipper{tracking: fmt.Sprintf("YAL-%06d", round+1)}
		deliverySvc := newTestService(t, repo, shipper)
		confirmSvc, err := confirmation.NewService(repo, stubTxRunner{}, logg, time.Now)
		if err != nil {
			t.Fatalf("confirmation service: %v", err)
		}

		ctx := context.Background()
		agent := uuid.New()
		coordinator := uuid.New()
		deskCode := "ALG-05"

		for step := 0; step < 40; step++ {
			hadShipment := repo.orders[order.ID].HasShipment()

			var opErr error
			switch rng.Intn(8) {
			case 0:
				_, opErr = confirmSvc.Confirm(ctx, confirmation.TransitionInput{OrderID: order.ID, AgentID: agent})
			case 1:
				_, opErr = confirmSvc.Delay(ctx, confirmation.TransitionInput{OrderID: order.ID, AgentID: agent})
			case 2:
				_, opErr = confirmSvc.Requeue(ctx, confirmation.TransitionInput{OrderID: order.ID, AgentID: agent})
			case 3:
				_, opErr = confirmSvc.FlagDoubleOrder(ctx, confirmation.TransitionInput{OrderID: order.ID, AgentID: agent})
			case 4:
				_, opErr = confirmSvc.Cancel(ctx, confirmation.CancelInput{OrderID: order.ID, AgentID: agent, Reason: "changed mind"})
				if opErr == nil && hadShipment {
					t.Fatalf("round %d step %d: cancel succeeded after handoff", round, step)
				}
			case 5:
				_, opErr = deliverySvc.AssignDelivery(ctx, AssignInput{
					OrderID:       order.ID,
					CoordinatorID: coordinator,
					Wilaya:        "Alger",
					Method:        enums.DeliveryMethodDesk,
					DeskCode:      &deskCode,
				})
			case 6:
				_, opErr = deliverySvc.MarkReady(ctx, TransitionInput{OrderID: order.ID, CoordinatorID: coordinator})
			case 7:
				_, opErr = deliverySvc.Handoff(ctx, TransitionInput{OrderID: order.ID, CoordinatorID: coordinator})
			}
			_ = opErr // rejected transitions are part of the walk

			state := repo.orders[order.ID]
			if state.DeliveryStatus != enums.DeliveryStatusNotReady &&
				state.ConfirmationStatus != enums.ConfirmationStatusConfirmed {
				t.Fatalf("round %d step %d: delivery %s while confirmation %s",
					round, step, state.DeliveryStatus, state.ConfirmationStatus)
			}
			if state.ConfirmationStatus == enums.ConfirmationStatusCancelled && state.HasShipment() {
				t.Fatalf("round %d step %d: shipped order cancelled through call-center path", round, step)
			}
		}
	}
}
