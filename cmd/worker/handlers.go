package main

import (
	"github.com/hibiken/asynq"

	pickupJob "autoparts-returns-backend/internal/domains/pickup/job"
	refundJob "autoparts-returns-backend/internal/domains/refund/job"
	returnsJob "autoparts-returns-backend/internal/domains/returns/job"
	"autoparts-returns-backend/internal/shared"
	"autoparts-returns-backend/pkg/container"
)

// HandlerRegistry holds all job handlers
type HandlerRegistry struct {
	// Pickup handlers
	schedulePickup     *pickupJob.SchedulePickupHandler
	cancelPickup       *pickupJob.CancelPickupHandler
	processPickupEvent *pickupJob.ProcessPickupEventHandler
	pickupSLACheck     *pickupJob.PickupSLACheckHandler

	// Image handlers
	processReturnImage *returnsJob.ProcessReturnImageHandler
	deleteReturnImages *returnsJob.DeleteReturnImagesHandler

	// Refund handlers
	processRefundEvent *refundJob.ProcessRefundEventHandler
	operatorReview     *refundJob.OperatorReviewHandler
	reconcileRefunds   *refundJob.ReconcileRefundsHandler
	cleanupWebhookLog  *refundJob.CleanupWebhookLogHandler
}

// initializeHandlers creates all job handlers with their dependencies
func initializeHandlers(c *container.Container) *HandlerRegistry {
	return &HandlerRegistry{
		// Pickup
		schedulePickup:     pickupJob.NewSchedulePickupHandler(c.PickupService),
		cancelPickup:       pickupJob.NewCancelPickupHandler(c.PickupService),
		processPickupEvent: pickupJob.NewProcessPickupEventHandler(c.PickupService),
		pickupSLACheck:     pickupJob.NewPickupSLACheckHandler(c.ReturnRepo, c.Config.ReturnPolicy.PickupSLADays),

		// Images
		processReturnImage: returnsJob.NewProcessReturnImageHandler(c.ReturnRepo, c.Storage, c.ImageProc),
		deleteReturnImages: returnsJob.NewDeleteReturnImagesHandler(c.Storage),

		// Refunds
		processRefundEvent: refundJob.NewProcessRefundEventHandler(c.RefundService),
		operatorReview:     refundJob.NewOperatorReviewHandler(c.RefundRepo),
		reconcileRefunds:   refundJob.NewReconcileRefundsHandler(c.RefundService),
		cleanupWebhookLog:  refundJob.NewCleanupWebhookLogHandler(c.WebhookRepo),
	}
}

// RegisterHandlers registers all handlers with the mux
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	// Pickup tasks
	mux.HandleFunc(shared.TypeSchedulePickup, h.schedulePickup.ProcessTask)
	mux.HandleFunc(shared.TypeCancelPickup, h.cancelPickup.ProcessTask)
	mux.HandleFunc(shared.TypeProcessPickupEvent, h.processPickupEvent.ProcessTask)
	mux.HandleFunc(shared.TypePickupSLACheck, h.pickupSLACheck.ProcessTask)

	// Image tasks
	mux.HandleFunc(shared.TypeProcessReturnImage, h.processReturnImage.ProcessTask)
	mux.HandleFunc(shared.TypeDeleteReturnImages, h.deleteReturnImages.ProcessTask)

	// Refund tasks
	mux.HandleFunc(shared.TypeProcessRefundEvent, h.processRefundEvent.ProcessTask)
	mux.HandleFunc(shared.TypeRefundOperatorReview, h.operatorReview.ProcessTask)
	mux.HandleFunc(shared.TypeReconcileRefunds, h.reconcileRefunds.ProcessTask)
	mux.HandleFunc(shared.TypeCleanupWebhookLog, h.cleanupWebhookLog.ProcessTask)
}
