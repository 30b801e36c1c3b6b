package jobs

import (
	"context"

	"carrental-backend/internal/logger"
)

// ExpirePendingBookings expires booking requests the owner never answered.
// Running it again right away is a no-op.
func (jr *JobRunner) ExpirePendingBookings() error {
	return jr.runWithRecovery("ExpirePendingBookings", func(ctx context.Context) error {
		n, err := jr.bookings.ExpirePendingBookings(ctx)
		logger.Info("Expired pending bookings", "count", n)
		return err
	})
}

// SendOverdueReminders reminds renters of cars that should have been back.
func (jr *JobRunner) SendOverdueReminders() error {
	return jr.runWithRecovery("SendOverdueReminders", func(ctx context.Context) error {
		n, err := jr.bookings.SendOverdueReminders(ctx)
		logger.Info("Sent overdue reminders", "count", n)
		return err
	})
}
