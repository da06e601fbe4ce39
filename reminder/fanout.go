package reminder

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"todoflow/domain/entity"
)

// Fanout delivers each reminder to every notifier and joins their errors
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, r entity.Reminder) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier records due reminders in the log
func LogNotifier(logger *zap.Logger) Notifier {
	return NotifierFunc(func(_ context.Context, r entity.Reminder) error {
		logger.Info("Reminder due",
			zap.String("todo_id", r.TaskID),
			zap.String("owner", r.OwnerID),
			zap.String("title", r.Title),
			zap.Time("at", r.At))
		return nil
	})
}
