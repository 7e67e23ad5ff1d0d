package services

import (
	"log"
	"time"

	"heystudents-backend/models"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// StartPublishScheduler flips scheduled accommodations and events to
// published once their publish_at passes. Runs every minute.
func StartPublishScheduler(db *gorm.DB) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			now := time.Now()

			var listings []models.Accommodation
			if err := db.Where("status = ? AND publish_at <= ?", "scheduled", now).
				Find(&listings).Error; err != nil {
				log.Printf("[Scheduler] DB error (accommodations): %v", err)
			} else {
				for _, a := range listings {
					a.Status = "published"
					a.PublishAt = nil
					if err := db.Save(&a).Error; err != nil {
						log.Printf("[Scheduler] Failed to publish accommodation %s: %v", a.ID, err)
					} else {
						log.Printf("✅ Auto-published accommodation: %s", a.Name)
					}
				}
			}

			var events []models.Event
			if err := db.Where("status = ? AND publish_at <= ?", "scheduled", now).
				Find(&events).Error; err != nil {
				log.Printf("[Scheduler] DB error (events): %v", err)
				return
			}
			for _, e := range events {
				e.Status = "published"
				e.PublishAt = nil
				if err := db.Save(&e).Error; err != nil {
					log.Printf("[Scheduler] Failed to publish event %s: %v", e.ID, err)
				} else {
					log.Printf("✅ Auto-published event: %s", e.Title)
				}
			}
		}),
	)
}
