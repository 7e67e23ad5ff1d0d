package workers

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"
)

// ReferralAuditor periodically sweeps the referral data for invariant
// violations. It never repairs anything — it reports, because every finding
// means either the unique index is gone or a code was revoked out-of-band,
// and both deserve a human.
type ReferralAuditor struct {
	DB *gorm.DB
}

func NewReferralAuditor(db *gorm.DB) *ReferralAuditor {
	return &ReferralAuditor{DB: db}
}

type duplicateCode struct {
	ReferralCode string
	Count        int64
}

// Sweep runs one audit pass and returns the number of findings.
func (a *ReferralAuditor) Sweep() int {
	findings := 0

	// Two live users holding the same code — impossible while the unique
	// index stands.
	var dups []duplicateCode
	err := a.DB.Raw(`
		SELECT referral_code, COUNT(*) AS count
		FROM users
		WHERE referral_code IS NOT NULL
		GROUP BY referral_code
		HAVING COUNT(*) > 1
	`).Scan(&dups).Error
	if err != nil {
		log.Printf("❌ [AUDIT] duplicate-code query failed: %v", err)
	}
	for _, d := range dups {
		findings++
		log.Printf("❌ [AUDIT] referral code %q held by %d users — unique index violated", d.ReferralCode, d.Count)
	}

	// Attribution rows whose referrer no longer exists or no longer owns a
	// code (e.g. admin deleted/downgraded the owner after signups landed).
	var orphaned int64
	err = a.DB.Raw(`
		SELECT COUNT(*)
		FROM referrals r
		LEFT JOIN users u ON u.id = r.referrer_id
		WHERE u.id IS NULL OR u.referral_code IS NULL
	`).Scan(&orphaned).Error
	if err != nil {
		log.Printf("❌ [AUDIT] orphaned-attribution query failed: %v", err)
	} else if orphaned > 0 {
		findings += int(orphaned)
		log.Printf("⚠️ [AUDIT] %d attribution row(s) point at a referrer without a live code", orphaned)
	}

	return findings
}

// PollReferralAudit runs the sweep on an interval until ctx is cancelled.
func PollReferralAudit(ctx context.Context, auditor *ReferralAuditor, pollInterval time.Duration) {
	log.Println("Starting referral audit sweep...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Referral audit sweep stopped.")
			return
		case <-ticker.C:
			if findings := auditor.Sweep(); findings == 0 {
				log.Println("✅ [AUDIT] referral invariants hold")
			}
		}
	}
}
