package service

import (
	"time"

	"github.com/unimarket/unimarket-backend/internal/app/model"
)

// TrustProfile is the input to the trust score and badge calculations.
type TrustProfile struct {
	Verified          bool
	AccountAgeDays    int
	ListingsSold      int
	CollegeRecognized bool
}

// TrustService computes trust scores and badges from user activity.
type TrustService interface {
	CalculateTrustScore(profile TrustProfile) int
	GetEarnedBadges(profile TrustProfile) []string
}

type trustService struct{}

func NewTrustService() TrustService {
	return &trustService{}
}

// CalculateTrustScore scores a user on a 0-100 scale. Everyone starts at 50;
// verification is worth the most, with smaller increments for tenure and
// completed sales.
func (s *trustService) CalculateTrustScore(profile TrustProfile) int {
	score := 50

	if profile.Verified {
		score += 30
	}

	switch {
	case profile.AccountAgeDays >= 365:
		score += 10
	case profile.AccountAgeDays >= 90:
		score += 5
	case profile.AccountAgeDays >= 30:
		score += 2
	}

	switch {
	case profile.ListingsSold >= 20:
		score += 10
	case profile.ListingsSold >= 5:
		score += 5
	case profile.ListingsSold >= 1:
		score += 2
	}

	if score > 100 {
		score = 100
	}
	return score
}

// GetEarnedBadges returns the badge slugs a user qualifies for. The result is
// deterministic; callers persist it as-is on the user row.
func (s *trustService) GetEarnedBadges(profile TrustProfile) []string {
	badges := []string{}

	if profile.Verified {
		badges = append(badges, "verified_student")
	}
	if profile.AccountAgeDays <= 30 {
		badges = append(badges, "early_adopter")
	}
	if profile.ListingsSold >= 5 {
		badges = append(badges, "trusted_seller")
	}
	if profile.AccountAgeDays >= 365 && profile.Verified {
		badges = append(badges, "campus_veteran")
	}

	return badges
}

func accountAgeDays(user *model.User) int {
	return int(time.Since(user.CreatedAt).Hours() / 24)
}
