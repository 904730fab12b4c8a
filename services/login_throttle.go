package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"time"
)

const (
	// KeyLoginThrottle stores failed login attempts of the owner.
	KeyLoginThrottle = "loginThrottle"

	ThrottleFreeAttempts       = 3
	ThrottleCooldownCapSeconds = 30
)

// ThrottledError is returned by Login while a cooldown is running. No request is made.
type ThrottledError struct {
	WaitSeconds int
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("too many failed logins, wait %ds", e.WaitSeconds)
}

type loginThrottle struct {
	FailCount     int       `json:"fail_count"`
	CooldownUntil time.Time `json:"cooldown_until"`
}

// CooldownSecondsForFailCount returns 0 for the first free attempts, then
// min(30, 2^(failCount-free)).
func CooldownSecondsForFailCount(failCount int) int {
	if failCount < ThrottleFreeAttempts {
		return 0
	}
	s := int(math.Pow(2, float64(failCount-ThrottleFreeAttempts)))
	if s > ThrottleCooldownCapSeconds {
		return ThrottleCooldownCapSeconds
	}
	return s
}

func (s *Session) loadThrottle(ctx context.Context) loginThrottle {
	var lt loginThrottle
	raw, ok, err := s.store.Get(ctx, s.ownerID, KeyLoginThrottle)
	if err != nil || !ok {
		return lt
	}
	if err := json.Unmarshal([]byte(raw), &lt); err != nil {
		return loginThrottle{}
	}
	return lt
}

// loginWaitSeconds returns how many seconds the owner must wait before trying again (0 if no cooldown).
func (s *Session) loginWaitSeconds(ctx context.Context) int {
	lt := s.loadThrottle(ctx)
	now := s.now()
	if lt.CooldownUntil.IsZero() || !now.Before(lt.CooldownUntil) {
		return 0
	}
	return int(math.Ceil(lt.CooldownUntil.Sub(now).Seconds()))
}

func (s *Session) recordLoginFailed(ctx context.Context) {
	lt := s.loadThrottle(ctx)
	lt.FailCount++
	if secs := CooldownSecondsForFailCount(lt.FailCount); secs > 0 {
		lt.CooldownUntil = s.now().Add(time.Duration(secs) * time.Second)
	}
	buf, _ := json.Marshal(lt)
	if err := s.store.Set(ctx, s.ownerID, KeyLoginThrottle, string(buf)); err != nil {
		log.Printf("session owner=%d: record failed login: %v", s.ownerID, err)
	}
}

func (s *Session) recordLoginSuccess(ctx context.Context) {
	if err := s.store.Remove(ctx, s.ownerID, KeyLoginThrottle); err != nil {
		log.Printf("session owner=%d: reset login throttle: %v", s.ownerID, err)
	}
}
