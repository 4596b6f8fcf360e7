package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rezonia/facture-ocr/internal/model"
)

type planLimits struct {
	monthly int
	daily   int
}

var plans = map[string]planLimits{
	"BASIC": {monthly: 100, daily: 100 / 30},
	"PRO":   {monthly: 20000, daily: 666},
	"ULTRA": {monthly: 80000, daily: 2666},
	"MEGA":  {monthly: 250000, daily: 8333},
}

const defaultPlan = "PRO"

type usage struct {
	month   string
	day     string
	monthly int
	daily   int
}

// quotaTracker counts requests per credential for the current month and day.
type quotaTracker struct {
	mu     sync.Mutex
	plan   string
	limits planLimits
	usage  map[string]*usage
	now    func() time.Time
}

func newQuotaTracker(plan string, now func() time.Time) *quotaTracker {
	plan = strings.ToUpper(plan)
	limits, ok := plans[plan]
	if !ok {
		plan = defaultPlan
		limits = plans[defaultPlan]
	}
	return &quotaTracker{
		plan:   plan,
		limits: limits,
		usage:  make(map[string]*usage),
		now:    now,
	}
}

func (q *quotaTracker) setMonthly(n int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.limits.monthly = n
	if q.limits.daily > n {
		q.limits.daily = n
	}
}

func (q *quotaTracker) dailyLimit() int {
	if q.limits.daily > 0 {
		return q.limits.daily
	}
	return q.limits.monthly
}

func (q *quotaTracker) current(key string, now time.Time) *usage {
	month, day := now.Format("2006-01"), now.Format("2006-01-02")
	u, ok := q.usage[key]
	if !ok {
		u = &usage{month: month, day: day}
		q.usage[key] = u
	}
	if u.month != month {
		u.month, u.monthly = month, 0
	}
	if u.day != day {
		u.day, u.daily = day, 0
	}
	return u
}

// take consumes one request. It returns the window that is exhausted, if any.
func (q *quotaTracker) take(key string) (window string, limit int, reset time.Time, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	u := q.current(key, now)
	if u.monthly >= q.limits.monthly {
		return "monthly", q.limits.monthly, monthReset(now), false
	}
	if u.daily >= q.dailyLimit() {
		return "daily", q.dailyLimit(), dayReset(now), false
	}
	u.monthly++
	u.daily++
	return "", 0, time.Time{}, true
}

func (q *quotaTracker) snapshot(key string) model.Quota {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	u := q.current(key, now)
	return model.Quota{
		Plan: q.plan,
		Monthly: &model.QuotaWindow{
			Limit:     q.limits.monthly,
			Remaining: max(0, q.limits.monthly-u.monthly),
			ResetTime: model.Ptr(monthReset(now).Format(time.RFC3339)),
		},
		Daily: &model.QuotaWindow{
			Limit:     q.dailyLimit(),
			Remaining: max(0, q.dailyLimit()-u.daily),
			ResetTime: model.Ptr(dayReset(now).Format(time.RFC3339)),
		},
	}
}

func monthReset(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
}

func dayReset(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
}

// rateLimit rejects requests over the plan quota with 429 and Retry-After.
// Listing languages and reading the quota are free.
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.URL.Path {
		case "/v1/languages", "/v1/quota":
			c.Next()
			return
		}

		window, limit, reset, ok := s.quota.take(c.GetHeader(HeaderProxySecret))
		if ok {
			c.Next()
			return
		}

		retryAfter := int(reset.Sub(s.now()).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", "0")
		c.Header("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
		c.Header("X-RateLimit-Plan", s.quota.plan)
		c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
			Error:   "Quota Exceeded",
			Message: fmt.Sprintf("%s quota exceeded for plan %s. Limit: %d requests.", window, s.quota.plan, limit),
		})
	}
}
