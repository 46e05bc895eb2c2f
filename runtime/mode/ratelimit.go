package mode

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/time/rate"

	"github.com/agentruntime/core/runtime/message"
)

// ErrRateLimited is returned (or wrapped) by a ChatModel when the underlying
// provider signals a rate limit, so AdaptiveRateLimiter knows to back off.
var ErrRateLimited = errors.New("mode: rate limited")

// AdaptiveRateLimiter applies an AIMD-style adaptive token bucket in front of
// a ChatModel: it estimates the token cost of each request, blocks until
// capacity is available, and adjusts its effective tokens-per-minute budget
// up on success and down on a rate-limit signal from the provider.
//
// The limiter is process-local. A single instance wraps one ChatModel via
// Wrap and is shared by every run that uses it.
type AdaptiveRateLimiter struct {
	mu sync.Mutex

	limiter *rate.Limiter

	currentTPM float64
	minTPM     float64
	maxTPM     float64

	recoveryRate float64
}

// NewAdaptiveRateLimiter constructs a limiter with an initial tokens-per-minute
// budget and an upper bound. initialTPM defaults to 60000 when non-positive;
// maxTPM is clamped up to initialTPM when it would otherwise be lower.
func NewAdaptiveRateLimiter(initialTPM, maxTPM float64) *AdaptiveRateLimiter {
	if initialTPM <= 0 {
		initialTPM = 60000
	}
	if maxTPM <= 0 || maxTPM < initialTPM {
		maxTPM = initialTPM
	}
	minTPM := initialTPM * 0.1
	if minTPM < 1 {
		minTPM = 1
	}
	recoveryRate := initialTPM * 0.05
	if recoveryRate < 1 {
		recoveryRate = 1
	}
	return &AdaptiveRateLimiter{
		limiter:      rate.NewLimiter(rate.Limit(initialTPM/60.0), int(initialTPM)),
		currentTPM:   initialTPM,
		minTPM:       minTPM,
		maxTPM:       maxTPM,
		recoveryRate: recoveryRate,
	}
}

// Wrap returns a ChatModel that enforces the limiter ahead of every call to
// next.Complete.
func (l *AdaptiveRateLimiter) Wrap(next ChatModel) ChatModel {
	return &limitedModel{next: next, limiter: l}
}

type limitedModel struct {
	next    ChatModel
	limiter *AdaptiveRateLimiter
}

func (m *limitedModel) Complete(ctx context.Context, messages []message.Message) (message.Message, error) {
	tokens := estimateTokens(messages)
	if err := m.limiter.limiter.WaitN(ctx, tokens); err != nil {
		return message.Message{}, err
	}
	reply, err := m.next.Complete(ctx, messages)
	m.limiter.observe(err)
	return reply, err
}

func (l *AdaptiveRateLimiter) observe(err error) {
	if err == nil {
		l.probe()
		return
	}
	if errors.Is(err, ErrRateLimited) {
		l.backoff()
	}
}

func (l *AdaptiveRateLimiter) backoff() {
	l.mu.Lock()
	defer l.mu.Unlock()
	newTPM := l.currentTPM * 0.5
	if newTPM < l.minTPM {
		newTPM = l.minTPM
	}
	if newTPM == l.currentTPM {
		return
	}
	l.currentTPM = newTPM
	l.limiter.SetLimit(rate.Limit(newTPM / 60.0))
	l.limiter.SetBurst(int(newTPM))
}

func (l *AdaptiveRateLimiter) probe() {
	l.mu.Lock()
	defer l.mu.Unlock()
	newTPM := l.currentTPM + l.recoveryRate
	if newTPM > l.maxTPM {
		newTPM = l.maxTPM
	}
	if newTPM == l.currentTPM {
		return
	}
	l.currentTPM = newTPM
	l.limiter.SetLimit(rate.Limit(newTPM / 60.0))
	l.limiter.SetBurst(int(newTPM))
}

// estimateTokens is a cheap heuristic: count characters across message text
// and tool result content, convert at a fixed ratio, and add a buffer for
// provider framing overhead.
func estimateTokens(messages []message.Message) int {
	charCount := 0
	for _, msg := range messages {
		charCount += len(msg.Text)
		for _, tr := range msg.ToolResults {
			if s, ok := tr.Content.(string); ok {
				charCount += len(s)
			}
		}
	}
	if charCount <= 0 {
		return 500
	}
	tokens := charCount/3 + 500
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}
